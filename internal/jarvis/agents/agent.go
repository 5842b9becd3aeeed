package agents

import (
	"context"
	"iter"
	llmHandlers "jarvis-backend/internal/llm_handlers"
	"jarvis-backend/internal/jarvis/prompts"
	"jarvis-backend/internal/models"
)

// Request is everything needed to ask the model for one reply.
type Request struct {
	Language  models.Language
	Title     string
	Text      string
	ImageURLs []string
	History   []llmHandlers.Message
}

type Agent struct {
	llmClient llmHandlers.Client
}

func NewAgent(llmClient llmHandlers.Client) *Agent {
	return &Agent{llmClient: llmClient}
}

// BuildMessages returns the system prompt and the history followed by the new user message.
// Image URLs ride on the new message only.
func BuildMessages(req Request) (string, []llmHandlers.Message) {
	systemMessage := prompts.SystemPrompt(req.Language, req.Title)

	messages := make([]llmHandlers.Message, 0, len(req.History)+1)
	messages = append(messages, req.History...)
	messages = append(messages, llmHandlers.Message{
		Role:      models.RoleUser,
		Content:   req.Text,
		ImageURLs: req.ImageURLs,
	})
	return systemMessage, messages
}

func (a *Agent) ProcessRequest(ctx context.Context, req Request) (string, error) {
	systemMessage, messages := BuildMessages(req)
	return a.llmClient.Chat(ctx, systemMessage, messages)
}

// ProcessRequestStream yields reply deltas; breaking out of the loop cancels the upstream call.
func (a *Agent) ProcessRequestStream(ctx context.Context, req Request) iter.Seq2[string, error] {
	systemMessage, messages := BuildMessages(req)
	return a.llmClient.ChatStream(ctx, systemMessage, messages)
}
