package llmHandlers

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"jarvis-backend/internal/models"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

var errStreamStopped = errors.New("stream stopped by consumer")

type LangChainClient struct {
	llm         llms.Model
	maxTokens   int
	temperature float64
}

type LangChainConfig struct {
	Model       string // e.g. "gpt-4o-mini", "llama-3.1-70b-versatile"
	BaseURL     string // optional: for Groq or other OpenAI-compatible APIs
	APIKey      string
	MaxTokens   int
	Temperature float64
}

func NewLangChainClient(cfg LangChainConfig) (*LangChainClient, error) {
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create langchain openai client: %w", err)
	}

	return newLangChainClient(llm, cfg), nil
}

func newLangChainClient(llm llms.Model, cfg LangChainConfig) *LangChainClient {
	return &LangChainClient{
		llm:         llm,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

func (c *LangChainClient) callOptions() []llms.CallOption {
	opts := []llms.CallOption{}
	if c.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}
	if c.temperature > 0 {
		opts = append(opts, llms.WithTemperature(c.temperature))
	}
	return opts
}

func toLangChainMessages(systemMessage string, messages []Message) []llms.MessageContent {
	msgContents := make([]llms.MessageContent, 0, len(messages)+1)
	if systemMessage != "" {
		msgContents = append(msgContents, llms.TextParts(llms.ChatMessageTypeSystem, systemMessage))
	}
	for _, m := range messages {
		msgType := llms.ChatMessageTypeHuman
		if m.Role == models.RoleAssistant {
			msgType = llms.ChatMessageTypeAI
		}

		if len(m.ImageURLs) == 0 {
			msgContents = append(msgContents, llms.TextParts(msgType, m.Content))
			continue
		}

		// text first, then every image as its own part
		parts := make([]llms.ContentPart, 0, len(m.ImageURLs)+1)
		parts = append(parts, llms.TextPart(m.Content))
		for _, url := range m.ImageURLs {
			parts = append(parts, llms.ImageURLPart(url))
		}
		msgContents = append(msgContents, llms.MessageContent{
			Role:  msgType,
			Parts: parts,
		})
	}
	return msgContents
}

func (c *LangChainClient) Chat(ctx context.Context, systemMessage string, messages []Message) (string, error) {
	resp, err := c.llm.GenerateContent(ctx, toLangChainMessages(systemMessage, messages), c.callOptions()...)
	if err != nil {
		return "", fmt.Errorf("langchain GenerateContent: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from LLM")
	}

	return resp.Choices[0].Content, nil
}

func (c *LangChainClient) ChatStream(ctx context.Context, systemMessage string, messages []Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		stopped := false
		opts := append(c.callOptions(), llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			if !yield(string(chunk), nil) {
				stopped = true
				return errStreamStopped
			}
			return nil
		}))

		_, err := c.llm.GenerateContent(ctx, toLangChainMessages(systemMessage, messages), opts...)
		if stopped {
			return
		}
		if err != nil {
			yield("", fmt.Errorf("langchain stream: %w", err))
		}
	}
}
