package llmHandlers

import (
	"context"
	"fmt"
	"iter"
	"jarvis-backend/internal/models"
	"mime"
	"path"
	"strings"

	"google.golang.org/genai"
)

const defaultImageMIMEType = "image/jpeg"

// geminiModels is the slice of *genai.Models used here.
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// GenaiGeminiClient implements Client for Gemini via Google AI API
type GenaiGeminiClient struct {
	models  geminiModels
	modelID string

	Temperature float32
	MaxTokens   int32
}

type GeminiConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int32
	Temperature float32
}

func NewGenaiGeminiClient(ctx context.Context, cfg GeminiConfig) (*GenaiGeminiClient, error) {
	if cfg.APIKey == "" || cfg.Model == "" {
		return nil, fmt.Errorf("gemini api key and model must be set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	return &GenaiGeminiClient{
		models:      client.Models,
		modelID:     cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}, nil
}

// imageMIMEType guesses the MIME type of a stored image from its URL.
func imageMIMEType(url string) string {
	ext := path.Ext(strings.SplitN(url, "?", 2)[0])
	if t := mime.TypeByExtension(ext); strings.HasPrefix(t, "image/") {
		return strings.SplitN(t, ";", 2)[0]
	}
	return defaultImageMIMEType
}

// convertMessagesToGenaiContent converts our Message format to genai.Content
func convertMessagesToGenaiContent(messages []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		// Map role: "assistant" -> "model", "user" -> "user"
		roleOut := "user"
		if m.Role == models.RoleAssistant {
			roleOut = "model"
		}

		parts := []*genai.Part{{Text: m.Content}}
		for _, url := range m.ImageURLs {
			parts = append(parts, &genai.Part{
				FileData: &genai.FileData{FileURI: url, MIMEType: imageMIMEType(url)},
			})
		}
		contents = append(contents, &genai.Content{Role: roleOut, Parts: parts})
	}
	return contents
}

func (v *GenaiGeminiClient) generateConfig(systemMessage string) *genai.GenerateContentConfig {
	genConfig := &genai.GenerateContentConfig{
		MaxOutputTokens: v.MaxTokens,
	}
	if v.Temperature > 0 {
		genConfig.Temperature = &v.Temperature
	}
	if systemMessage != "" {
		genConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemMessage}},
		}
	}
	return genConfig
}

// responseText collects output text from every candidate part.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
	}
	return sb.String()
}

func (v *GenaiGeminiClient) Chat(ctx context.Context, systemMessage string, messages []Message) (string, error) {
	resp, err := v.models.GenerateContent(ctx, v.modelID, convertMessagesToGenaiContent(messages), v.generateConfig(systemMessage))
	if err != nil {
		return "", fmt.Errorf("gemini GenerateContent: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	return responseText(resp), nil
}

func (v *GenaiGeminiClient) ChatStream(ctx context.Context, systemMessage string, messages []Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream := v.models.GenerateContentStream(ctx, v.modelID, convertMessagesToGenaiContent(messages), v.generateConfig(systemMessage))
		for resp, err := range stream {
			if err != nil {
				yield("", fmt.Errorf("gemini stream: %w", err))
				return
			}
			text := responseText(resp)
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}
