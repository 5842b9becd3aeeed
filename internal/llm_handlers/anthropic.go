package llmHandlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"jarvis-backend/internal/models"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const anthropicVertexVersion = "vertex-2023-10-16"

// VertexAnthropicClient implements Client for Claude models served through
// Vertex AI rawPredict / streamRawPredict.
type VertexAnthropicClient struct {
	httpClient *http.Client
	// modelURL is the model resource URL without the ":rawPredict" verb
	modelURL  string
	maxTokens int

	Temperature float64
}

type VertexAnthropicConfig struct {
	CredentialsJSON []byte
	ProjectID       string
	Location        string // e.g. "us-east5"
	Model           string // e.g. "claude-sonnet-4-5@20250929"
	MaxTokens       int
	Temperature     float64
}

func NewVertexAnthropicClient(ctx context.Context, cfg VertexAnthropicConfig) (*VertexAnthropicClient, error) {
	if len(cfg.CredentialsJSON) == 0 {
		return nil, fmt.Errorf("anthropic vertex provider requires service account credentials")
	}
	if cfg.ProjectID == "" || cfg.Location == "" || cfg.Model == "" {
		return nil, fmt.Errorf("anthropic vertex project, location and model must be set")
	}

	creds, err := google.CredentialsFromJSON(ctx, cfg.CredentialsJSON, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return nil, fmt.Errorf("CredentialsFromJSON: %w", err)
	}

	modelURL := fmt.Sprintf(
		"https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/anthropic/models/%s",
		cfg.Location, cfg.ProjectID, cfg.Location, cfg.Model,
	)
	return newVertexAnthropicClient(oauth2.NewClient(ctx, creds.TokenSource), modelURL, cfg.MaxTokens, cfg.Temperature), nil
}

func newVertexAnthropicClient(httpClient *http.Client, modelURL string, maxTokens int, temperature float64) *VertexAnthropicClient {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &VertexAnthropicClient{
		httpClient:  httpClient,
		modelURL:    modelURL,
		maxTokens:   maxTokens,
		Temperature: temperature,
	}
}

type claudeImageSource struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type claudeBlock struct {
	Type   string             `json:"type"`
	Text   string             `json:"text,omitempty"`
	Source *claudeImageSource `json:"source,omitempty"`
}

type claudeMessage struct {
	Role    string        `json:"role"`
	Content []claudeBlock `json:"content"`
}

type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	Messages         []claudeMessage `json:"messages"`
	System           string          `json:"system,omitempty"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      *float64        `json:"temperature,omitempty"`
	Stream           bool            `json:"stream"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// claudeStreamEvent covers the SSE payloads read here: content_block_delta
// carries text, error ends the stream.
type claudeStreamEvent struct {
	Type  string `json:"type"`
	Delta *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// toClaudeMessages maps the conversation to Claude content blocks. Claude
// requires the first message to come from the user, so a history window that
// opens on a reply drops it.
func toClaudeMessages(messages []Message) []claudeMessage {
	out := make([]claudeMessage, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == models.RoleAssistant {
			role = "assistant"
		}
		if len(out) == 0 && role != "user" {
			continue
		}

		blocks := []claudeBlock{{Type: "text", Text: m.Content}}
		for _, url := range m.ImageURLs {
			blocks = append(blocks, claudeBlock{
				Type:   "image",
				Source: &claudeImageSource{Type: "url", URL: url},
			})
		}
		out = append(out, claudeMessage{Role: role, Content: blocks})
	}
	return out
}

func (c *VertexAnthropicClient) do(ctx context.Context, verb, systemMessage string, messages []Message, stream bool) (*http.Response, error) {
	body := claudeRequest{
		AnthropicVersion: anthropicVertexVersion,
		Messages:         toClaudeMessages(messages),
		System:           systemMessage,
		MaxTokens:        c.maxTokens,
		Stream:           stream,
	}
	if c.Temperature > 0 {
		body.Temperature = &c.Temperature
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.modelURL+":"+verb, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http do: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		buf, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("vertex error %d: %s", resp.StatusCode, strings.TrimSpace(string(buf)))
	}
	return resp, nil
}

func (c *VertexAnthropicClient) Chat(ctx context.Context, systemMessage string, messages []Message) (string, error) {
	resp, err := c.do(ctx, "rawPredict", systemMessage, messages, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var cr claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	texts := make([]string, 0, len(cr.Content))
	for _, block := range cr.Content {
		if block.Type == "text" && block.Text != "" {
			texts = append(texts, block.Text)
		}
	}
	return strings.Join(texts, "\n\n"), nil
}

// ChatStream reads the SSE body line by line and yields every text delta.
// Returning early closes the body, which cancels the upstream request.
func (c *VertexAnthropicClient) ChatStream(ctx context.Context, systemMessage string, messages []Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		resp, err := c.do(ctx, "streamRawPredict", systemMessage, messages, true)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			data, ok := strings.CutPrefix(scanner.Text(), "data:")
			if !ok {
				continue
			}
			data = strings.TrimSpace(data)
			if data == "" {
				continue
			}
			if data == "[DONE]" {
				return
			}

			var ev claudeStreamEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				// a malformed frame is skipped, the next one may still carry text
				continue
			}
			switch ev.Type {
			case "content_block_delta":
				if ev.Delta == nil || ev.Delta.Type != "text_delta" || ev.Delta.Text == "" {
					continue
				}
				if !yield(ev.Delta.Text, nil) {
					return
				}
			case "error":
				msg := "unknown error"
				if ev.Error != nil {
					msg = ev.Error.Type + ": " + ev.Error.Message
				}
				yield("", fmt.Errorf("vertex stream: %s", msg))
				return
			case "message_stop":
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", fmt.Errorf("vertex stream: %w", err))
		}
	}
}
