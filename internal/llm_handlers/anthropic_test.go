package llmHandlers

import (
	"context"
	"encoding/json"
	"fmt"
	"jarvis-backend/internal/models"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVertexTestClient(t *testing.T, handler http.HandlerFunc) *VertexAnthropicClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return newVertexAnthropicClient(srv.Client(), srv.URL+"/publishers/anthropic/models/claude-test", 512, 0)
}

func writeSSE(w http.ResponseWriter, events ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, ev := range events {
		var probe struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal([]byte(ev), &probe)
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", probe.Type, ev)
	}
}

func textDelta(text string) string {
	return fmt.Sprintf(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":%q}}`, text)
}

func TestFactory_AnthropicVertexNeedsCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: ProviderAnthropicVertex, Model: "claude"})
	assert.ErrorContains(t, err, "service account")
}

func TestToClaudeMessages(t *testing.T) {
	msgs := toClaudeMessages([]Message{
		{Role: models.RoleAssistant, Content: "orphaned reply"},
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
		{Role: models.RoleUser, Content: "what is this?", ImageURLs: []string{"https://cdn/a.png"}},
	})

	require.Len(t, msgs, 3)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "assistant", msgs[1].Role)
	require.Len(t, msgs[2].Content, 2)
	assert.Equal(t, claudeBlock{Type: "text", Text: "what is this?"}, msgs[2].Content[0])
	assert.Equal(t, "image", msgs[2].Content[1].Type)
	assert.Equal(t, &claudeImageSource{Type: "url", URL: "https://cdn/a.png"}, msgs[2].Content[1].Source)
}

func TestVertexAnthropicChat(t *testing.T) {
	var got claudeRequest
	client := newVertexTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/publishers/anthropic/models/claude-test:rawPredict", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Kyoto, Sher!"}],"stop_reason":"end_turn"}`))
	})

	reply, err := client.Chat(context.Background(), "be Jarvis", []Message{{Role: models.RoleUser, Content: "Where?"}})
	require.NoError(t, err)
	assert.Equal(t, "Kyoto, Sher!", reply)

	assert.Equal(t, anthropicVertexVersion, got.AnthropicVersion)
	assert.Equal(t, "be Jarvis", got.System)
	assert.Equal(t, 512, got.MaxTokens)
	assert.False(t, got.Stream)
	assert.Nil(t, got.Temperature)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "Where?", got.Messages[0].Content[0].Text)
}

func TestVertexAnthropicChat_UpstreamError(t *testing.T) {
	client := newVertexTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota"}}`))
	})

	_, err := client.Chat(context.Background(), "", nil)
	assert.ErrorContains(t, err, "vertex error 429")
}

func TestVertexAnthropicChatStream(t *testing.T) {
	client := newVertexTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/publishers/anthropic/models/claude-test:streamRawPredict", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		writeSSE(w,
			`{"type":"message_start","message":{"id":"msg_1"}}`,
			`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
			textDelta("Hel"),
			`{"type":"ping"}`,
			textDelta("lo!"),
			`{"type":"content_block_stop","index":0}`,
			`{"type":"message_stop"}`,
			textDelta("ignored"),
		)
	})

	deltas, err := collect(client.ChatStream(context.Background(), "", []Message{{Role: models.RoleUser, Content: "hi"}}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo!"}, deltas)
}

func TestVertexAnthropicChatStream_ErrorEvent(t *testing.T) {
	client := newVertexTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeSSE(w,
			textDelta("Hel"),
			`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
		)
	})

	deltas, err := collect(client.ChatStream(context.Background(), "", nil))
	assert.Equal(t, []string{"Hel"}, deltas)
	assert.ErrorContains(t, err, "overloaded_error: Overloaded")
}

func TestVertexAnthropicChatStream_HTTPError(t *testing.T) {
	client := newVertexTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	deltas, err := collect(client.ChatStream(context.Background(), "", nil))
	assert.Empty(t, deltas)
	assert.ErrorContains(t, err, "vertex error 403")
}

func TestVertexAnthropicChatStream_ConsumerStops(t *testing.T) {
	client := newVertexTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeSSE(w, textDelta("a"), textDelta("b"), textDelta("c"))
	})

	var got []string
	for delta, err := range client.ChatStream(context.Background(), "", nil) {
		require.NoError(t, err)
		got = append(got, delta)
		break
	}
	assert.Equal(t, []string{"a"}, got)
}
