package llmHandlers

import (
	"context"
	"iter"
	"jarvis-backend/internal/models"
)

// Message is one prior or new turn sent to the model. ImageURLs turn the
// message into a vision request.
type Message struct {
	Role      models.Role
	Content   string
	ImageURLs []string
}

// Client is the completion gateway.
//
// ChatStream returns a lazy, single-use sequence of text deltas which
// concatenate to the full reply. Stopping the iteration early cancels the
// upstream request. A non-nil error is always the last element.
type Client interface {
	Chat(ctx context.Context, systemMessage string, messages []Message) (string, error)
	ChatStream(ctx context.Context, systemMessage string, messages []Message) iter.Seq2[string, error]
}
