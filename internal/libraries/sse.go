package libraries

import (
	"bufio"
	"encoding/json"
	"fmt"
)

const (
	SSEEventDone  = "done"
	SSEEventError = "error"
)

// SSEWriter frames JSON payloads as text/event-stream events and flushes
// after every event. A flush error means the client is gone.
type SSEWriter struct {
	w *bufio.Writer
}

func NewSSEWriter(w *bufio.Writer) *SSEWriter {
	return &SSEWriter{w: w}
}

// Event writes one event; an empty name produces an unnamed "message" event.
func (s *SSEWriter) Event(name string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal sse payload: %w", err)
	}
	if name != "" {
		if _, err := fmt.Fprintf(s.w, "event: %s\n", name); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *SSEWriter) Delta(text string) error {
	return s.Event("", map[string]string{"delta": text})
}
