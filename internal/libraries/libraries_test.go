package libraries

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWebSocketMessage_Chat(t *testing.T) {
	msg, err := parseWebSocketMessage([]byte(`{"type":"chat_message","data":{"chat_id":7,"message":"hi"}}`))
	require.NoError(t, err)

	assert.Equal(t, WebSocketMessageTypeMessage, msg.Type)
	payload, ok := msg.Data.(*ChatMessagePayload)
	require.True(t, ok)
	assert.Equal(t, uint(7), payload.ChatID)
	assert.Equal(t, "hi", payload.Message)
}

func TestParseWebSocketMessage_Ping(t *testing.T) {
	msg, err := parseWebSocketMessage([]byte(`{"type":"ping"}`))
	require.NoError(t, err)
	assert.Equal(t, WebSocketMessageTypePing, msg.Type)
	assert.Nil(t, msg.Data)
}

func TestParseWebSocketMessage_Invalid(t *testing.T) {
	_, err := parseWebSocketMessage([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestHub_SendAfterClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	client := NewClient(context.Background(), 1, nil)
	hub.Register(client)
	assert.Equal(t, 1, hub.ClientCount())

	require.NoError(t, SendEventType(hub, client, WebSocketMessageTypeChatStarting))
	assert.JSONEq(t, `{"type":"chat_starting"}`, string(<-client.Send))

	hub.Unregister(client)
	assert.Equal(t, 0, hub.ClientCount())
	assert.ErrorIs(t, SendErrorMessage(hub, client, "late"), ErrClientGone)
	assert.Error(t, client.Context().Err())
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := NewClient(context.Background(), 1, nil)
	hub.Register(client)
	cancel()
	<-done

	assert.Error(t, client.Context().Err())
}

func TestHub_RegistryCallsReturnAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	finished := make(chan struct{})
	late := NewClient(context.Background(), 2, nil)
	go func() {
		hub.Register(late)
		hub.Unregister(late)
		_ = hub.ClientCount()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("hub registry calls blocked after shutdown")
	}
	assert.Error(t, late.Context().Err())
	assert.Equal(t, 0, hub.ClientCount())
}

func TestSSEWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewSSEWriter(bufio.NewWriter(&buf))

	require.NoError(t, w.Delta("Hel"))
	require.NoError(t, w.Delta("lo!"))
	require.NoError(t, w.Event(SSEEventDone, map[string]int{"id": 2}))

	assert.Equal(t, strings.Join([]string{
		`data: {"delta":"Hel"}`, ``,
		`data: {"delta":"lo!"}`, ``,
		`event: done`, `data: {"id":2}`, ``, ``,
	}, "\n"), buf.String())
}

func TestObjectPath(t *testing.T) {
	p := ObjectPath(FolderPhotos, 42, "Cat.PNG", "image/png")
	assert.True(t, strings.HasPrefix(p, "photos/42/"), p)
	assert.True(t, strings.HasSuffix(p, ".png"), p)

	other := ObjectPath(FolderPhotos, 42, "Cat.PNG", "image/png")
	assert.NotEqual(t, p, other)
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://storage.googleapis.com/jarvis/audios/1/a.mp3", PublicURL("jarvis", "/audios/1/a.mp3"))
}

func TestDecodeCredentials(t *testing.T) {
	_, err := DecodeCredentials("")
	assert.Error(t, err)

	_, err = DecodeCredentials("%%%")
	assert.Error(t, err)

	decoded, err := DecodeCredentials("e30=")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(decoded))
}
