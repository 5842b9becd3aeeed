package libraries

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// WebSocketMessage represents the standard structure for all websocket messages
type WebSocketMessageType string

const (
	WebSocketMessageTypePing          WebSocketMessageType = "ping"
	WebSocketMessageTypePong          WebSocketMessageType = "pong"
	WebSocketMessageTypeError         WebSocketMessageType = "error"
	WebSocketMessageTypeMessage       WebSocketMessageType = "chat_message"
	WebSocketMessageTypeChatResponse  WebSocketMessageType = "chat_response"
	WebSocketMessageTypeChatStarting  WebSocketMessageType = "chat_starting"
	WebSocketMessageTypeChatCompleted WebSocketMessageType = "chat_completed"
)

var ErrClientGone = errors.New("websocket client disconnected")

type Client struct {
	ID     string
	UserID uint
	Conn   *websocket.Conn
	Send   chan []byte

	// ctx is cancelled when the connection goes away; turns started from this
	// client run under it so a disconnect aborts the upstream call.
	ctx    context.Context
	cancel context.CancelFunc
}

func NewClient(parent context.Context, userID uint, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(parent)
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *Client) Context() context.Context { return c.ctx }

func (c *Client) Close() { c.cancel() }

type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	count      chan int
	// done is closed when Run returns
	done chan struct{}
}

type WebSocketMessage struct {
	Type WebSocketMessageType `json:"type"`
	Data interface{}          `json:"data,omitempty"`
}

type ChatMessagePayload struct {
	ChatID  uint   `json:"chat_id,omitempty"`
	Message string `json:"message"`
}

type ChatMessageResponsePayload struct {
	ChatID         uint        `json:"chat_id"`
	Message        string      `json:"message"`
	HumanMessageID uint        `json:"human_message_id,omitempty"`
	AiMessageID    uint        `json:"ai_message_id,omitempty"`
	AudioSource    string      `json:"audio_source,omitempty"`
	Data           interface{} `json:"data,omitempty"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan int),
		done:       make(chan struct{}),
	}
}

// Run owns the client registry until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.clients[client.ID] = client
		case client := <-h.unregister:
			if _, exists := h.clients[client.ID]; exists {
				delete(h.clients, client.ID)
				client.Close()
			}
		case h.count <- len(h.clients):
		case <-ctx.Done():
			for id, client := range h.clients {
				client.Close()
				delete(h.clients, id)
			}
			return
		}
	}
}

// Register adds the client to the registry. Once the hub has stopped the
// client is closed instead.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes and closes the client. It returns immediately after shutdown.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.Close()
	}
}

// ClientCount reports the number of registered clients. It blocks until Run is
// serving and reports zero after shutdown.
func (h *Hub) ClientCount() int {
	select {
	case n := <-h.count:
		return n
	case <-h.done:
		return 0
	}
}

// SendMessage queues a frame for the client, or fails once the client is gone.
func (h *Hub) SendMessage(client *Client, message []byte) error {
	select {
	case <-client.ctx.Done():
		return ErrClientGone
	default:
	}
	select {
	case client.Send <- message:
		return nil
	case <-client.ctx.Done():
		return ErrClientGone
	}
}

func sendFrame(hub *Hub, client *Client, frame WebSocketMessage) error {
	b, err := json.Marshal(frame)
	if err != nil {
		log.Printf("[WS] failed to marshal %s frame: %v", frame.Type, err)
		return err
	}
	return hub.SendMessage(client, b)
}

// SendErrorMessage sends a standardized error message to a client
func SendErrorMessage(hub *Hub, client *Client, errorMsg string) error {
	return sendFrame(hub, client, WebSocketMessage{
		Type: WebSocketMessageTypeError,
		Data: &ChatMessagePayload{Message: errorMsg},
	})
}

func sendPongMessage(hub *Hub, client *Client) error {
	return sendFrame(hub, client, WebSocketMessage{Type: WebSocketMessageTypePong})
}

// SendEventType sends a frame carrying only a type
func SendEventType(hub *Hub, client *Client, eventType WebSocketMessageType) error {
	return sendFrame(hub, client, WebSocketMessage{Type: eventType})
}

// SendChatMessageResponse sends a chat payload (delta or completion) to a client
func SendChatMessageResponse(hub *Hub, client *Client, eventType WebSocketMessageType, message *ChatMessageResponsePayload) error {
	return sendFrame(hub, client, WebSocketMessage{Type: eventType, Data: message})
}

// parseWebSocketMessage parses incoming websocket message and returns the message structure
func parseWebSocketMessage(msg []byte) (*WebSocketMessage, error) {
	var rawMessage struct {
		Type WebSocketMessageType `json:"type"`
		Data json.RawMessage      `json:"data,omitempty"`
	}
	if err := json.Unmarshal(msg, &rawMessage); err != nil {
		return nil, err
	}

	message := &WebSocketMessage{
		Type: rawMessage.Type,
	}

	if len(rawMessage.Data) > 0 {
		switch rawMessage.Type {
		case WebSocketMessageTypeMessage:
			var chatPayload ChatMessagePayload
			if err := json.Unmarshal(rawMessage.Data, &chatPayload); err != nil {
				return nil, err
			}
			message.Data = &chatPayload
		default:
			var data interface{}
			if err := json.Unmarshal(rawMessage.Data, &data); err != nil {
				return nil, err
			}
			message.Data = data
		}
	}

	return message, nil
}

// ChatMessageProcessor runs a streamed turn for a chat message received over the socket.
type ChatMessageProcessor interface {
	ProcessChatMessage(ctx context.Context, hub *Hub, client *Client, message *ChatMessagePayload)
}

// TokenValidator resolves an access token to a user id.
type TokenValidator func(token string) (uint, error)

func WebSocketHandler(hub *Hub, processor ChatMessageProcessor, validate TokenValidator) fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("user_id").(uint)
		client := NewClient(context.Background(), userID, conn)

		hub.Register(client)
		defer func() {
			hub.Unregister(client)
			conn.Close()
		}()

		// Write loop
		go func() {
			for {
				select {
				case msg := <-client.Send:
					if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
						log.Println("[WS] write error:", err)
						client.Close()
						return
					}
				case <-client.Context().Done():
					return
				}
			}
		}()

		// Read loop
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				log.Println("[WS] read error:", err)
				break
			}

			message, err := parseWebSocketMessage(msg)
			if err != nil {
				log.Println("[WS] failed to parse JSON:", err)
				SendErrorMessage(hub, client, "Invalid JSON format")
				continue
			}

			switch message.Type {
			case WebSocketMessageTypePing:
				sendPongMessage(hub, client)
			case WebSocketMessageTypeMessage:
				chatPayload, ok := message.Data.(*ChatMessagePayload)
				if !ok || chatPayload == nil {
					SendErrorMessage(hub, client, "Chat message payload is required")
					continue
				}
				if chatPayload.ChatID == 0 {
					SendErrorMessage(hub, client, "Chat ID is required")
					continue
				}
				go processor.ProcessChatMessage(client.Context(), hub, client, chatPayload)
			default:
				SendErrorMessage(hub, client, "Type is invalid or not provided")
			}
		}
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		token := c.Query("token")
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "token required"})
		}
		userID, err := validate(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		c.Locals("user_id", userID)
		return upgrade(c)
	}
}
