package ws

import "encoding/json"

// Event is the wire envelope for both directions of the relay connection.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client-to-server event types.
const (
	EventUserOnline  = "userOnline"
	EventUserOffline = "userOffline"
	EventJoinChat    = "joinChat"
	EventSendMessage = "sendMessage"
	EventMarkAsRead  = "markAsRead"
	EventTyping      = "typing"
	EventStopTyping  = "stopTyping"
)

// Server-to-client event types.
const (
	EventReceiveMessage    = "receiveMessage"
	EventStatusUpdate      = "messageStatusUpdate"
	EventUserStatusChanged = "userStatusChanged"
	EventUserTyping        = "userTyping"
	EventUserStoppedTyping = "userStoppedTyping"
	EventError             = "error"
)

type UserPayload struct {
	UserID int `json:"user_id"`
}

type ChatPayload struct {
	ChatID int `json:"chat_id"`
}

type SendMessagePayload struct {
	ChatID     int    `json:"chat_id"`
	SenderID   int    `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
}

type MarkAsReadPayload struct {
	MessageID int `json:"message_id"`
	UserID    int `json:"user_id"`
	ChatID    int `json:"chat_id"`
}

type TypingPayload struct {
	ChatID   int    `json:"chat_id"`
	UserID   int    `json:"user_id"`
	Username string `json:"username,omitempty"`
}

type StatusUpdatePayload struct {
	MessageID int    `json:"message_id"`
	Status    string `json:"status"`
}

type UserStatusPayload struct {
	UserID int  `json:"user_id"`
	Online bool `json:"online"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func newEvent(eventType string, payload interface{}) Event {
	data, _ := json.Marshal(payload)
	return Event{Type: eventType, Data: data}
}
