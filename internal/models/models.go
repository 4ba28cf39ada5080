package models

import "time"

// Message delivery status. Transitions only ever move forward:
// sent -> delivered -> read.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// Message content types. Only text is produced by current flows.
const (
	TypeText  = "text"
	TypeImage = "image"
	TypeFile  = "file"
)

type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Password  string    `json:"-"`
	Avatar    string    `json:"avatar,omitempty"`
	Online    bool      `json:"online"`
	LastSeen  time.Time `json:"last_seen"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Chat struct {
	ID          int    `json:"id"`
	IsGroup     bool   `json:"is_group"`
	GroupName   string `json:"group_name,omitempty"`
	GroupAvatar string `json:"group_avatar,omitempty"`

	Participants []User   `json:"participants,omitempty"`
	LastMessage  *Message `json:"last_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID          int    `json:"id"`
	ChatID      int    `json:"chat_id"`
	SenderID    int    `json:"sender_id"`
	SenderName  string `json:"sender_name,omitempty"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	Status      string `json:"status"`
	ReadBy      []int  `json:"read_by"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
