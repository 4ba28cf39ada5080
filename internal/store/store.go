package store

import (
	"errors"

	"chatrelay/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrBlankUsername = errors.New("username is required")
)

type Store interface {
	// User operations
	CreateUser(user *models.User) error
	GetUserByUsername(username string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id int) (*models.User, error)
	ListUsers() ([]models.User, error)
	GetOrCreateUserByName(username string) (*models.User, error)
	SetOnline(userID int, online bool) error

	// Chat operations
	CreateChat(participants []int, isGroup bool, groupName string) (*models.Chat, error)
	GetOrCreateDirectChat(userA, userB int) (*models.Chat, bool, error)
	GetChatByID(chatID int) (*models.Chat, error)
	GetUserChats(userID int) ([]models.Chat, error)
	GetChatParticipants(chatID int) ([]models.User, error)
	IsParticipant(chatID, userID int) (bool, error)

	// Message operations
	SaveMessage(chatID, senderID int, content, messageType string) (*models.Message, error)
	GetMessageByID(messageID int) (*models.Message, error)
	GetChatMessages(chatID int) ([]models.Message, error)
	MarkDelivered(messageID int) (bool, error)
	MarkChatDelivered(chatID int) ([]int, error)
	AddRead(messageID, userID int) (bool, error)
	RecomputeStatus(messageID int) (string, error)
}
