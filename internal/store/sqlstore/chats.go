package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"chatrelay/internal/models"
	"chatrelay/internal/store"
)

// pairKey is the stable identity of a two-party chat: the sorted participant
// pair. A partial unique index on it guarantees at most one direct chat per
// pair even when two creates race.
func pairKey(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

func (s *SQLStore) CreateChat(participants []int, isGroup bool, groupName string) (*models.Chat, error) {
	participants = lo.Uniq(participants)

	key := ""
	if !isGroup && len(participants) == 2 {
		key = pairKey(participants[0], participants[1])
	}

	// Chat timestamps come from Go rather than CURRENT_TIMESTAMP so activity
	// ordering keeps sub-second precision.
	now := time.Now().UTC()
	var chatID int
	query := s.rebind("INSERT INTO chats (is_group, group_name, pair_key, created_at, updated_at) VALUES (?, ?, ?, ?, ?) RETURNING id")
	if err := s.db.QueryRow(query, isGroup, groupName, key, now, now).Scan(&chatID); err != nil {
		return nil, err
	}

	for _, userID := range participants {
		query := s.rebind("INSERT INTO participants (chat_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING")
		if _, err := s.db.Exec(query, chatID, userID); err != nil {
			return nil, err
		}
	}

	return s.GetChatByID(chatID)
}

// GetOrCreateDirectChat returns the existing two-party chat between the given
// users, creating it when absent. The second return value reports whether a
// chat was created. If a concurrent create wins the race the unique pair
// index rejects ours and the winner is returned instead.
func (s *SQLStore) GetOrCreateDirectChat(userA, userB int) (*models.Chat, bool, error) {
	key := pairKey(userA, userB)

	chat, err := s.getChatByPairKey(key)
	if err == nil {
		return chat, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	chat, err = s.CreateChat([]int{userA, userB}, false, "")
	if err != nil {
		if existing, lookupErr := s.getChatByPairKey(key); lookupErr == nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	return chat, true, nil
}

func (s *SQLStore) getChatByPairKey(key string) (*models.Chat, error) {
	query := s.rebind("SELECT id FROM chats WHERE pair_key = ? AND is_group = FALSE")
	var chatID int
	err := s.db.QueryRow(query, key).Scan(&chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.GetChatByID(chatID)
}

func (s *SQLStore) GetChatByID(chatID int) (*models.Chat, error) {
	query := s.rebind(`
		SELECT id, is_group, group_name, group_avatar, last_message_id, created_at, updated_at
		FROM chats WHERE id = ?
	`)

	var chat models.Chat
	var lastMessageID sql.NullInt64
	err := s.db.QueryRow(query, chatID).Scan(&chat.ID, &chat.IsGroup, &chat.GroupName,
		&chat.GroupAvatar, &lastMessageID, &chat.CreatedAt, &chat.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if chat.Participants, err = s.GetChatParticipants(chat.ID); err != nil {
		return nil, err
	}
	if lastMessageID.Valid {
		last, err := s.GetMessageByID(int(lastMessageID.Int64))
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		chat.LastMessage = last
	}
	return &chat, nil
}

func (s *SQLStore) GetUserChats(userID int) ([]models.Chat, error) {
	query := s.rebind(`
		SELECT c.id
		FROM chats c
		JOIN participants p ON c.id = p.chat_id
		WHERE p.user_id = ?
		ORDER BY c.updated_at DESC, c.id DESC
	`)
	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var chats []models.Chat
	for _, id := range ids {
		chat, err := s.GetChatByID(id)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *chat)
	}
	return chats, nil
}

func (s *SQLStore) GetChatParticipants(chatID int) ([]models.User, error) {
	query := s.rebind(`
		SELECT u.id, u.username, u.email, u.avatar, u.online, u.last_seen
		FROM users u
		JOIN participants p ON u.id = p.user_id
		WHERE p.chat_id = ?
		ORDER BY u.id ASC
	`)

	rows, err := s.db.Query(query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Avatar, &u.Online, &u.LastSeen); err != nil {
			return nil, err
		}
		u.Email = maskEmail(u.Email)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLStore) IsParticipant(chatID, userID int) (bool, error) {
	var exists bool
	query := s.rebind("SELECT EXISTS(SELECT 1 FROM participants WHERE chat_id = ? AND user_id = ?)")
	err := s.db.QueryRow(query, chatID, userID).Scan(&exists)
	return exists, err
}
