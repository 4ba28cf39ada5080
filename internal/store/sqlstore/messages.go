package sqlstore

import (
	"database/sql"
	"errors"
	"time"

	"chatrelay/internal/models"
	"chatrelay/internal/store"
)

func (s *SQLStore) SaveMessage(chatID, senderID int, content, messageType string) (*models.Message, error) {
	if messageType == "" {
		messageType = models.TypeText
	}

	var messageID int
	query := s.rebind("INSERT INTO messages (chat_id, sender_id, content, message_type, status) VALUES (?, ?, ?, ?, ?) RETURNING id")
	err := s.db.QueryRow(query, chatID, senderID, content, messageType, models.StatusSent).Scan(&messageID)
	if err != nil {
		return nil, err
	}

	// The chat surfaces its most recent message and sorts by activity.
	query = s.rebind("UPDATE chats SET last_message_id = ?, updated_at = ? WHERE id = ?")
	if _, err := s.db.Exec(query, messageID, time.Now().UTC(), chatID); err != nil {
		return nil, err
	}

	return s.GetMessageByID(messageID)
}

const messageColumns = `m.id, m.chat_id, m.sender_id, u.username, m.content, m.message_type, m.status, m.created_at, m.updated_at`

func (s *SQLStore) GetMessageByID(messageID int) (*models.Message, error) {
	query := s.rebind(`
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.id = ?
	`)

	var m models.Message
	err := s.db.QueryRow(query, messageID).Scan(&m.ID, &m.ChatID, &m.SenderID, &m.SenderName,
		&m.Content, &m.MessageType, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if m.ReadBy, err = s.getReadBy(m.ID); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *SQLStore) GetChatMessages(chatID int) ([]models.Message, error) {
	query := s.rebind(`
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.chat_id = ?
		ORDER BY m.created_at ASC, m.id ASC
	`)
	rows, err := s.db.Query(query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.SenderName,
			&m.Content, &m.MessageType, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range messages {
		if messages[i].ReadBy, err = s.getReadBy(messages[i].ID); err != nil {
			return nil, err
		}
	}
	return messages, nil
}

func (s *SQLStore) getReadBy(messageID int) ([]int, error) {
	query := s.rebind("SELECT user_id FROM message_reads WHERE message_id = ? ORDER BY user_id ASC")
	rows, err := s.db.Query(query, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	readBy := []int{}
	for rows.Next() {
		var userID int
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		readBy = append(readBy, userID)
	}
	return readBy, rows.Err()
}

// MarkDelivered advances a sent message to delivered. It reports whether the
// message actually moved; delivered and read messages are left alone so the
// status never goes backward.
func (s *SQLStore) MarkDelivered(messageID int) (bool, error) {
	query := s.rebind("UPDATE messages SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?")
	result, err := s.db.Exec(query, models.StatusDelivered, messageID, models.StatusSent)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	return rows > 0, err
}

// MarkChatDelivered advances every sent message in the chat and returns the
// ids that moved, so callers can broadcast one status update per message.
func (s *SQLStore) MarkChatDelivered(chatID int) ([]int, error) {
	query := s.rebind("SELECT id FROM messages WHERE chat_id = ? AND status = ?")
	rows, err := s.db.Query(query, chatID, models.StatusSent)
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

	for _, id := range ids {
		if _, err := s.MarkDelivered(id); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// AddRead records that a user has read a message. The read set is add-only;
// re-reading is a no-op and reports false.
func (s *SQLStore) AddRead(messageID, userID int) (bool, error) {
	query := s.rebind("INSERT INTO message_reads (message_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING")
	result, err := s.db.Exec(query, messageID, userID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	return rows > 0, err
}

// RecomputeStatus derives the aggregate status from the read set: read once
// every participant other than the sender has read the message, otherwise
// delivered. A message already marked read stays read.
func (s *SQLStore) RecomputeStatus(messageID int) (string, error) {
	msg, err := s.GetMessageByID(messageID)
	if err != nil {
		return "", err
	}
	if msg.Status == models.StatusRead {
		return models.StatusRead, nil
	}

	query := s.rebind(`
		SELECT COUNT(*)
		FROM participants p
		WHERE p.chat_id = ?
		  AND p.user_id <> ?
		  AND p.user_id NOT IN (SELECT user_id FROM message_reads WHERE message_id = ?)
	`)
	var unread int
	if err := s.db.QueryRow(query, msg.ChatID, msg.SenderID, messageID).Scan(&unread); err != nil {
		return "", err
	}

	status := models.StatusDelivered
	if unread == 0 {
		status = models.StatusRead
	}

	query = s.rebind("UPDATE messages SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status <> ?")
	if _, err := s.db.Exec(query, status, messageID, models.StatusRead); err != nil {
		return "", err
	}
	return status, nil
}
