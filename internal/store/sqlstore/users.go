package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"chatrelay/internal/models"
	"chatrelay/internal/store"
)

const userColumns = "id, username, email, password, avatar, online, last_seen, created_at, updated_at"

func scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.Avatar,
		&user.Online, &user.LastSeen, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SQLStore) CreateUser(user *models.User) error {
	query := s.rebind("INSERT INTO users (username, email, password, avatar) VALUES (?, ?, ?, ?) RETURNING id")
	return s.db.QueryRow(query, user.Username, user.Email, user.Password, user.Avatar).Scan(&user.ID)
}

func (s *SQLStore) GetUserByUsername(username string) (*models.User, error) {
	query := s.rebind("SELECT " + userColumns + " FROM users WHERE username = ?")
	return scanUser(s.db.QueryRow(query, username))
}

func (s *SQLStore) GetUserByEmail(email string) (*models.User, error) {
	query := s.rebind("SELECT " + userColumns + " FROM users WHERE email = ?")
	return scanUser(s.db.QueryRow(query, email))
}

func (s *SQLStore) GetUserByID(id int) (*models.User, error) {
	query := s.rebind("SELECT " + userColumns + " FROM users WHERE id = ?")
	return scanUser(s.db.QueryRow(query, id))
}

func (s *SQLStore) ListUsers() ([]models.User, error) {
	rows, err := s.db.Query("SELECT " + userColumns + " FROM users ORDER BY username ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.Avatar,
			&user.Online, &user.LastSeen, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		user.Password = ""
		user.Email = maskEmail(user.Email)
		users = append(users, user)
	}
	return users, rows.Err()
}

// GetOrCreateUserByName implements quick login without a password. The name is
// normalized (trimmed, lowercased) before lookup. Missing users get a
// placeholder credential and a synthesized unique email so the sparse email
// index stays satisfied.
func (s *SQLStore) GetOrCreateUserByName(username string) (*models.User, error) {
	clean := strings.ToLower(strings.TrimSpace(username))
	if clean == "" {
		return nil, store.ErrBlankUsername
	}

	user, err := s.GetUserByUsername(clean)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	email := fmt.Sprintf("%s_%d@chat.local", strings.ReplaceAll(clean, " ", "_"), time.Now().UnixMilli())
	user = &models.User{
		Username: clean,
		Email:    email,
		Password: "auto-generated",
	}
	if err := s.CreateUser(user); err != nil {
		// Lost a race with a concurrent create for the same name.
		if existing, lookupErr := s.GetUserByUsername(clean); lookupErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return s.GetUserByID(user.ID)
}

func (s *SQLStore) SetOnline(userID int, online bool) error {
	query := s.rebind("UPDATE users SET online = ?, last_seen = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = ?")
	_, err := s.db.Exec(query, online, userID)
	return err
}
