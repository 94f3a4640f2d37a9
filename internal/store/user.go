package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateUser inserts a new user and returns its id.
func (db *DB) CreateUser(username, email, passwordHash, photoURL string) (string, error) {
	id := uuid.New().String()
	_, err := db.Exec(`
		INSERT INTO users (id, username, email, password, photo_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NOW(), NOW())`,
		id, username, email, passwordHash, photoURL)
	if err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByUsername returns a user by username, or nil if unknown.
func (db *DB) GetUserByUsername(username string) (*User, error) {
	return db.getUser(`WHERE username = $1`, username)
}

// GetUserByEmail returns a user by email, or nil if unknown.
func (db *DB) GetUserByEmail(email string) (*User, error) {
	return db.getUser(`WHERE email = $1`, email)
}

// GetUserByID returns a user by id, or nil if unknown.
func (db *DB) GetUserByID(id string) (*User, error) {
	return db.getUser(`WHERE id = $1`, id)
}

func (db *DB) getUser(where string, arg any) (*User, error) {
	var (
		u        User
		photoURL sql.NullString
		lastSeen sql.NullTime
	)
	err := db.QueryRow(`
		SELECT id, username, email, password, photo_url, created_at, updated_at, last_login
		FROM users `+where, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &photoURL, &u.CreatedAt, &u.UpdatedAt, &lastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.PhotoURL = photoURL.String
	if lastSeen.Valid {
		t := lastSeen.Time
		u.LastLogin = &t
	}
	return &u, nil
}

// TouchLastLogin stamps the user's last login time.
func (db *DB) TouchLastLogin(userID string, at time.Time) error {
	_, err := db.Exec(`UPDATE users SET last_login = $2, updated_at = NOW() WHERE id = $1`, userID, at)
	return err
}
