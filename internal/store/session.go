package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateSession records a refresh-token session for a user.
func (db *DB) CreateSession(userID, refreshToken string, expiresAt time.Time) (string, error) {
	id := uuid.New().String()
	_, err := db.Exec(`
		INSERT INTO sessions (id, user_id, refresh_token, created_at, expires_at, is_active)
		VALUES ($1, $2, $3, NOW(), $4, TRUE)`,
		id, userID, refreshToken, expiresAt)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// GetSessionByRefreshToken returns the active, unexpired session for a
// refresh token, or nil.
func (db *DB) GetSessionByRefreshToken(refreshToken string) (*Session, error) {
	var s Session
	err := db.QueryRow(`
		SELECT id, user_id, refresh_token, created_at, expires_at, is_active
		FROM sessions
		WHERE refresh_token = $1 AND is_active AND expires_at > NOW()`,
		refreshToken).
		Scan(&s.ID, &s.UserID, &s.RefreshToken, &s.CreatedAt, &s.ExpiresAt, &s.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeactivateUserSessions invalidates every session for a user (logout).
func (db *DB) DeactivateUserSessions(userID string) error {
	_, err := db.Exec(`UPDATE sessions SET is_active = FALSE WHERE user_id = $1`, userID)
	return err
}

// DeleteExpiredSessions prunes sessions past their expiry.
func (db *DB) DeleteExpiredSessions() (int64, error) {
	res, err := db.Exec(`DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
