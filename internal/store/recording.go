package store

import (
	"database/sql"

	"github.com/google/uuid"
)

// CreateRecording inserts an uploaded-audio record and returns it.
func (db *DB) CreateRecording(userID, contactID, kind, filePath, mimeType string) (*Recording, error) {
	id := uuid.New().String()
	var r Recording
	err := db.QueryRow(`
		INSERT INTO recordings (id, user_id, contact_id, kind, file_path, mime_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, user_id, contact_id, kind, file_path, mime_type, created_at`,
		id, userID, contactID, kind, filePath, mimeType).
		Scan(&r.ID, &r.UserID, &r.ContactID, &r.Kind, &r.FilePath, &r.MimeType, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRecording returns one of the user's recordings by id, or nil.
func (db *DB) GetRecording(userID, recordingID string) (*Recording, error) {
	var r Recording
	err := db.QueryRow(`
		SELECT id, user_id, contact_id, kind, file_path, mime_type, created_at
		FROM recordings
		WHERE user_id = $1 AND id = $2`, userID, recordingID).
		Scan(&r.ID, &r.UserID, &r.ContactID, &r.Kind, &r.FilePath, &r.MimeType, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
