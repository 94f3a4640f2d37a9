package store

import (
	"database/sql"

	"github.com/google/uuid"
)

// CreateApprovedEmail stores a draft email the user accepted.
func (db *DB) CreateApprovedEmail(userID, contactID, relationshipRecording, contentRecording, body string) (*ApprovedEmail, error) {
	id := uuid.New().String()
	var e ApprovedEmail
	err := db.QueryRow(`
		INSERT INTO approved_emails
			(id, user_id, contact_id, relationship_recording, content_recording, email_content, created_at)
		VALUES ($1, $2, $3, NULLIF($4, '')::uuid, NULLIF($5, '')::uuid, $6, NOW())
		RETURNING id, user_id, contact_id,
			COALESCE(relationship_recording::text, ''), COALESCE(content_recording::text, ''),
			email_content, created_at`,
		id, userID, contactID, relationshipRecording, contentRecording, body).
		Scan(&e.ID, &e.UserID, &e.ContactID, &e.RelationshipRecording, &e.ContentRecording,
			&e.EmailContent, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListApprovedEmails returns the user's approved emails, newest first.
func (db *DB) ListApprovedEmails(userID string) ([]ApprovedEmail, error) {
	rows, err := db.Query(`
		SELECT id, user_id, contact_id,
			COALESCE(relationship_recording::text, ''), COALESCE(content_recording::text, ''),
			email_content, created_at
		FROM approved_emails
		WHERE user_id = $1
		ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var emails []ApprovedEmail
	for rows.Next() {
		var e ApprovedEmail
		if err := rows.Scan(&e.ID, &e.UserID, &e.ContactID, &e.RelationshipRecording,
			&e.ContentRecording, &e.EmailContent, &e.CreatedAt); err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

// GetApprovedEmail returns one approved email by id, or nil.
func (db *DB) GetApprovedEmail(userID, emailID string) (*ApprovedEmail, error) {
	var e ApprovedEmail
	err := db.QueryRow(`
		SELECT id, user_id, contact_id,
			COALESCE(relationship_recording::text, ''), COALESCE(content_recording::text, ''),
			email_content, created_at
		FROM approved_emails
		WHERE user_id = $1 AND id = $2`, userID, emailID).
		Scan(&e.ID, &e.UserID, &e.ContactID, &e.RelationshipRecording, &e.ContentRecording,
			&e.EmailContent, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
