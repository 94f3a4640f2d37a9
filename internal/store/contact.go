package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ListContacts returns every contact owned by the user, sorted by name.
func (db *DB) ListContacts(userID string) ([]Contact, error) {
	rows, err := db.Query(`
		SELECT id, user_id, name, COALESCE(email, ''), created_at, is_favorite, last_accessed_at
		FROM contacts
		WHERE user_id = $1
		ORDER BY name, id`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var contacts []Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

// GetContact returns one of the user's contacts by id, or nil.
func (db *DB) GetContact(userID, contactID string) (*Contact, error) {
	row := db.QueryRow(`
		SELECT id, user_id, name, COALESCE(email, ''), created_at, is_favorite, last_accessed_at
		FROM contacts
		WHERE user_id = $1 AND id = $2`, userID, contactID)
	c, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateContact inserts a contact for the user and returns it.
func (db *DB) CreateContact(userID, name, email string) (*Contact, error) {
	id := uuid.New().String()
	c := Contact{ID: id, UserID: userID, Name: name, Email: email}
	err := db.QueryRow(`
		INSERT INTO contacts (id, user_id, name, email, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NOW())
		RETURNING created_at`,
		id, userID, name, email).
		Scan(&c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	return &c, nil
}

// UpdateContact changes a contact's descriptive fields. Returns nil when the
// user has no such contact.
func (db *DB) UpdateContact(userID, contactID, name, email string) (*Contact, error) {
	row := db.QueryRow(`
		UPDATE contacts SET name = $3, email = NULLIF($4, '')
		WHERE user_id = $1 AND id = $2
		RETURNING id, user_id, name, COALESCE(email, ''), created_at, is_favorite, last_accessed_at`,
		userID, contactID, name, email)
	c, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// TouchContactAccess stamps the contact's last access time. Reports whether a
// row was updated.
func (db *DB) TouchContactAccess(userID, contactID string, at time.Time) (bool, error) {
	res, err := db.Exec(`
		UPDATE contacts SET last_accessed_at = $3
		WHERE user_id = $1 AND id = $2`, userID, contactID, at)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// SetFavorite sets the favorite flag on a contact. Reports whether a row was
// updated.
func (db *DB) SetFavorite(userID, contactID string, favorite bool) (bool, error) {
	res, err := db.Exec(`
		UPDATE contacts SET is_favorite = $3
		WHERE user_id = $1 AND id = $2`, userID, contactID, favorite)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ClearRecents nulls last_accessed_at for every contact of the user.
func (db *DB) ClearRecents(userID string) error {
	_, err := db.Exec(`UPDATE contacts SET last_accessed_at = NULL WHERE user_id = $1`, userID)
	return err
}

// ClearFavorites unsets is_favorite for every contact of the user.
func (db *DB) ClearFavorites(userID string) error {
	_, err := db.Exec(`UPDATE contacts SET is_favorite = FALSE WHERE user_id = $1`, userID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (*Contact, error) {
	var (
		c        Contact
		accessed sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.CreatedAt, &c.IsFavorite, &accessed); err != nil {
		return nil, err
	}
	if accessed.Valid {
		t := accessed.Time
		c.LastAccessedAt = &t
	}
	return &c, nil
}
