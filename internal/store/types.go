package store

import "time"

// User is a registered account.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	PhotoURL     string     `json:"photo_url,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// Session is a refresh-token session.
type Session struct {
	ID           string
	UserID       string
	RefreshToken string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	IsActive     bool
}

// Contact is a CRM contact row with the per-user interaction annotations.
type Contact struct {
	ID             string     `json:"id"`
	UserID         string     `json:"-"`
	Name           string     `json:"name"`
	Email          string     `json:"email,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	IsFavorite     bool       `json:"is_favorite"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}

// Recording is one uploaded audio clip tied to a contact.
type Recording struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	ContactID string    `json:"contact_id"`
	Kind      string    `json:"kind"` // relationship or content
	FilePath  string    `json:"-"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}

// Recording kinds.
const (
	RecordingKindRelationship = "relationship"
	RecordingKindContent      = "content"
)

// ApprovedEmail is a generated draft the user accepted.
type ApprovedEmail struct {
	ID                    string    `json:"id"`
	UserID                string    `json:"-"`
	ContactID             string    `json:"contact_id"`
	RelationshipRecording string    `json:"relationship_recording,omitempty"`
	ContentRecording      string    `json:"content_recording,omitempty"`
	EmailContent          string    `json:"email_content"`
	CreatedAt             time.Time `json:"created_at"`
}
