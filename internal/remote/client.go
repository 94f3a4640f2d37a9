package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voxcrm/internal/syncer"
)

// Errors callers branch on. Anything else is a transport failure.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrMalformedResponse = errors.New("malformed response")
)

// Client talks to a voxcrmd server. It implements syncer.Remote plus the auth
// and draft endpoints the CLI needs. Safe for concurrent use once the token
// is set.
type Client struct {
	baseURL string
	http    *http.Client
	uploads *http.Client // no fixed timeout; deadlines come from ctx
	token   string
}

// User is the authenticated account as returned by the server.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// Credentials holds the token pair returned by login/refresh.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
}

// Draft is a generated email draft for a contact.
type Draft struct {
	ID        string    `json:"id"`
	ContactID string    `json:"contact_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// ApprovedEmail is a draft the user accepted, as stored server-side.
type ApprovedEmail struct {
	ID           string    `json:"id"`
	ContactID    string    `json:"contact_id"`
	EmailContent string    `json:"email_content"`
	CreatedAt    time.Time `json:"created_at"`
}

// New creates a client for the given base URL with a 10s request timeout.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		uploads: &http.Client{},
	}
}

// SetToken attaches a bearer token to all subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// envelope is the server's JSON response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, username, email, password string) (*User, error) {
	body, _ := json.Marshal(map[string]string{
		"username": username, "email": email, "password": password,
	})
	data, err := c.do(ctx, http.MethodPost, "/auth/signup", bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", ErrMalformedResponse)
	}
	return &u, nil
}

// Login exchanges a username/password for a token pair.
func (c *Client) Login(ctx context.Context, username, password string) (*Credentials, error) {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	data, err := c.do(ctx, http.MethodPost, "/auth/login", bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", ErrMalformedResponse)
	}
	c.token = creds.AccessToken
	return &creds, nil
}

// RefreshToken exchanges a refresh token for a fresh token pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Credentials, error) {
	body, _ := json.Marshal(map[string]string{"refresh_token": refreshToken})
	data, err := c.do(ctx, http.MethodPost, "/auth/refresh", bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", ErrMalformedResponse)
	}
	c.token = creds.AccessToken
	return &creds, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	data, err := c.do(ctx, http.MethodGet, "/auth/me", nil, "")
	if err != nil {
		return nil, err
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", ErrMalformedResponse)
	}
	return &u, nil
}

// Logout invalidates the current session server-side.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", nil, "")
	return err
}

// FetchContacts returns the authoritative contact list with annotations.
// A body that is not an array is "no usable data" (ErrMalformedResponse).
func (c *Client) FetchContacts(ctx context.Context) ([]syncer.Contact, error) {
	data, err := c.do(ctx, http.MethodGet, "/contacts", nil, "")
	if err != nil {
		return nil, err
	}
	var contacts []syncer.Contact
	if err := json.Unmarshal(data, &contacts); err != nil {
		return nil, fmt.Errorf("decode contacts: %w", ErrMalformedResponse)
	}
	return contacts, nil
}

// CreateContact adds a contact for the current user.
func (c *Client) CreateContact(ctx context.Context, name, email string) (*syncer.Contact, error) {
	body, _ := json.Marshal(map[string]string{"name": name, "email": email})
	data, err := c.do(ctx, http.MethodPost, "/contacts", bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	var contact syncer.Contact
	if err := json.Unmarshal(data, &contact); err != nil {
		return nil, fmt.Errorf("decode contact: %w", ErrMalformedResponse)
	}
	return &contact, nil
}

// RecordAccess persists a recently-viewed marker.
func (c *Client) RecordAccess(ctx context.Context, contactID string) error {
	_, err := c.do(ctx, http.MethodPost, "/recents/"+url.PathEscape(contactID), nil, "")
	return err
}

// AddFavorite marks a contact as favorite.
func (c *Client) AddFavorite(ctx context.Context, contactID string) error {
	_, err := c.do(ctx, http.MethodPost, "/favorites/"+url.PathEscape(contactID), nil, "")
	return err
}

// RemoveFavorite unmarks a favorite.
func (c *Client) RemoveFavorite(ctx context.Context, contactID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/favorites/"+url.PathEscape(contactID), nil, "")
	return err
}

// ClearRecents wipes the recents collection for the current user.
func (c *Client) ClearRecents(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, "/recents", nil, "")
	return err
}

// ClearFavorites wipes the favorites collection for the current user.
func (c *Client) ClearFavorites(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, "/favorites", nil, "")
	return err
}

// GenerateDraft uploads the two audio clips and returns the generated email
// draft for the contact. Generation can take a while, so the deadline comes
// from ctx rather than the client timeout.
func (c *Client) GenerateDraft(ctx context.Context, contactID, relationshipAudio, contentAudio string) (*Draft, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, path := range map[string]string{
		"relationship_audio": relationshipAudio,
		"content_audio":      contentAudio,
	} {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", field, err)
		}
		part, err := mw.CreateFormFile(field, filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("attach %s: %w", field, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/contacts/"+url.PathEscape(contactID)+"/drafts", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	resp, err := c.uploads.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate draft: %w", err)
	}
	data, err := c.decode(resp)
	if err != nil {
		return nil, err
	}
	var draft Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("decode draft: %w", ErrMalformedResponse)
	}
	return &draft, nil
}

// ApproveDraft stores a generated draft as an approved email.
func (c *Client) ApproveDraft(ctx context.Context, draftID string) error {
	_, err := c.do(ctx, http.MethodPost, "/drafts/"+url.PathEscape(draftID)+"/approve", nil, "")
	return err
}

// ListApprovedEmails returns the user's approved emails, newest first.
func (c *Client) ListApprovedEmails(ctx context.Context) ([]ApprovedEmail, error) {
	data, err := c.do(ctx, http.MethodGet, "/approved-emails", nil, "")
	if err != nil {
		return nil, err
	}
	var emails []ApprovedEmail
	if err := json.Unmarshal(data, &emails); err != nil {
		return nil, fmt.Errorf("decode approved emails: %w", ErrMalformedResponse)
	}
	return emails, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return c.decode(resp)
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) decode(resp *http.Response) (json.RawMessage, error) {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", ErrMalformedResponse)
	}
	if resp.StatusCode >= 400 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("server error: %s", msg)
	}
	return env.Data, nil
}

// SaveCredentials writes the token pair to path with owner-only permissions.
func SaveCredentials(path string, creds *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// LoadCredentials reads a previously saved token pair. A corrupt file is
// treated as absent.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, nil
	}
	return &creds, nil
}
