package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"voxcrm/internal/store"
)

type memStore struct {
	users    map[string]*store.User
	sessions map[string]*store.Session
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]*store.User),
		sessions: make(map[string]*store.Session),
	}
}

func (m *memStore) CreateUser(username, email, passwordHash, photoURL string) (string, error) {
	id := uuid.New().String()
	m.users[id] = &store.User{
		ID: id, Username: username, Email: email,
		PasswordHash: passwordHash, PhotoURL: photoURL,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	return id, nil
}

func (m *memStore) GetUserByUsername(username string) (*store.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetUserByEmail(email string) (*store.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetUserByID(id string) (*store.User, error) {
	return m.users[id], nil
}

func (m *memStore) TouchLastLogin(userID string, at time.Time) error {
	if u := m.users[userID]; u != nil {
		u.LastLogin = &at
	}
	return nil
}

func (m *memStore) CreateSession(userID, refreshToken string, expiresAt time.Time) (string, error) {
	id := uuid.New().String()
	m.sessions[refreshToken] = &store.Session{
		ID: id, UserID: userID, RefreshToken: refreshToken,
		CreatedAt: time.Now(), ExpiresAt: expiresAt, IsActive: true,
	}
	return id, nil
}

func (m *memStore) GetSessionByRefreshToken(refreshToken string) (*store.Session, error) {
	s := m.sessions[refreshToken]
	if s == nil || !s.IsActive || time.Now().After(s.ExpiresAt) {
		return nil, nil
	}
	return s, nil
}

func (m *memStore) DeactivateUserSessions(userID string) error {
	for _, s := range m.sessions {
		if s.UserID == userID {
			s.IsActive = false
		}
	}
	return nil
}

func TestSignupAndLogin(t *testing.T) {
	svc := NewService(newMemStore(), "secret", nil)

	user, err := svc.Signup("alice", "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("username = %q, want alice", user.Username)
	}

	pair, got, err := svc.Login("alice", "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("login returned user %s, want %s", got.ID, user.ID)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("login returned empty tokens")
	}
	if got.LastLogin == nil {
		t.Fatal("last login not stamped")
	}

	userID, err := svc.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if userID != user.ID {
		t.Fatalf("token user = %s, want %s", userID, user.ID)
	}
}

func TestSignupDuplicate(t *testing.T) {
	svc := NewService(newMemStore(), "secret", nil)
	if _, err := svc.Signup("alice", "alice@example.com", "correct horse battery"); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if _, err := svc.Signup("alice", "other@example.com", "correct horse battery"); err != ErrUserExists {
		t.Fatalf("duplicate username err = %v, want ErrUserExists", err)
	}
	if _, err := svc.Signup("bob", "alice@example.com", "correct horse battery"); err != ErrUserExists {
		t.Fatalf("duplicate email err = %v, want ErrUserExists", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := NewService(newMemStore(), "secret", nil)
	if _, err := svc.Signup("alice", "alice@example.com", "correct horse battery"); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if _, _, err := svc.Login("alice", "totally wrong"); err != ErrInvalidCredentials {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login("nobody", "correct horse battery"); err != ErrInvalidCredentials {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	svc := NewService(newMemStore(), "secret", nil)
	if _, err := svc.Signup("alice", "alice@example.com", "correct horse battery"); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	pair, _, err := svc.Login("alice", "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	next, err := svc.Refresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh token not rotated")
	}

	// The old token is dead after rotation.
	if _, err := svc.Refresh(pair.RefreshToken); err != ErrInvalidCredentials {
		t.Fatalf("reused token err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogoutInvalidatesSessions(t *testing.T) {
	svc := NewService(newMemStore(), "secret", nil)
	user, err := svc.Signup("alice", "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	pair, _, err := svc.Login("alice", "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := svc.Logout(user.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Refresh(pair.RefreshToken); err != ErrInvalidCredentials {
		t.Fatalf("post-logout refresh err = %v, want ErrInvalidCredentials", err)
	}
}
