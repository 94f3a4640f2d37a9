package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"

	"voxcrm/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("username or email already registered")
)

// Store is the slice of the database the auth service needs.
type Store interface {
	CreateUser(username, email, passwordHash, photoURL string) (string, error)
	GetUserByUsername(username string) (*store.User, error)
	GetUserByEmail(email string) (*store.User, error)
	GetUserByID(id string) (*store.User, error)
	TouchLastLogin(userID string, at time.Time) error
	CreateSession(userID, refreshToken string, expiresAt time.Time) (string, error)
	GetSessionByRefreshToken(refreshToken string) (*store.Session, error)
	DeactivateUserSessions(userID string) error
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Service implements signup, login, refresh and logout on top of the store.
type Service struct {
	store  Store
	secret string
	logger *zap.Logger
	now    func() time.Time
}

func NewService(st Store, secret string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, secret: secret, logger: logger, now: time.Now}
}

// Signup registers a new user. Username and email must be unused.
func (s *Service) Signup(username, email, password string) (*store.User, error) {
	if username == "" || email == "" {
		return nil, errors.New("username and email are required")
	}
	if existing, err := s.store.GetUserByUsername(username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrUserExists
	}
	if existing, err := s.store.GetUserByEmail(email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrUserExists
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	id, err := s.store.CreateUser(username, email, hash, "")
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", id), zap.String("username", username))
	return s.store.GetUserByID(id)
}

// Login checks credentials and mints an access token plus a refresh session.
func (s *Service) Login(username, password string) (*TokenPair, *store.User, error) {
	user, err := s.store.GetUserByUsername(username)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || !CheckPassword(user.PasswordHash, password) {
		return nil, nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.store.TouchLastLogin(user.ID, now); err != nil {
		return nil, nil, err
	}
	pair, err := s.mintTokens(user.ID, now)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return pair, user, nil
}

// Refresh rotates the refresh session and issues a fresh token pair.
func (s *Service) Refresh(refreshToken string) (*TokenPair, error) {
	sess, err := s.store.GetSessionByRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrInvalidCredentials
	}

	// One refresh token per user at a time. Rotation invalidates the old one.
	if err := s.store.DeactivateUserSessions(sess.UserID); err != nil {
		return nil, err
	}
	return s.mintTokens(sess.UserID, s.now())
}

// Logout invalidates every refresh session of the user.
func (s *Service) Logout(userID string) error {
	return s.store.DeactivateUserSessions(userID)
}

// UserByID loads the user's profile.
func (s *Service) UserByID(userID string) (*store.User, error) {
	return s.store.GetUserByID(userID)
}

// ParseAccessToken validates a bearer token against the service secret.
func (s *Service) ParseAccessToken(tokenString string) (string, error) {
	return ParseUserID(tokenString, s.secret)
}

func (s *Service) mintTokens(userID string, now time.Time) (*TokenPair, error) {
	access, err := NewAccessToken(userID, s.secret, now)
	if err != nil {
		return nil, err
	}
	refresh, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	if _, err := s.store.CreateSession(userID, refresh, now.Add(RefreshTokenTTL)); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
