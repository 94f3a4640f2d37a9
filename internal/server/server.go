package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"voxcrm/internal/auth"
	"voxcrm/internal/draft"
	"voxcrm/internal/store"
	"voxcrm/internal/ws"
)

// AuthService is the slice of the auth layer the handlers use.
type AuthService interface {
	TokenParser
	Signup(username, email, password string) (*store.User, error)
	Login(username, password string) (*auth.TokenPair, *store.User, error)
	Refresh(refreshToken string) (*auth.TokenPair, error)
	Logout(userID string) error
	UserByID(userID string) (*store.User, error)
}

// ContactStore is the slice of the database the handlers use.
type ContactStore interface {
	ListContacts(userID string) ([]store.Contact, error)
	GetContact(userID, contactID string) (*store.Contact, error)
	CreateContact(userID, name, email string) (*store.Contact, error)
	UpdateContact(userID, contactID, name, email string) (*store.Contact, error)
	TouchContactAccess(userID, contactID string, at time.Time) (bool, error)
	SetFavorite(userID, contactID string, favorite bool) (bool, error)
	ClearRecents(userID string) error
	ClearFavorites(userID string) error
	CreateRecording(userID, contactID, kind, filePath, mimeType string) (*store.Recording, error)
	CreateApprovedEmail(userID, contactID, relationshipRecording, contentRecording, body string) (*store.ApprovedEmail, error)
	ListApprovedEmails(userID string) ([]store.ApprovedEmail, error)
}

// DraftService generates and tracks pending email drafts.
type DraftService interface {
	Generate(ctx context.Context, userID, contactID, relationshipRecording, contentRecording string, relationship, content draft.Audio) (*draft.Draft, error)
	Take(userID, draftID string) (*draft.Draft, error)
}

// Server hosts the REST API.
type Server struct {
	auth           AuthService
	store          ContactStore
	drafts         DraftService
	hub            *ws.Hub
	mw             *Middleware
	logger         *zap.Logger
	uploadsDir     string
	allowedOrigins []string
}

func New(authSvc AuthService, st ContactStore, drafts DraftService, hub *ws.Hub, uploadsDir string, allowedOrigins []string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		auth:           authSvc,
		store:          st,
		drafts:         drafts,
		hub:            hub,
		mw:             NewMiddleware(authSvc, allowedOrigins, logger),
		logger:         logger,
		uploadsDir:     uploadsDir,
		allowedOrigins: allowedOrigins,
	}
}

// Router builds the full route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.mw.Log, s.mw.CORS, s.mw.RateLimit)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/auth/signup", s.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh", s.handleRefresh).Methods(http.MethodPost)

	protected := r.PathPrefix("/").Subrouter()
	protected.Use(s.mw.Auth)
	protected.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	protected.HandleFunc("/auth/me", s.handleMe).Methods(http.MethodGet)

	protected.HandleFunc("/contacts", s.handleListContacts).Methods(http.MethodGet)
	protected.HandleFunc("/contacts", s.handleCreateContact).Methods(http.MethodPost)
	protected.HandleFunc("/contacts/{id}", s.handleGetContact).Methods(http.MethodGet)
	protected.HandleFunc("/contacts/{id}", s.handleUpdateContact).Methods(http.MethodPut)

	protected.HandleFunc("/recents/{id}", s.handleRecordAccess).Methods(http.MethodPost)
	protected.HandleFunc("/recents", s.handleClearRecents).Methods(http.MethodDelete)
	protected.HandleFunc("/favorites/{id}", s.handleAddFavorite).Methods(http.MethodPost)
	protected.HandleFunc("/favorites/{id}", s.handleRemoveFavorite).Methods(http.MethodDelete)
	protected.HandleFunc("/favorites", s.handleClearFavorites).Methods(http.MethodDelete)

	protected.HandleFunc("/contacts/{id}/drafts", s.handleGenerateDraft).Methods(http.MethodPost)
	protected.HandleFunc("/drafts/{id}/approve", s.handleApproveDraft).Methods(http.MethodPost)
	protected.HandleFunc("/approved-emails", s.handleListApprovedEmails).Methods(http.MethodGet)

	protected.HandleFunc("/ws", s.handleWebsocket).Methods(http.MethodGet)

	// Preflight for any route.
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"}, "")
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "websocket disabled")
		return
	}
	ws.Serve(s.hub, w, r, UserID(r.Context()), s.allowedOrigins)
}

// notify pushes a hub event when the hub is wired.
func (s *Server) notify(userID, msgType string, data interface{}) {
	if s.hub != nil {
		s.hub.Notify(userID, msgType, data)
	}
}
