package draft

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("draft not found")

// Draft is a generated email awaiting approval. Drafts live in memory only;
// approval persists them as an approved email.
type Draft struct {
	ID                    string    `json:"id"`
	UserID                string    `json:"-"`
	ContactID             string    `json:"contact_id"`
	RelationshipRecording string    `json:"relationship_recording"`
	ContentRecording      string    `json:"content_recording"`
	Body                  string    `json:"body"`
	CreatedAt             time.Time `json:"created_at"`
}

// Service generates drafts and holds them until approved or discarded.
type Service struct {
	gen    Generator
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	pending map[string]*Draft
}

func NewService(gen Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		gen:     gen,
		logger:  logger,
		now:     time.Now,
		pending: make(map[string]*Draft),
	}
}

// Generate runs the generator on the two clips and parks the result.
func (s *Service) Generate(ctx context.Context, userID, contactID, relationshipRecording, contentRecording string, relationship, content Audio) (*Draft, error) {
	body, err := s.gen.GenerateEmail(ctx, relationship, content)
	if err != nil {
		return nil, err
	}

	d := &Draft{
		ID:                    uuid.New().String(),
		UserID:                userID,
		ContactID:             contactID,
		RelationshipRecording: relationshipRecording,
		ContentRecording:      contentRecording,
		Body:                  body,
		CreatedAt:             s.now(),
	}
	s.mu.Lock()
	s.pending[d.ID] = d
	s.mu.Unlock()

	s.logger.Info("draft generated",
		zap.String("draft_id", d.ID),
		zap.String("contact_id", contactID),
		zap.Int("body_len", len(body)))
	return d, nil
}

// Get returns a pending draft owned by the user.
func (s *Service) Get(userID, draftID string) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.pending[draftID]
	if d == nil || d.UserID != userID {
		return nil, ErrNotFound
	}
	return d, nil
}

// Take removes a pending draft and returns it. Used on approval.
func (s *Service) Take(userID, draftID string) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.pending[draftID]
	if d == nil || d.UserID != userID {
		return nil, ErrNotFound
	}
	delete(s.pending, draftID)
	return d, nil
}
