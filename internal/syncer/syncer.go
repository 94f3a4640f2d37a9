package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"voxcrm/internal/bus"
	"voxcrm/internal/status"
)

// DefaultTimeout bounds every remote confirmation call.
const DefaultTimeout = 10 * time.Second

// Synchronizer keeps the in-memory contact annotations consistent with the
// remote store. Every operation applies locally first (synchronous, always
// succeeds for known contacts) and confirms remotely in the background.
// A failed confirmation never reverts an optimistic recents update; a failed
// favorite confirmation triggers a corrective re-fetch because the user
// explicitly curates that set.
type Synchronizer struct {
	store   *Store
	remote  Remote
	bus     *bus.Bus
	logger  *zap.Logger
	machine *status.Machine
	timeout time.Duration
	now     func() time.Time

	mu           sync.Mutex
	seq          map[string]uint64
	needsRefresh bool

	inflight sync.WaitGroup
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithTimeout overrides the per-call remote timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Synchronizer) { s.timeout = d }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) { s.now = now }
}

// WithStatusMachine attaches a connectivity state machine that is driven to
// Degraded on remote failures and back to Ready on success.
func WithStatusMachine(m *status.Machine) Option {
	return func(s *Synchronizer) { s.machine = m }
}

// New creates a Synchronizer over the given store and remote.
func New(store *Store, remote Remote, b *bus.Bus, logger *zap.Logger, opts ...Option) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Synchronizer{
		store:   store,
		remote:  remote,
		bus:     b,
		logger:  logger,
		timeout: DefaultTimeout,
		now:     time.Now,
		seq:     make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the read model.
func (s *Synchronizer) Store() *Store {
	return s.store
}

// NeedsRefresh reports whether a remote confirmation failed in a way that
// should be reconciled by the next full refresh.
func (s *Synchronizer) NeedsRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.needsRefresh
}

// Wait blocks until all in-flight remote confirmations have completed.
func (s *Synchronizer) Wait() {
	s.inflight.Wait()
}

// MarkAccessed stamps the contact as just viewed. The caller observes the new
// access time immediately; the remote marker is confirmed in the background.
// Recency is best-effort: a failed confirmation keeps the optimistic value and
// only flags a refresh.
func (s *Synchronizer) MarkAccessed(contactID string) error {
	at := s.now()
	if !s.store.markAccessed(contactID, at) {
		return fmt.Errorf("mark accessed: unknown contact %q", contactID)
	}
	s.publish(bus.KindContactAccessed, contactID)

	s.dispatch(func(ctx context.Context) {
		if err := s.remote.RecordAccess(ctx, contactID); err != nil {
			s.remoteFailed("record access", contactID, err)
			return
		}
		s.remoteOK()
	})
	return nil
}

// ToggleFavorite flips the contact's favorite flag. The flip is visible
// immediately; the remote set is updated in the background. On failure the
// authoritative list is re-fetched and replaces local state; silent
// divergence of the curated set is not acceptable. A confirmation that lost a
// race against a newer toggle on the same contact is discarded outright.
func (s *Synchronizer) ToggleFavorite(contactID string) error {
	s.mu.Lock()
	s.seq[contactID]++
	seq := s.seq[contactID]
	s.mu.Unlock()

	nowFav, ok := s.store.toggleFavorite(contactID)
	if !ok {
		return fmt.Errorf("toggle favorite: unknown contact %q", contactID)
	}
	s.publish(bus.KindFavoriteToggled, contactID)

	s.dispatch(func(ctx context.Context) {
		var err error
		if nowFav {
			err = s.remote.AddFavorite(ctx, contactID)
		} else {
			err = s.remote.RemoveFavorite(ctx, contactID)
		}

		if s.stale(contactID, seq) {
			// A newer toggle is already in flight; its completion governs.
			s.logger.Debug("discarding stale favorite confirmation",
				zap.String("contact_id", contactID), zap.Uint64("seq", seq))
			return
		}
		if err != nil {
			s.remoteFailed("toggle favorite", contactID, err)
			s.correctiveRefresh(ctx)
			return
		}
		s.remoteOK()
	})
	return nil
}

// ClearRecents nulls every access time locally and issues one remote clear.
// The local clear is retained regardless of the remote outcome.
func (s *Synchronizer) ClearRecents() {
	s.store.clearRecents()
	s.publish(bus.KindRecentsCleared, "")

	s.dispatch(func(ctx context.Context) {
		if err := s.remote.ClearRecents(ctx); err != nil {
			s.remoteFailed("clear recents", "", err)
			return
		}
		s.remoteOK()
	})
}

// ClearFavorites unsets every favorite flag locally and issues one remote
// clear. Same retention semantics as ClearRecents.
func (s *Synchronizer) ClearFavorites() {
	s.store.clearFavorites()
	s.publish(bus.KindFavoritesCleared, "")

	s.dispatch(func(ctx context.Context) {
		if err := s.remote.ClearFavorites(ctx); err != nil {
			s.remoteFailed("clear favorites", "", err)
			return
		}
		s.remoteOK()
	})
}

// Refresh fetches the authoritative list and reconciles it with local state.
// This is the one reconciliation pass (triggered after login and after flagged
// failures); there are no built-in retries beyond it.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	remote, err := s.remote.FetchContacts(ctx)
	if err != nil {
		s.remoteFailed("fetch contacts", "", err)
		return fmt.Errorf("refresh: %w", err)
	}

	merged := ReconcileContacts(remote, s.store.All())
	s.store.Replace(merged)

	s.mu.Lock()
	s.needsRefresh = false
	s.mu.Unlock()

	s.remoteOK()
	s.publish(bus.KindSyncRefreshed, "")
	return nil
}

// correctiveRefresh replaces local state with server truth after a failed
// favorite confirmation. Unlike Refresh it does not merge: the optimistic
// flip could not be persisted, so the server view wins.
func (s *Synchronizer) correctiveRefresh(ctx context.Context) {
	remote, err := s.remote.FetchContacts(ctx)
	if err != nil {
		// Server unreachable for the re-fetch too; keep optimistic local state
		// and leave the refresh flag set.
		s.logger.Warn("corrective fetch failed, keeping optimistic state", zap.Error(err))
		return
	}
	s.store.Replace(remote)

	s.mu.Lock()
	s.needsRefresh = false
	s.mu.Unlock()

	s.publish(bus.KindSyncRefreshed, "")
}

func (s *Synchronizer) dispatch(fn func(ctx context.Context)) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (s *Synchronizer) stale(contactID string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq[contactID] != seq
}

func (s *Synchronizer) remoteFailed(op, contactID string, err error) {
	s.logger.Warn("remote confirmation failed",
		zap.String("op", op), zap.String("contact_id", contactID), zap.Error(err))

	s.mu.Lock()
	s.needsRefresh = true
	s.mu.Unlock()

	if s.machine != nil {
		_ = s.machine.Transition(status.Degraded)
	}
	if s.bus != nil {
		s.bus.Publish(bus.Event{
			Kind:      bus.KindSyncRemoteFailed,
			Timestamp: s.now(),
			Payload:   bus.RemoteFailure{Op: op, ContactID: contactID},
		})
	}
}

func (s *Synchronizer) remoteOK() {
	if s.machine == nil {
		return
	}
	switch s.machine.Current() {
	case status.Degraded, status.Refreshing:
		_ = s.machine.Transition(status.Ready)
	}
}

func (s *Synchronizer) publish(kind, contactID string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(bus.Event{
		Kind:      kind,
		Timestamp: s.now(),
		Payload:   bus.ContactEvent{ContactID: contactID},
	})
}
