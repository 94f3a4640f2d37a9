package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"voxcrm/internal/bus"
	"voxcrm/internal/status"
)

// fakeRemote is a scriptable Remote. Errors are returned per method; every
// call is recorded. An optional gate channel blocks AddFavorite until the test
// releases it, to exercise slow-response races.
type fakeRemote struct {
	mu    sync.Mutex
	calls []string

	fetchResult []Contact
	fetchErr    error
	accessErr   error
	addErr      error
	removeErr   error
	clearRecErr error
	clearFavErr error

	addGate chan struct{}
}

func (f *fakeRemote) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeRemote) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) FetchContacts(context.Context) ([]Contact, error) {
	f.record("fetch")
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]Contact(nil), f.fetchResult...), nil
}

func (f *fakeRemote) RecordAccess(_ context.Context, id string) error {
	f.record("access:" + id)
	return f.accessErr
}

func (f *fakeRemote) AddFavorite(_ context.Context, id string) error {
	if f.addGate != nil {
		<-f.addGate
	}
	f.record("add:" + id)
	return f.addErr
}

func (f *fakeRemote) RemoveFavorite(_ context.Context, id string) error {
	f.record("remove:" + id)
	return f.removeErr
}

func (f *fakeRemote) ClearRecents(context.Context) error {
	f.record("clear_recents")
	return f.clearRecErr
}

func (f *fakeRemote) ClearFavorites(context.Context) error {
	f.record("clear_favorites")
	return f.clearFavErr
}

func newTestSyncer(t *testing.T, remote *fakeRemote, contacts []Contact, opts ...Option) *Synchronizer {
	t.Helper()
	store := NewStore()
	store.Replace(contacts)
	return New(store, remote, bus.New(), nil, opts...)
}

func twoContacts() []Contact {
	return []Contact{
		{ID: "1", Name: "Ann"},
		{ID: "2", Name: "Bo"},
	}
}

// Scenario A: toggling a favorite is visible synchronously and counted.
func TestToggleFavoriteOptimistic(t *testing.T) {
	remote := &fakeRemote{}
	s := newTestSyncer(t, remote, twoContacts())

	if err := s.ToggleFavorite("1"); err != nil {
		t.Fatal(err)
	}

	// Observable before the remote call completes.
	favs := s.Store().Favorites()
	if len(favs) != 1 || favs[0].ID != "1" {
		t.Fatalf("favorites = %v, want [1]", favs)
	}
	if s.Store().FavoriteCount() != 1 {
		t.Errorf("count badge = %d, want 1", s.Store().FavoriteCount())
	}

	s.Wait()
	log := remote.callLog()
	if len(log) != 1 || log[0] != "add:1" {
		t.Errorf("remote calls = %v, want [add:1]", log)
	}
}

// Idempotence of toggle: two toggles restore the original state locally and
// issue matching add/remove calls remotely.
func TestToggleFavoriteIdempotent(t *testing.T) {
	remote := &fakeRemote{}
	s := newTestSyncer(t, remote, twoContacts())

	if err := s.ToggleFavorite("1"); err != nil {
		t.Fatal(err)
	}
	s.Wait()
	if err := s.ToggleFavorite("1"); err != nil {
		t.Fatal(err)
	}
	s.Wait()

	if c := s.Store().Get("1"); c.IsFavorite {
		t.Error("is_favorite = true after double toggle, want original false")
	}
	log := remote.callLog()
	if len(log) != 2 || log[0] != "add:1" || log[1] != "remove:1" {
		t.Errorf("remote calls = %v, want [add:1 remove:1]", log)
	}
}

func TestToggleFavoriteUnknownContact(t *testing.T) {
	s := newTestSyncer(t, &fakeRemote{}, twoContacts())
	if err := s.ToggleFavorite("missing"); err == nil {
		t.Error("expected error for unknown contact")
	}
}

// Scenario B: accesses order the recents view most recent first.
func TestMarkAccessedOrdering(t *testing.T) {
	remote := &fakeRemote{}
	clock := ts(1000)
	s := newTestSyncer(t, remote, twoContacts(), WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))

	if err := s.MarkAccessed("2"); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkAccessed("1"); err != nil {
		t.Fatal(err)
	}

	recents := s.Store().Recents()
	if len(recents) != 2 {
		t.Fatalf("got %d recents, want 2", len(recents))
	}
	if recents[0].ID != "1" || recents[1].ID != "2" {
		t.Errorf("recents order = [%s %s], want [1 2]", recents[0].ID, recents[1].ID)
	}

	s.Wait()
	log := remote.callLog()
	if len(log) != 2 || log[0] != "access:2" || log[1] != "access:1" {
		t.Errorf("remote calls = %v, want [access:2 access:1]", log)
	}
}

// Recents are best-effort: a failed remote marker keeps the optimistic value
// and only flags a refresh.
func TestMarkAccessedRemoteFailureKeepsLocal(t *testing.T) {
	remote := &fakeRemote{accessErr: errors.New("network down")}
	s := newTestSyncer(t, remote, twoContacts())

	if err := s.MarkAccessed("1"); err != nil {
		t.Fatal(err)
	}
	s.Wait()

	if c := s.Store().Get("1"); c.LastAccessedAt == nil {
		t.Error("access time rolled back on remote failure")
	}
	if !s.NeedsRefresh() {
		t.Error("NeedsRefresh() = false, want true after failed confirmation")
	}
}

// Scenario D: a failed favorite confirmation triggers a corrective re-fetch
// that overwrites the optimistic flip with server truth.
func TestToggleFavoriteRemoteFailureCorrectiveFetch(t *testing.T) {
	remote := &fakeRemote{
		addErr: errors.New("network down"),
		fetchResult: []Contact{
			{ID: "1", Name: "Ann", IsFavorite: false},
			{ID: "2", Name: "Bo"},
		},
	}
	s := newTestSyncer(t, remote, twoContacts())

	if err := s.ToggleFavorite("1"); err != nil {
		t.Fatal(err)
	}
	// Optimistic flip visible first.
	if !s.Store().Get("1").IsFavorite {
		t.Fatal("optimistic flip not applied")
	}

	s.Wait()

	// Server truth restored.
	if s.Store().Get("1").IsFavorite {
		t.Error("is_favorite still true after corrective fetch, want server value false")
	}
	log := remote.callLog()
	if len(log) != 2 || log[0] != "add:1" || log[1] != "fetch" {
		t.Errorf("remote calls = %v, want [add:1 fetch]", log)
	}
}

// When the corrective fetch itself fails, optimistic state is kept and the
// refresh flag stays set.
func TestToggleFavoriteCorrectiveFetchUnreachable(t *testing.T) {
	remote := &fakeRemote{
		addErr:   errors.New("network down"),
		fetchErr: errors.New("still down"),
	}
	s := newTestSyncer(t, remote, twoContacts())

	if err := s.ToggleFavorite("1"); err != nil {
		t.Fatal(err)
	}
	s.Wait()

	if !s.Store().Get("1").IsFavorite {
		t.Error("optimistic flip lost while remote unreachable")
	}
	if !s.NeedsRefresh() {
		t.Error("NeedsRefresh() = false, want true")
	}
}

// A stale confirmation must never overwrite a newer optimistic toggle: the
// first toggle's slow failing response arrives after a second toggle fired,
// and is discarded instead of triggering the corrective fetch.
func TestStaleConfirmationDiscarded(t *testing.T) {
	remote := &fakeRemote{
		addErr:  errors.New("network down"),
		addGate: make(chan struct{}),
		fetchResult: []Contact{
			{ID: "1", Name: "Ann", IsFavorite: true},
		},
	}
	s := newTestSyncer(t, remote, twoContacts())

	// Toggle #1: favorite on; AddFavorite blocks on the gate.
	if err := s.ToggleFavorite("1"); err != nil {
		t.Fatal(err)
	}
	// Toggle #2: favorite off; RemoveFavorite succeeds immediately.
	if err := s.ToggleFavorite("1"); err != nil {
		t.Fatal(err)
	}
	// Now let toggle #1's response (a failure) arrive late.
	close(remote.addGate)
	s.Wait()

	// The newer optimistic state (not favorite) must survive; no fetch fired.
	if s.Store().Get("1").IsFavorite {
		t.Error("stale confirmation overwrote newer optimistic state")
	}
	for _, call := range remote.callLog() {
		if call == "fetch" {
			t.Error("stale failure triggered a corrective fetch")
		}
	}
}

func TestClearRecentsRetainedOnRemoteFailure(t *testing.T) {
	remote := &fakeRemote{clearRecErr: errors.New("network down")}
	s := newTestSyncer(t, remote, []Contact{
		{ID: "1", Name: "Ann", LastAccessedAt: tsp(1000)},
		{ID: "2", Name: "Bo", LastAccessedAt: tsp(2000)},
	})

	s.ClearRecents()
	s.Wait()

	// Local clear is retained regardless of remote outcome.
	if len(s.Store().Recents()) != 0 {
		t.Error("recents reappeared after failed remote clear")
	}
}

func TestClearFavoritesRetainedOnRemoteFailure(t *testing.T) {
	remote := &fakeRemote{clearFavErr: errors.New("network down")}
	s := newTestSyncer(t, remote, []Contact{
		{ID: "1", Name: "Ann", IsFavorite: true},
	})

	s.ClearFavorites()
	s.Wait()

	if s.Store().FavoriteCount() != 0 {
		t.Error("favorites reappeared after failed remote clear")
	}
}

func TestRefreshMergesAndClearsFlag(t *testing.T) {
	remote := &fakeRemote{
		accessErr: errors.New("network down"),
		fetchResult: []Contact{
			{ID: "1", Name: "Ann"},
			{ID: "2", Name: "Bo"},
			{ID: "3", Name: "Cy", IsFavorite: true},
		},
	}
	s := newTestSyncer(t, remote, twoContacts())

	if err := s.MarkAccessed("1"); err != nil {
		t.Fatal(err)
	}
	s.Wait()
	if !s.NeedsRefresh() {
		t.Fatal("expected refresh flag after failed confirmation")
	}

	remote.accessErr = nil
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	if s.NeedsRefresh() {
		t.Error("NeedsRefresh() = true after successful refresh")
	}
	// New remote row appears, local recents annotation survives the merge.
	if s.Store().Len() != 3 {
		t.Errorf("store has %d contacts, want 3", s.Store().Len())
	}
	if s.Store().Get("1").LastAccessedAt == nil {
		t.Error("local recents annotation lost by refresh merge")
	}
}

func TestRefreshFetchError(t *testing.T) {
	remote := &fakeRemote{fetchErr: errors.New("boom")}
	s := newTestSyncer(t, remote, twoContacts())

	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	// Local state untouched.
	if s.Store().Len() != 2 {
		t.Errorf("store has %d contacts, want 2", s.Store().Len())
	}
	if !s.NeedsRefresh() {
		t.Error("refresh flag not set after failed fetch")
	}
}

func TestStatusMachineDegradesAndRecovers(t *testing.T) {
	machine := status.NewMachine(nil)
	for _, st := range []status.State{status.SigningIn, status.Refreshing, status.Ready} {
		if err := machine.Transition(st); err != nil {
			t.Fatal(err)
		}
	}

	remote := &fakeRemote{accessErr: errors.New("network down")}
	s := newTestSyncer(t, remote, twoContacts(), WithStatusMachine(machine))

	if err := s.MarkAccessed("1"); err != nil {
		t.Fatal(err)
	}
	s.Wait()
	if machine.Current() != status.Degraded {
		t.Errorf("state = %s, want DEGRADED", machine.Current())
	}

	remote.accessErr = nil
	if err := s.MarkAccessed("2"); err != nil {
		t.Fatal(err)
	}
	s.Wait()
	if machine.Current() != status.Ready {
		t.Errorf("state = %s, want READY after recovery", machine.Current())
	}
}

func TestMutationsPublishEvents(t *testing.T) {
	b := bus.New()
	store := NewStore()
	store.Replace(twoContacts())
	s := New(store, &fakeRemote{}, b, nil)

	ch, unsub := b.Subscribe("favorite.", 10)
	defer unsub()

	if err := s.ToggleFavorite("1"); err != nil {
		t.Fatal(err)
	}

	select {
	case evt := <-ch:
		if evt.Kind != bus.KindFavoriteToggled {
			t.Errorf("event kind = %q, want %q", evt.Kind, bus.KindFavoriteToggled)
		}
		payload, ok := evt.Payload.(bus.ContactEvent)
		if !ok {
			t.Fatalf("payload type = %T, want bus.ContactEvent", evt.Payload)
		}
		if payload.ContactID != "1" {
			t.Errorf("payload contact = %q, want 1", payload.ContactID)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
	s.Wait()
}
