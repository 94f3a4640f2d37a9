package syncer

import (
	"sort"
	"sync"
	"time"
)

// Store is the single owned in-memory contact list. All views read through it
// and all mutations go through its methods, so no ad-hoc copies can drift.
type Store struct {
	mu       sync.RWMutex
	contacts map[string]*Contact
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{contacts: make(map[string]*Contact)}
}

// Replace swaps the whole contact list for a fresh snapshot.
func (s *Store) Replace(contacts []Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts = make(map[string]*Contact, len(contacts))
	for i := range contacts {
		c := contacts[i]
		s.contacts[c.ID] = &c
	}
}

// Get returns a copy of the contact with the given id, or nil if unknown.
func (s *Store) Get(id string) *Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contacts[id]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

// All returns every contact sorted by name (ties broken by id).
func (s *Store) All() []Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of contacts held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contacts)
}

// Favorites returns the favorited contacts sorted by name. Favorites are set
// semantics; the ordering is only for stable display.
func (s *Store) Favorites() []Contact {
	all := s.All()
	out := all[:0:0]
	for _, c := range all {
		if c.IsFavorite {
			out = append(out, c)
		}
	}
	return out
}

// FavoriteCount returns the number of favorited contacts (the count badge).
func (s *Store) FavoriteCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.contacts {
		if c.IsFavorite {
			n++
		}
	}
	return n
}

// Recents returns contacts with a non-null access time, most recent first,
// truncated to DisplayCap.
func (s *Store) Recents() []Contact {
	s.mu.RLock()
	out := make([]Contact, 0, DisplayCap)
	for _, c := range s.contacts {
		if c.LastAccessedAt != nil {
			out = append(out, *c)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastAccessedAt.Equal(*out[j].LastAccessedAt) {
			return out[i].LastAccessedAt.After(*out[j].LastAccessedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > DisplayCap {
		out = out[:DisplayCap]
	}
	return out
}

// markAccessed stamps the contact's access time. Reports whether the id is known.
func (s *Store) markAccessed(id string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok {
		return false
	}
	t := at
	c.LastAccessedAt = &t
	return true
}

// toggleFavorite flips the contact's favorite flag and returns the new value.
// The second return reports whether the id is known.
func (s *Store) toggleFavorite(id string) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok {
		return false, false
	}
	c.IsFavorite = !c.IsFavorite
	return c.IsFavorite, true
}

// clearRecents nulls every contact's access time.
func (s *Store) clearRecents() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.contacts {
		c.LastAccessedAt = nil
	}
}

// clearFavorites unsets every contact's favorite flag.
func (s *Store) clearFavorites() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.contacts {
		c.IsFavorite = false
	}
}
