package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"voxcrm/internal/syncer"
)

// SchemaVersion tags every persisted snapshot. A loaded snapshot with a
// different version is discarded deterministically instead of being parsed
// on a best-effort basis.
const SchemaVersion = 1

// Snapshot is the typed, versioned form of the cached contact list.
type Snapshot struct {
	SchemaVersion int              `json:"schema_version"`
	SavedAt       time.Time        `json:"saved_at"`
	Contacts      []syncer.Contact `json:"contacts"`
}

// Cache is the durable client-side snapshot store. It lets a restarted client
// show data before the first fetch; the server remains the source of truth.
type Cache struct {
	db *sql.DB
}

// Open creates a SQLite-backed cache with WAL mode and the recommended
// pragmas, creating the schema if needed.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping cache db: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			user_id        TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			payload        TEXT NOT NULL,
			saved_at       INTEGER NOT NULL
		)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Save persists the contact list as this user's snapshot. Recents annotations
// beyond the retention cap are dropped before writing.
func (c *Cache) Save(userID string, contacts []syncer.Contact) error {
	snap := Snapshot{
		SchemaVersion: SchemaVersion,
		SavedAt:       time.Now().UTC(),
		Contacts:      trimRecents(contacts, syncer.RetentionCap),
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = c.db.Exec(`
		INSERT INTO snapshots (user_id, schema_version, payload, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			schema_version = excluded.schema_version,
			payload = excluded.payload,
			saved_at = excluded.saved_at`,
		userID, SchemaVersion, string(payload), snap.SavedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load returns the cached contact list for a user, or nil when no usable
// snapshot exists. Corrupt or version-mismatched snapshots are deleted and
// treated as absent, never propagated as an error.
func (c *Cache) Load(userID string) ([]syncer.Contact, error) {
	var (
		version int
		payload string
	)
	err := c.db.QueryRow(
		`SELECT schema_version, payload FROM snapshots WHERE user_id = ?`, userID).
		Scan(&version, &payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	if version != SchemaVersion {
		_ = c.discard(userID)
		return nil, nil
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil || snap.SchemaVersion != SchemaVersion {
		_ = c.discard(userID)
		return nil, nil
	}
	return snap.Contacts, nil
}

// Clear removes the cached snapshot for a user.
func (c *Cache) Clear(userID string) error {
	return c.discard(userID)
}

func (c *Cache) discard(userID string) error {
	_, err := c.db.Exec(`DELETE FROM snapshots WHERE user_id = ?`, userID)
	return err
}

// trimRecents drops LastAccessedAt from all but the limit most recent entries.
// Favorites and the rows themselves are untouched.
func trimRecents(contacts []syncer.Contact, limit int) []syncer.Contact {
	out := make([]syncer.Contact, len(contacts))
	copy(out, contacts)

	idx := make([]int, 0, len(out))
	for i := range out {
		if out[i].LastAccessedAt != nil {
			idx = append(idx, i)
		}
	}
	if len(idx) <= limit {
		return out
	}
	sort.Slice(idx, func(a, b int) bool {
		return out[idx[a]].LastAccessedAt.After(*out[idx[b]].LastAccessedAt)
	})
	for _, i := range idx[limit:] {
		out[i].LastAccessedAt = nil
	}
	return out
}
