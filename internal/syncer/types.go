package syncer

import "time"

// Display and retention caps for the recently-viewed projection. The visible
// list never exceeds DisplayCap; the snapshot cache keeps up to RetentionCap
// entries so a merge has more history to work with.
const (
	DisplayCap   = 10
	RetentionCap = 20
)

// Contact is the client-side read model row: the server contact plus the two
// per-user interaction annotations that drive the Favorites and Recents views.
type Contact struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	IsFavorite     bool       `json:"is_favorite"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}

// RecentEntry is the snapshot form of one recently-viewed annotation.
type RecentEntry struct {
	ContactID  string    `json:"contact_id"`
	AccessedAt time.Time `json:"accessed_at"`
}
