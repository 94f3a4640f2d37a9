package bus

import "time"

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Event kinds published by the synchronizer and the server handlers.
// Subscribers filter by namespace prefix, e.g. "contact." or "favorite.".
const (
	KindContactAccessed  = "contact.accessed"
	KindContactUpdated   = "contact.updated"
	KindFavoriteToggled  = "favorite.toggled"
	KindRecentsCleared   = "recents.cleared"
	KindFavoritesCleared = "favorites.cleared"
	KindSyncRefreshed    = "sync.refreshed"
	KindSyncRemoteFailed = "sync.remote_failed"
	KindDraftApproved    = "draft.approved"
)

// ContactEvent is the payload for contact-scoped kinds. Collection-wide kinds
// (clears, refreshes) carry a ContactEvent with an empty ContactID.
type ContactEvent struct {
	ContactID string
}

// RemoteFailure is the payload for sync.remote_failed events.
type RemoteFailure struct {
	Op        string
	ContactID string
}
