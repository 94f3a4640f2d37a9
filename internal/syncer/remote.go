package syncer

import "context"

// Remote is the server-side collection the synchronizer confirms local
// mutations against. Implementations must be safe for concurrent use; calls
// carry a context and are expected to enforce their own timeout.
type Remote interface {
	// FetchContacts returns the authoritative contact list with annotations.
	FetchContacts(ctx context.Context) ([]Contact, error)

	// RecordAccess persists a recently-viewed marker for one contact.
	RecordAccess(ctx context.Context, contactID string) error

	// AddFavorite and RemoveFavorite persist the favorite flag.
	AddFavorite(ctx context.Context, contactID string) error
	RemoveFavorite(ctx context.Context, contactID string) error

	// ClearRecents and ClearFavorites wipe the respective collection
	// for the current user.
	ClearRecents(ctx context.Context) error
	ClearFavorites(ctx context.Context) error
}
