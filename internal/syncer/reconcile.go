package syncer

import "sort"

// Reconciliation merges a remote snapshot with a local one after a period of
// divergence (login after offline use, a failed fetch, a stale cache). The
// policy is deliberately conservative and asymmetric: whichever side has more
// data wins outright, and only a strictly larger remote triggers a merge.
// There is no server-authoritative version or vector clock in this system, so
// this is a flaky-network survival heuristic, not a consistency protocol.
//
// Rules, in order:
//  1. Empty local: take remote unchanged.
//  2. Strictly larger remote: union by contact id. A contact present on both
//     sides keeps the newer access time (recents) or stays favorited (sets).
//  3. Otherwise keep local unchanged; never discard a larger local view for a
//     smaller or stale remote one.
//  4. Recents are sorted most-recent-first and truncated to limit after merging.

// ReconcileRecents merges two recently-viewed snapshots under the above rules.
// It never mutates its inputs.
func ReconcileRecents(remote, local []RecentEntry, limit int) []RecentEntry {
	var out []RecentEntry
	switch {
	case len(local) == 0:
		out = append(out, remote...)
	case len(remote) > len(local):
		byID := make(map[string]RecentEntry, len(remote)+len(local))
		for _, e := range remote {
			byID[e.ContactID] = e
		}
		for _, e := range local {
			if prev, ok := byID[e.ContactID]; !ok || e.AccessedAt.After(prev.AccessedAt) {
				byID[e.ContactID] = e
			}
		}
		out = make([]RecentEntry, 0, len(byID))
		for _, e := range byID {
			out = append(out, e)
		}
	default:
		out = append(out, local...)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].AccessedAt.Equal(out[j].AccessedAt) {
			return out[i].AccessedAt.After(out[j].AccessedAt)
		}
		return out[i].ContactID < out[j].ContactID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ReconcileFavorites merges two favorite id sets. Favorites are unordered, so
// a strictly larger remote simply unions the sets. The result is sorted for
// determinism.
func ReconcileFavorites(remote, local []string) []string {
	var out []string
	switch {
	case len(local) == 0:
		out = append(out, remote...)
	case len(remote) > len(local):
		seen := make(map[string]struct{}, len(remote)+len(local))
		for _, id := range remote {
			seen[id] = struct{}{}
		}
		for _, id := range local {
			seen[id] = struct{}{}
		}
		out = make([]string, 0, len(seen))
		for id := range seen {
			out = append(out, id)
		}
	default:
		out = append(out, local...)
	}
	sort.Strings(out)
	return dedupe(out)
}

// ReconcileContacts produces a merged contact list from a remote fetch and the
// locally held list. Contact rows are unioned by id with remote field values
// winning for rows both sides know; the favorite and recents annotations are
// reconciled per-concern so that, e.g., a large local recents history survives
// a small remote snapshot while favorites still union.
func ReconcileContacts(remote, local []Contact) []Contact {
	if len(local) == 0 {
		return append([]Contact(nil), remote...)
	}

	recents := ReconcileRecents(recentsOf(remote), recentsOf(local), RetentionCap)
	favorites := ReconcileFavorites(favoritesOf(remote), favoritesOf(local))

	// Union rows; remote wins the descriptive fields for shared ids, rows only
	// one side knows are kept.
	byID := make(map[string]Contact, len(remote)+len(local))
	order := make([]string, 0, len(remote)+len(local))
	for _, c := range local {
		byID[c.ID] = c
		order = append(order, c.ID)
	}
	for _, c := range remote {
		if _, ok := byID[c.ID]; !ok {
			order = append(order, c.ID)
		}
		byID[c.ID] = c
	}

	// Re-apply the reconciled annotations on top of the unioned rows.
	favSet := make(map[string]struct{}, len(favorites))
	for _, id := range favorites {
		favSet[id] = struct{}{}
	}
	accessAt := make(map[string]RecentEntry, len(recents))
	for _, e := range recents {
		accessAt[e.ContactID] = e
	}

	out := make([]Contact, 0, len(order))
	for _, id := range order {
		c := byID[id]
		_, c.IsFavorite = favSet[id]
		if e, ok := accessAt[id]; ok {
			t := e.AccessedAt
			c.LastAccessedAt = &t
		} else {
			c.LastAccessedAt = nil
		}
		out = append(out, c)
	}
	return out
}

func recentsOf(contacts []Contact) []RecentEntry {
	var out []RecentEntry
	for _, c := range contacts {
		if c.LastAccessedAt != nil {
			out = append(out, RecentEntry{ContactID: c.ID, AccessedAt: *c.LastAccessedAt})
		}
	}
	return out
}

func favoritesOf(contacts []Contact) []string {
	var out []string
	for _, c := range contacts {
		if c.IsFavorite {
			out = append(out, c.ID)
		}
	}
	return out
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || sorted[i-1] != s {
			out = append(out, s)
		}
	}
	return out
}
