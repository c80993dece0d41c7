// Package session implements the collaborator-boundary lock manager
// spec.md §4.6/§5 describes: exclusive and shared locks on
// (entity_type, entity_id) with expiry and lazy reaping. Ownership of
// WorkSession records and file-modification tracking belongs to an
// external session service spec.md explicitly scopes out of the core;
// only the lock acquisition interface lives here.
package session

import "time"

// Kind distinguishes an exclusive lock (one owner, no concurrent
// readers or writers) from a shared lock (many owners, no exclusive
// writer).
type Kind int

const (
	Shared Kind = iota
	Exclusive
)

func (k Kind) String() string {
	if k == Exclusive {
		return "EXCLUSIVE"
	}
	return "SHARED"
}

// EntityKey identifies the resource a lock guards.
type EntityKey struct {
	EntityType string
	EntityID   string
}

// Lock describes one owner's hold on an EntityKey, returned by Acquire
// and by introspection calls so callers can report who holds what.
type Lock struct {
	Key        EntityKey
	Kind       Kind
	Owner      string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

func (l Lock) expired(now time.Time) bool {
	return !l.ExpiresAt.IsZero() && now.After(l.ExpiresAt)
}
