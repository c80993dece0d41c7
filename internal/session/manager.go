package session

import (
	"sync"
	"time"

	"github.com/cortexmind/cortexd/internal/cerrors"
)

// DefaultTTL is used when Acquire is called with a zero ttl.
const DefaultTTL = 5 * time.Minute

// LockManager grants exclusive and shared locks on EntityKeys with
// expiry, reaping expired holders lazily on the next Acquire/Release/
// Holders call touching that key rather than running a background
// sweep. A zero-value LockManager is not usable; construct one with
// NewLockManager.
type LockManager struct {
	mu    sync.Mutex
	now   func() time.Time
	locks map[EntityKey]map[string]Lock // key -> owner -> held lock
}

// NewLockManager constructs an empty LockManager.
func NewLockManager() *LockManager {
	return &LockManager{
		now:   time.Now,
		locks: make(map[EntityKey]map[string]Lock),
	}
}

// Acquire grants owner a lock of kind on key for ttl (DefaultTTL if
// zero). Re-acquiring by the same owner refreshes expiry and may change
// kind as long as no other owner's hold would conflict. Acquisition
// fails with cerrors.KindConflict when an incompatible lock is held by
// a different owner: any lock conflicts with a different owner's
// Exclusive request, and any existing Exclusive holder conflicts with
// every other owner's request regardless of kind.
func (m *LockManager) Acquire(key EntityKey, owner string, kind Kind, ttl time.Duration) (Lock, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	holders := m.reapLocked(key, now)

	if existing, ok := holders[owner]; ok {
		if kind == Exclusive && len(holders) > 1 {
			return Lock{}, cerrors.Conflict("session: cannot upgrade to exclusive while other owners hold this entity")
		}
		granted := Lock{Key: key, Kind: kind, Owner: owner, AcquiredAt: existing.AcquiredAt, ExpiresAt: now.Add(ttl)}
		holders[owner] = granted
		return granted, nil
	}

	for _, l := range holders {
		if l.Kind == Exclusive || kind == Exclusive {
			return Lock{}, cerrors.Conflict("session: entity already locked by another owner")
		}
	}

	granted := Lock{Key: key, Kind: kind, Owner: owner, AcquiredAt: now, ExpiresAt: now.Add(ttl)}
	if holders == nil {
		holders = make(map[string]Lock)
		m.locks[key] = holders
	}
	holders[owner] = granted
	return granted, nil
}

// Release drops owner's hold on key. Releasing a lock that does not
// exist (never held, already released, or reaped) returns
// cerrors.KindNotFound.
func (m *LockManager) Release(key EntityKey, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	holders := m.reapLocked(key, m.now())
	if _, ok := holders[owner]; !ok {
		return cerrors.NotFound("session: no lock held by owner on this entity")
	}
	delete(holders, owner)
	if len(holders) == 0 {
		delete(m.locks, key)
	}
	return nil
}

// Holders returns the current, non-expired locks on key.
func (m *LockManager) Holders(key EntityKey) []Lock {
	m.mu.Lock()
	defer m.mu.Unlock()

	holders := m.reapLocked(key, m.now())
	out := make([]Lock, 0, len(holders))
	for _, l := range holders {
		out = append(out, l)
	}
	return out
}

// Reap sweeps every tracked key for expired holders, returning the
// number of locks removed. Acquire/Release/Holders already reap the key
// they touch lazily; Reap exists for callers that want to bound total
// memory use of keys nobody is actively contending for.
func (m *LockManager) Reap() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key := range m.locks {
		before := len(m.locks[key])
		m.reapLocked(key, now)
		removed += before - len(m.locks[key])
	}
	return removed
}

// reapLocked drops expired holders from key's entry, deleting the entry
// entirely when no holder remains, and returns the (possibly nil)
// surviving holder map. Caller must hold m.mu.
func (m *LockManager) reapLocked(key EntityKey, now time.Time) map[string]Lock {
	holders, ok := m.locks[key]
	if !ok {
		return nil
	}
	for owner, l := range holders {
		if l.expired(now) {
			delete(holders, owner)
		}
	}
	if len(holders) == 0 {
		delete(m.locks, key)
		return nil
	}
	return holders
}
