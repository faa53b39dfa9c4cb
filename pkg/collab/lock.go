package collab

import (
	"sync"
	"time"
)

// SectionLock records who holds the advisory lock on a section.
type SectionLock struct {
	UserID     string    `json:"user_id"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// LockBackend is the storage behind the lock table. The in-memory backend is
// the default for single-process deployment; a shared backend (e.g. Redis
// leases) is the extension point for horizontal scaling.
type LockBackend interface {
	// TryAcquire locks (sessionID, sectionID) for userID. Succeeds if the
	// section is unlocked or already held by the same user (re-entrant).
	TryAcquire(sessionID, sectionID, userID string) bool

	// Release unlocks the section. No-op when userID is not the holder.
	Release(sessionID, sectionID, userID string)

	// ReleaseAllForUser drops every lock userID holds in the session and
	// returns the section ids that were freed.
	ReleaseAllForUser(sessionID, userID string) []string

	// Holder returns the current lock for the section, if any.
	Holder(sessionID, sectionID string) (SectionLock, bool)

	// HeldSections lists the sections currently locked in the session.
	HeldSections(sessionID string) map[string]SectionLock
}

// MemoryLockBackend keeps locks in process memory.
type MemoryLockBackend struct {
	mu    sync.Mutex
	locks map[string]map[string]SectionLock // sessionID -> sectionID -> lock
}

func NewMemoryLockBackend() *MemoryLockBackend {
	return &MemoryLockBackend{
		locks: make(map[string]map[string]SectionLock),
	}
}

func (b *MemoryLockBackend) TryAcquire(sessionID, sectionID, userID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	sections, ok := b.locks[sessionID]
	if !ok {
		sections = make(map[string]SectionLock)
		b.locks[sessionID] = sections
	}

	if held, ok := sections[sectionID]; ok {
		return held.UserID == userID
	}

	sections[sectionID] = SectionLock{UserID: userID, AcquiredAt: time.Now().UTC()}
	return true
}

func (b *MemoryLockBackend) Release(sessionID, sectionID, userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sections, ok := b.locks[sessionID]
	if !ok {
		return
	}
	if held, ok := sections[sectionID]; ok && held.UserID == userID {
		delete(sections, sectionID)
	}
	if len(sections) == 0 {
		delete(b.locks, sessionID)
	}
}

func (b *MemoryLockBackend) ReleaseAllForUser(sessionID, userID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	sections, ok := b.locks[sessionID]
	if !ok {
		return nil
	}

	var freed []string
	for sectionID, held := range sections {
		if held.UserID == userID {
			freed = append(freed, sectionID)
			delete(sections, sectionID)
		}
	}
	if len(sections) == 0 {
		delete(b.locks, sessionID)
	}
	return freed
}

func (b *MemoryLockBackend) Holder(sessionID, sectionID string) (SectionLock, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sections, ok := b.locks[sessionID]
	if !ok {
		return SectionLock{}, false
	}
	held, ok := sections[sectionID]
	return held, ok
}

func (b *MemoryLockBackend) HeldSections(sessionID string) map[string]SectionLock {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]SectionLock)
	for sectionID, held := range b.locks[sessionID] {
		out[sectionID] = held
	}
	return out
}

// LockTable is the per-session, per-section advisory lock registry. Well
// behaved callers (the session manager) must acquire before committing an edit
// and release on apply, explicit release, or member departure.
type LockTable struct {
	backend LockBackend
}

func NewLockTable(backend LockBackend) *LockTable {
	if backend == nil {
		backend = NewMemoryLockBackend()
	}
	return &LockTable{backend: backend}
}

func (t *LockTable) Acquire(sessionID, sectionID, userID string) bool {
	return t.backend.TryAcquire(sessionID, sectionID, userID)
}

func (t *LockTable) Release(sessionID, sectionID, userID string) {
	t.backend.Release(sessionID, sectionID, userID)
}

// ReleaseAllForUser must run whenever a member leaves or disconnects so no
// section stays permanently stuck behind a gone user.
func (t *LockTable) ReleaseAllForUser(sessionID, userID string) []string {
	return t.backend.ReleaseAllForUser(sessionID, userID)
}

func (t *LockTable) Holder(sessionID, sectionID string) (SectionLock, bool) {
	return t.backend.Holder(sessionID, sectionID)
}

func (t *LockTable) HeldSections(sessionID string) map[string]SectionLock {
	return t.backend.HeldSections(sessionID)
}
