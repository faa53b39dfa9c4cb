package collab

import "sync"

// defaultActivityCap bounds the per-session activity log. Memory bound only,
// not a correctness invariant; persisted analytics keep the full history.
const defaultActivityCap = 100

// ActivityLog is a bounded append-only log of member actions in one session.
// When the cap is exceeded the oldest entries are evicted first.
type ActivityLog struct {
	mu      sync.RWMutex
	cap     int
	entries []Activity
}

func NewActivityLog(capacity int) *ActivityLog {
	if capacity <= 0 {
		capacity = defaultActivityCap
	}
	return &ActivityLog{cap: capacity}
}

func (l *ActivityLog) Append(a Activity) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, a)
	if len(l.entries) > l.cap {
		l.entries = l.entries[len(l.entries)-l.cap:]
	}
}

// Recent returns up to n most recent entries in chronological order.
// n <= 0 returns everything retained.
func (l *ActivityLog) Recent(n int) []Activity {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Activity, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

func (l *ActivityLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// CountByType tallies retained entries per activity type.
func (l *ActivityLog) CountByType() map[ActivityType]int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	counts := make(map[ActivityType]int)
	for _, a := range l.entries {
		counts[a.ActivityType]++
	}
	return counts
}
