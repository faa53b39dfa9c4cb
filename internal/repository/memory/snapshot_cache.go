package memory

import (
	"time"

	"research-collab-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// SnapshotCache keeps recently synced session documents so analytics and
// rejoin paths avoid a database round trip for hot sessions.
type SnapshotCache struct {
	cache *cache.Cache
}

func NewSnapshotCache() *SnapshotCache {
	// Snapshots go stale quickly once editors are active; a short TTL with
	// periodic purging keeps the cache honest.
	c := cache.New(10*time.Minute, 5*time.Minute)
	return &SnapshotCache{
		cache: c,
	}
}

func (r *SnapshotCache) Save(session *entity.CollabSession) {
	r.cache.Set(session.SessionID, session, cache.DefaultExpiration)
}

func (r *SnapshotCache) Get(sessionID string) (*entity.CollabSession, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*entity.CollabSession), true
	}
	return nil, false
}

func (r *SnapshotCache) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
