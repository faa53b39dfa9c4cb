package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLockBackend stores section locks as leased Redis keys so the
// single-lock-holder invariant survives horizontal scaling. Leases expire on
// TTL; a crashed holder frees its sections without manual cleanup.
type RedisLockBackend struct {
	rdb       *redis.Client
	leaseTTL  time.Duration
	keyPrefix string
}

func NewRedisLockBackend(rdb *redis.Client, leaseTTL time.Duration) *RedisLockBackend {
	if leaseTTL <= 0 {
		leaseTTL = 5 * time.Minute
	}
	return &RedisLockBackend{
		rdb:       rdb,
		leaseTTL:  leaseTTL,
		keyPrefix: "collab:lock",
	}
}

func (b *RedisLockBackend) key(sessionID, sectionID string) string {
	return fmt.Sprintf("%s:%s:%s", b.keyPrefix, sessionID, sectionID)
}

func (b *RedisLockBackend) TryAcquire(sessionID, sectionID, userID string) bool {
	ctx := context.Background()
	key := b.key(sessionID, sectionID)

	lock := SectionLock{UserID: userID, AcquiredAt: time.Now().UTC()}
	payload, _ := json.Marshal(lock)

	ok, err := b.rdb.SetNX(ctx, key, payload, b.leaseTTL).Result()
	if err != nil {
		return false
	}
	if ok {
		return true
	}

	// Re-entrant: the same holder refreshes its lease instead of failing.
	held, found := b.Holder(sessionID, sectionID)
	if found && held.UserID == userID {
		b.rdb.Expire(ctx, key, b.leaseTTL)
		return true
	}
	return false
}

func (b *RedisLockBackend) Release(sessionID, sectionID, userID string) {
	held, found := b.Holder(sessionID, sectionID)
	if !found || held.UserID != userID {
		return
	}
	b.rdb.Del(context.Background(), b.key(sessionID, sectionID))
}

func (b *RedisLockBackend) ReleaseAllForUser(sessionID, userID string) []string {
	var freed []string
	for sectionID, held := range b.HeldSections(sessionID) {
		if held.UserID == userID {
			b.rdb.Del(context.Background(), b.key(sessionID, sectionID))
			freed = append(freed, sectionID)
		}
	}
	return freed
}

func (b *RedisLockBackend) Holder(sessionID, sectionID string) (SectionLock, bool) {
	raw, err := b.rdb.Get(context.Background(), b.key(sessionID, sectionID)).Bytes()
	if err != nil {
		return SectionLock{}, false
	}
	var lock SectionLock
	if err := json.Unmarshal(raw, &lock); err != nil {
		return SectionLock{}, false
	}
	return lock, true
}

func (b *RedisLockBackend) HeldSections(sessionID string) map[string]SectionLock {
	ctx := context.Background()
	out := make(map[string]SectionLock)

	pattern := fmt.Sprintf("%s:%s:*", b.keyPrefix, sessionID)
	prefix := fmt.Sprintf("%s:%s:", b.keyPrefix, sessionID)

	iter := b.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := b.rdb.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var lock SectionLock
		if err := json.Unmarshal(raw, &lock); err != nil {
			continue
		}
		out[key[len(prefix):]] = lock
	}
	return out
}
