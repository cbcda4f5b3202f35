package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunLock keeps two discovery runs of the same tenant from overlapping
// across processes.
type RunLock struct {
	client *redis.Client
}

func NewRunLock(client *redis.Client) *RunLock {
	return &RunLock{client: client}
}

func runLockKey(tenantID string) string {
	return fmt.Sprintf("discovery:lock:%s", tenantID)
}

// Acquire reports false when another holder owns the tenant's lock. The lock
// expires after ttl even if Release is never called.
func (l *RunLock) Acquire(ctx context.Context, tenantID, owner string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, runLockKey(tenantID), owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire discovery lock: %w", err)
	}
	return ok, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Release drops the lock only if owner still holds it.
func (l *RunLock) Release(ctx context.Context, tenantID, owner string) error {
	if err := releaseScript.Run(ctx, l.client, []string{runLockKey(tenantID)}, owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release discovery lock: %w", err)
	}
	return nil
}
