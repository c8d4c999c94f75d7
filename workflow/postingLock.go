package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"github.com/bsm/redislock"
)

// AcquireAccountPostingLock serializes stock/ledger posting per account.
// Best-effort: when Redis is not wired (tests, local dev) the lock degrades
// to a no-op and the MySQL transaction remains the consistency boundary.
func AcquireAccountPostingLock(ctx context.Context, accountId string) (*redislock.Lock, error) {
	locker := config.GetRedisLock()
	if locker == nil {
		return nil, nil
	}
	lock, err := locker.Obtain(ctx, "posting:"+accountId, 30*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(200*time.Millisecond), 25),
	})
	if err == redislock.ErrNotObtained {
		return nil, err
	}
	if err != nil {
		// Redis being down must not block posting.
		config.LogError(config.GetLogger(), "workflow", "AcquireAccountPostingLock", "obtain", accountId, err)
		return nil, nil
	}
	return lock, nil
}

func ReleaseAccountPostingLock(ctx context.Context, lock *redislock.Lock) {
	if lock == nil {
		return
	}
	if err := lock.Release(ctx); err != nil && err != redislock.ErrLockNotHeld {
		config.LogError(config.GetLogger(), "workflow", "ReleaseAccountPostingLock", "release", nil, err)
	}
}
