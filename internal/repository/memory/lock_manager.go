package memory

import (
	"context"
	"sync"
	"time"

	"sharide/internal/repository"
	"sharide/pkg/utils"
)

var _ repository.LockManager = (*LockManager)(nil)

// DefaultSweepInterval is how often expired locks are purged.
const DefaultSweepInterval = time.Second

type lockEntry struct {
	token     string
	expiresAt time.Time
}

// LockManager hands out named locks that expire after a TTL. The ledger
// uses it to reject a second rating from the same rater to the same ratee
// while the first one is still being written.
//
// Locks live in this process only; a multi-instance deployment needs a
// shared lock service instead.
//
// Go Learning Note — Channels for Signaling:
// stop is a chan struct{} closed exactly once by Stop. Every goroutine
// selecting on it wakes up, because a receive on a closed channel returns
// immediately. done is closed by the sweeper on exit so Stop can wait for it.
type LockManager struct {
	mu       sync.Mutex
	locks    map[string]*lockEntry
	now      func() time.Time
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewLockManager starts a lock manager sweeping expired locks every
// DefaultSweepInterval.
func NewLockManager() *LockManager {
	return NewLockManagerWithSweep(DefaultSweepInterval)
}

// NewLockManagerWithSweep starts a lock manager with a custom sweep
// interval. Call Stop to end the sweeper goroutine.
func NewLockManagerWithSweep(interval time.Duration) *LockManager {
	lm := &LockManager{
		locks: make(map[string]*lockEntry),
		now:   time.Now,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go lm.sweep(interval)
	return lm
}

// AcquireLock takes key for ttl and returns the token that releases it. It
// reports false when key is held and not yet expired; an expired holder is
// silently replaced.
func (lm *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	now := lm.now()
	if entry, exists := lm.locks[key]; exists && now.Before(entry.expiresAt) {
		return "", false, nil
	}
	token := utils.GenerateID()
	lm.locks[key] = &lockEntry{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

// ReleaseLock drops key if token still owns it. Releasing a lock that is not
// held, or that has since been taken over by another holder, is a no-op.
func (lm *LockManager) ReleaseLock(ctx context.Context, key, token string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if entry, exists := lm.locks[key]; exists && entry.token == token {
		delete(lm.locks, key)
	}
	return nil
}

func (lm *LockManager) IsLocked(ctx context.Context, key string) (bool, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	entry, exists := lm.locks[key]
	return exists && lm.now().Before(entry.expiresAt), nil
}

func (lm *LockManager) sweep(interval time.Duration) {
	defer close(lm.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lm.purgeExpired()
		case <-lm.stop:
			return
		}
	}
}

func (lm *LockManager) purgeExpired() int {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	now := lm.now()
	purged := 0
	for key, entry := range lm.locks {
		if !now.Before(entry.expiresAt) {
			delete(lm.locks, key)
			purged++
		}
	}
	return purged
}

// Stop ends the sweeper and waits for it to exit. It is safe to call more
// than once.
func (lm *LockManager) Stop() {
	lm.stopOnce.Do(func() { close(lm.stop) })
	<-lm.done
}
