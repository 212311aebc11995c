package memory

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestLockManager_AcquireRelease(t *testing.T) {
	defer goleak.VerifyNone(t)

	lm := NewLockManager()
	defer lm.Stop()
	ctx := context.Background()

	token, ok, err := lm.AcquireLock(ctx, "rating:u1:u2", time.Minute)
	if err != nil || !ok || token == "" {
		t.Fatalf("Expected first acquire to succeed, got ok=%v err=%v", ok, err)
	}

	_, ok, _ = lm.AcquireLock(ctx, "rating:u1:u2", time.Minute)
	if ok {
		t.Error("Expected second acquire to fail while held")
	}

	locked, _ := lm.IsLocked(ctx, "rating:u1:u2")
	if !locked {
		t.Error("Expected key to be locked")
	}

	if err := lm.ReleaseLock(ctx, "rating:u1:u2", token); err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}
	_, ok, _ = lm.AcquireLock(ctx, "rating:u1:u2", time.Minute)
	if !ok {
		t.Error("Expected acquire after release to succeed")
	}
}

func TestLockManager_ExpiredLockIsFree(t *testing.T) {
	defer goleak.VerifyNone(t)

	lm := NewLockManager()
	defer lm.Stop()
	ctx := context.Background()

	current := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	lm.mu.Lock()
	lm.now = func() time.Time { return current }
	lm.mu.Unlock()

	lm.AcquireLock(ctx, "k", time.Second)

	lm.mu.Lock()
	current = current.Add(2 * time.Second)
	lm.mu.Unlock()

	if locked, _ := lm.IsLocked(ctx, "k"); locked {
		t.Error("Expected lock to have expired")
	}
	if _, ok, _ := lm.AcquireLock(ctx, "k", time.Second); !ok {
		t.Error("Expected expired lock to be re-acquirable")
	}
}

func TestLockManager_StaleReleaseKeepsSuccessor(t *testing.T) {
	defer goleak.VerifyNone(t)

	lm := NewLockManager()
	defer lm.Stop()
	ctx := context.Background()

	current := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	lm.mu.Lock()
	lm.now = func() time.Time { return current }
	lm.mu.Unlock()

	first, _, _ := lm.AcquireLock(ctx, "rating:u1:u2", time.Second)

	lm.mu.Lock()
	current = current.Add(2 * time.Second)
	lm.mu.Unlock()

	second, ok, _ := lm.AcquireLock(ctx, "rating:u1:u2", time.Second)
	if !ok {
		t.Fatal("Expected expired lock to be taken over")
	}

	// the first holder finishing late must not free the successor's lock
	if err := lm.ReleaseLock(ctx, "rating:u1:u2", first); err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}
	if locked, _ := lm.IsLocked(ctx, "rating:u1:u2"); !locked {
		t.Fatal("Expected successor to still hold the lock")
	}

	if err := lm.ReleaseLock(ctx, "rating:u1:u2", second); err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}
	if locked, _ := lm.IsLocked(ctx, "rating:u1:u2"); locked {
		t.Error("Expected lock to be free after its holder released it")
	}
}

func TestLockManager_PurgeExpired(t *testing.T) {
	defer goleak.VerifyNone(t)

	lm := NewLockManagerWithSweep(time.Hour)
	defer lm.Stop()
	ctx := context.Background()

	lm.AcquireLock(ctx, "short", time.Nanosecond)
	lm.AcquireLock(ctx, "long", time.Hour)
	time.Sleep(time.Millisecond)

	if purged := lm.purgeExpired(); purged != 1 {
		t.Errorf("Expected 1 purged lock, got %d", purged)
	}
	if locked, _ := lm.IsLocked(ctx, "long"); !locked {
		t.Error("Expected long lock to survive the sweep")
	}
}

func TestLockManager_StopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	lm := NewLockManager()
	lm.Stop()
	lm.Stop()
}

func TestLockManager_CancelledContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	lm := NewLockManager()
	defer lm.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := lm.AcquireLock(ctx, "k", time.Second); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
