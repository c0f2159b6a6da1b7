package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryCreateGetRevoke(t *testing.T) {
	store := NewMemoryStore(slidingConfig(), 0)
	defer store.Close()
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SubjectID != "user-1" {
		t.Fatalf("subject mismatch: %q", got.SubjectID)
	}

	if err := store.Revoke(ctx, sess.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := store.Revoke(ctx, sess.ID); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if _, err := store.Get(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryLazyEvictionOnExpiry(t *testing.T) {
	// No background sweep; expiry is enforced on access alone.
	cfg := Config{MaxLifetime: 30 * time.Millisecond}
	store := NewMemoryStore(cfg, 0)
	defer store.Close()
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	if _, err := store.Get(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}

	count, err := store.ActiveSessionCount(ctx, "user-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected evicted index, got %d", count)
	}
}

func TestMemoryCountExcludesExpiredBeforeSweep(t *testing.T) {
	// No sweep and no intervening Get; the count itself must not see the
	// expired record.
	cfg := Config{MaxLifetime: 30 * time.Millisecond}
	store := NewMemoryStore(cfg, 0)
	defer store.Close()
	ctx := context.Background()

	if _, err := store.Create(ctx, "user-1"); err != nil {
		t.Fatalf("create: %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	count, err := store.ActiveSessionCount(ctx, "user-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expired session still counted: got %d, want 0", count)
	}

	store.mu.RLock()
	_, indexed := store.bySubj["user-1"]
	store.mu.RUnlock()
	if indexed {
		t.Fatal("expired session left behind in the subject index")
	}
}

func TestMemorySweepEvictsExpired(t *testing.T) {
	cfg := Config{MaxLifetime: 20 * time.Millisecond}
	store := NewMemoryStore(cfg, 10*time.Millisecond)
	defer store.Close()
	ctx := context.Background()

	if _, err := store.Create(ctx, "user-1"); err != nil {
		t.Fatalf("create: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		store.mu.RLock()
		remaining := len(store.sessions)
		store.mu.RUnlock()
		if remaining == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("sweep did not evict the expired session")
}

func TestMemoryTouchSlidesButRespectsCap(t *testing.T) {
	cfg := Config{
		MaxLifetime: time.Hour,
		Window:      time.Hour,
	}
	store := NewMemoryStore(cfg, 0)
	defer store.Close()
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	touched, err := store.Touch(ctx, sess.ID)
	if err != nil {
		t.Fatalf("touch: %v", err)
	}

	hardCap := time.Unix(touched.CreatedAt, 0).Add(cfg.MaxLifetime).Unix()
	if touched.ExpiresAt > hardCap {
		t.Fatalf("touch pushed expiry past the cap: %d > %d", touched.ExpiresAt, hardCap)
	}
}

func TestMemoryTouchNeverRevivesExpired(t *testing.T) {
	cfg := Config{
		MaxLifetime: time.Hour,
		Window:      30 * time.Millisecond,
	}
	store := NewMemoryStore(cfg, 0)
	defer store.Close()
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	if _, err := store.Touch(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryConcurrentTouch(t *testing.T) {
	store := NewMemoryStore(slidingConfig(), 0)
	defer store.Close()
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := store.Touch(ctx, sess.ID); err != nil {
					t.Errorf("touch: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get after touches: %v", err)
	}
	hardCap := time.Unix(got.CreatedAt, 0).Add(store.cfg.MaxLifetime).Unix()
	if got.ExpiresAt > hardCap {
		t.Fatalf("concurrent touches pushed expiry past the cap")
	}
}

func TestMemoryRevokeAllForSubject(t *testing.T) {
	store := NewMemoryStore(slidingConfig(), 0)
	defer store.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Create(ctx, "user-1"); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	other, err := store.Create(ctx, "user-2")
	if err != nil {
		t.Fatalf("create other: %v", err)
	}

	if err := store.RevokeAllForSubject(ctx, "user-1"); err != nil {
		t.Fatalf("revoke all: %v", err)
	}

	count, err := store.ActiveSessionCount(ctx, "user-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 sessions, got %d", count)
	}

	if _, err := store.Get(ctx, other.ID); err != nil {
		t.Fatalf("unrelated session was revoked: %v", err)
	}
}

func TestMemoryCloseIdempotent(t *testing.T) {
	store := NewMemoryStore(slidingConfig(), time.Minute)
	if err := store.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
