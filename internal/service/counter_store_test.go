package service

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryCounterStoreFixedWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewInMemoryCounterStore()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		c, err := store.Increment(ctx, "k", time.Minute)
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if c.Count != want {
			t.Fatalf("expected %d, got %d", want, c.Count)
		}
		if !c.ResetAt.Equal(now.Add(time.Minute)) {
			t.Fatalf("unexpected reset time %v", c.ResetAt)
		}
	}

	now = now.Add(59 * time.Second)
	if c, _ := store.Increment(ctx, "k", time.Minute); c.Count != 4 {
		t.Fatalf("window should still be open, got %d", c.Count)
	}
	now = now.Add(time.Second)
	if c, _ := store.Increment(ctx, "k", time.Minute); c.Count != 1 {
		t.Fatalf("window should have reset, got %d", c.Count)
	}
	if c, _ := store.Increment(ctx, "other", time.Minute); c.Count != 1 {
		t.Fatalf("keys must be independent, got %d", c.Count)
	}
}

func TestRedisCounterStoreFixedWindow(t *testing.T) {
	server, client := newRedisClientForTest(t)
	store := NewRedisCounterStore(client, "rl_test")
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		c, err := store.Increment(ctx, "user:u1:delete", time.Minute)
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if c.Count != want {
			t.Fatalf("expected %d, got %d", want, c.Count)
		}
	}
	if ttl := server.TTL("rl_test:user:u1:delete"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected window ttl, got %v", ttl)
	}

	server.FastForward(time.Minute)
	c, err := store.Increment(ctx, "user:u1:delete", time.Minute)
	if err != nil {
		t.Fatalf("increment after window: %v", err)
	}
	if c.Count != 1 {
		t.Fatalf("expected reset after window, got %d", c.Count)
	}
}

func TestRedisCounterStoreBackendError(t *testing.T) {
	server, client := newRedisClientForTest(t)
	store := NewRedisCounterStore(client, "rl_test")
	server.Close()
	if _, err := store.Increment(context.Background(), "k", time.Minute); err == nil {
		t.Fatal("expected error when redis is down")
	}
}
