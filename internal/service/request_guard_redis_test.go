package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/youthorg/admingate/internal/domain"
)

func TestRedisRequestGuardSharesCountsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	server, client := newRedisClientForTest(t)
	policy := QuotaPolicy{
		Window: time.Minute,
		Limits: map[domain.Verb]int{domain.VerbRead: 5, domain.VerbWrite: 2, domain.VerbDelete: 3},
	}
	first := NewRequestGuard(NewRedisCounterStore(client, "guard_test"), policy, FailClosed, nil, "redis", discardLogger())
	second := NewRequestGuard(NewRedisCounterStore(client, "guard_test"), policy, FailClosed, nil, "redis", discardLogger())

	if _, err := first.Check(ctx, "u1", domain.VerbWrite); err != nil {
		t.Fatalf("first write: %v", err)
	}
	d, err := second.Check(ctx, "u1", domain.VerbWrite)
	if err != nil {
		t.Fatalf("second write: %v", err)
	}
	if d.Count != 2 || d.Remaining != 0 {
		t.Fatalf("expected shared count 2 with nothing remaining, got %+v", d)
	}
	if _, err := first.Check(ctx, "u1", domain.VerbWrite); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected third write across instances to be limited, got %v", err)
	}

	if _, err := first.Check(ctx, "u2", domain.VerbWrite); err != nil {
		t.Fatalf("other user must have its own window: %v", err)
	}
	if _, err := first.Check(ctx, "u1", domain.VerbRead); err != nil {
		t.Fatalf("reads must be counted separately from writes: %v", err)
	}

	server.FastForward(time.Minute + time.Second)
	d, err = second.Check(ctx, "u1", domain.VerbWrite)
	if err != nil {
		t.Fatalf("write after window: %v", err)
	}
	if d.Count != 1 {
		t.Fatalf("expected fresh window, got count %d", d.Count)
	}
}
