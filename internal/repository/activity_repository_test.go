package repository

import (
	"context"
	"testing"
	"time"

	"github.com/youthorg/admingate/internal/domain"
)

func TestActivityRepositoryListFiltersAndPages(t *testing.T) {
	repo := NewActivityRepository(newDBForTest(t))
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		entry := &domain.ActivityLog{
			ActorID:   "alice",
			Action:    domain.ActivityLogin,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(ctx, entry); err != nil {
			t.Fatalf("create: %v", err)
		}
		if entry.ID == "" {
			t.Fatalf("expected generated id")
		}
	}
	if err := repo.Create(ctx, &domain.ActivityLog{
		ActorID: domain.SystemActor, Action: domain.ActivityAutoBlock, Target: "bob", SystemAuthored: true,
	}); err != nil {
		t.Fatalf("create system entry: %v", err)
	}

	page, err := repo.List(ctx, ActivityQuery{PageRequest: PageRequest{Page: 1, PageSize: 2}, ActorID: "alice"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 5 || page.TotalPages != 3 || len(page.Items) != 2 {
		t.Fatalf("unexpected page: total=%d pages=%d items=%d", page.Total, page.TotalPages, len(page.Items))
	}
	if !page.Items[0].CreatedAt.After(page.Items[1].CreatedAt) {
		t.Fatalf("expected newest first")
	}

	blocks, err := repo.List(ctx, ActivityQuery{Action: domain.ActivityAutoBlock})
	if err != nil {
		t.Fatalf("list blocks: %v", err)
	}
	if blocks.Total != 1 || !blocks.Items[0].SystemAuthored || blocks.Items[0].Target != "bob" {
		t.Fatalf("unexpected auto block entries: %+v", blocks.Items)
	}
}
