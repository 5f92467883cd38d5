package service

import (
	"context"
	"log/slog"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/observability"
	"github.com/youthorg/admingate/internal/repository"
)

// ActivityLogger writes audit entries on a best-effort basis. Failures are
// reported to the operator log and a metric, never to the caller.
type ActivityLogger struct {
	repo   repository.ActivityRepository
	logger *slog.Logger
}

func NewActivityLogger(repo repository.ActivityRepository, logger *slog.Logger) *ActivityLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityLogger{repo: repo, logger: logger}
}

func (l *ActivityLogger) Record(ctx context.Context, entry domain.ActivityLog) {
	if l == nil || l.repo == nil {
		return
	}
	if err := l.repo.Create(context.WithoutCancel(ctx), &entry); err != nil {
		observability.RecordActivityLogFailure(ctx, string(entry.Action))
		l.logger.Warn("activity log write failed",
			"action", string(entry.Action),
			"actor_id", entry.ActorID,
			"target", entry.Target,
			"error", err,
		)
	}
}

// System records an entry authored by an automatic policy.
func (l *ActivityLogger) System(ctx context.Context, action domain.ActivityAction, target, detail string) {
	l.Record(ctx, domain.ActivityLog{
		ActorID:        domain.SystemActor,
		ActorName:      domain.SystemActor,
		Action:         action,
		Target:         target,
		Detail:         detail,
		SystemAuthored: true,
	})
}

func (l *ActivityLogger) List(ctx context.Context, query repository.ActivityQuery) (repository.PageResult[domain.ActivityLog], error) {
	return l.repo.List(ctx, query)
}
