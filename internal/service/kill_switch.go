package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/identity"
	"github.com/youthorg/admingate/internal/observability"
	"github.com/youthorg/admingate/internal/repository"
)

type KillOutcome string

const (
	KillBlocked        KillOutcome = "blocked"
	KillAlreadyBlocked KillOutcome = "already_blocked"
	KillExempt         KillOutcome = "exempt"
	KillFailed         KillOutcome = "failed"
)

// KillSwitch suspends an account that crossed the mass-deletion threshold.
// Protected accounts are never touched.
type KillSwitch struct {
	accounts repository.AccountRepository
	sessions repository.SessionStore
	idp      identity.Admin
	activity *ActivityLogger
	logger   *slog.Logger
}

func NewKillSwitch(accounts repository.AccountRepository, sessions repository.SessionStore, idp identity.Admin, activity *ActivityLogger, logger *slog.Logger) *KillSwitch {
	if idp == nil {
		idp = identity.NoopAdmin{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KillSwitch{accounts: accounts, sessions: sessions, idp: idp, activity: activity, logger: logger}
}

// Trip never returns an error or panics; the outcome is reported for logging
// and tests only.
func (k *KillSwitch) Trip(ctx context.Context, userID, reason string) (outcome KillOutcome) {
	ctx = context.WithoutCancel(ctx)
	defer func() {
		if rec := recover(); rec != nil {
			k.logger.Error("kill switch panicked", "user_id", userID, "panic", fmt.Sprint(rec))
			outcome = KillFailed
		}
		observability.RecordKillSwitch(ctx, string(outcome))
	}()

	account, err := k.accounts.FindByID(ctx, userID)
	if err != nil {
		k.logger.Error("kill switch account lookup failed", "user_id", userID, "error", err)
		return KillFailed
	}
	if account.Protected {
		k.logger.Warn("kill switch skipped for protected account", "user_id", userID, "reason", reason)
		return KillExempt
	}

	outcome = KillAlreadyBlocked
	if !account.IsBlocked {
		if err := k.accounts.SetBlocked(ctx, userID, true, reason); err != nil {
			k.logger.Error("kill switch block failed", "user_id", userID, "error", err)
			return KillFailed
		}
		outcome = KillBlocked
		if account.ExternalID != "" {
			if err := k.idp.DisableUser(ctx, account.ExternalID); err != nil {
				k.logger.Error("kill switch identity provider disable failed",
					"user_id", userID,
					"external_id", account.ExternalID,
					"error", err,
				)
			}
		}
		k.activity.System(ctx, domain.ActivityAutoBlock, userID, reason)
		k.logger.Warn("account automatically blocked", "user_id", userID, "reason", reason)
	}

	k.purgeSessions(ctx, userID)
	return outcome
}

func (k *KillSwitch) purgeSessions(ctx context.Context, userID string) {
	records, err := k.sessions.ListByUser(ctx, userID)
	if err != nil {
		k.logger.Error("kill switch session listing failed", "user_id", userID, "error", err)
		return
	}
	for _, rec := range records {
		if err := k.sessions.Delete(ctx, rec.SessionID); err != nil {
			k.logger.Error("kill switch session purge failed", "user_id", userID, "session_id", rec.SessionID, "error", err)
		}
	}
}
