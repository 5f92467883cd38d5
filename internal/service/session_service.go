package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/observability"
	"github.com/youthorg/admingate/internal/repository"
	"github.com/youthorg/admingate/internal/security"
)

type SessionView struct {
	domain.SessionRecord
	IsCurrent bool `json:"isCurrent"`
	IsStale   bool `json:"isStale"`
}

type SessionService struct {
	sessions     repository.SessionStore
	codec        *security.TokenCodec
	activity     *ActivityLogger
	elevatedRole string
	staleAfter   time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

func NewSessionService(sessions repository.SessionStore, codec *security.TokenCodec, activity *ActivityLogger, elevatedRole string, staleAfter time.Duration, logger *slog.Logger) *SessionService {
	if staleAfter <= 0 {
		staleAfter = domain.DefaultStaleAfter
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		sessions:     sessions,
		codec:        codec,
		activity:     activity,
		elevatedRole: elevatedRole,
		staleAfter:   staleAfter,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *SessionService) IsElevated(p *Principal) bool {
	return p != nil && domain.HasElevatedAuthority(p.Role, p.Permissions, s.elevatedRole)
}

// Authenticate resolves a raw token into a principal. A structurally valid
// token whose session record is gone yields ErrSessionRevoked. Store
// failures fail closed with ErrStoreUnavailable.
func (s *SessionService) Authenticate(ctx context.Context, raw string) (*Principal, error) {
	tok, err := s.codec.Decode(raw)
	if err != nil {
		observability.RecordAccessTokenValidation(ctx, "invalid", "cookie")
		return nil, ErrUnauthenticated
	}
	if tok.Expired(s.now()) {
		observability.RecordAccessTokenValidation(ctx, "expired", "cookie")
		return nil, ErrUnauthenticated
	}
	rec, err := s.sessions.Get(ctx, tok.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			observability.RecordAccessTokenValidation(ctx, "revoked", "cookie")
			return nil, ErrSessionRevoked
		}
		observability.RecordAccessTokenValidation(ctx, "store_error", "cookie")
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if rec.UserID != tok.UserID {
		observability.RecordAccessTokenValidation(ctx, "mismatch", "cookie")
		return nil, ErrUnauthenticated
	}
	observability.RecordAccessTokenValidation(ctx, "valid", "cookie")
	return principalFromToken(tok), nil
}

// IsSessionValid is the side-effect-free liveness check polled by clients.
// It answers true when the store cannot be reached.
func (s *SessionService) IsSessionValid(ctx context.Context, raw string) bool {
	tok, err := s.codec.Decode(raw)
	if err != nil || tok.Expired(s.now()) {
		observability.RecordSessionStatusCheck(ctx, "invalid")
		return false
	}
	rec, err := s.sessions.Get(ctx, tok.SessionID)
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		observability.RecordSessionStatusCheck(ctx, "revoked")
		return false
	case err != nil:
		s.logger.Warn("session status check failed open", "session_id", tok.SessionID, "error", err)
		observability.RecordSessionStatusCheck(ctx, "fail_open")
		return true
	case rec.UserID != tok.UserID:
		observability.RecordSessionStatusCheck(ctx, "invalid")
		return false
	}
	observability.RecordSessionStatusCheck(ctx, "valid")
	return true
}

// Revoke deletes a session on behalf of its owner or an elevated actor.
// Non-elevated callers get ErrForbidden for unknown ids as well as foreign
// ones. The delete completes even if the caller goes away.
func (s *SessionService) Revoke(ctx context.Context, actor *Principal, sessionID string) error {
	ctx = context.WithoutCancel(ctx)
	elevated := s.IsElevated(actor)
	rec, err := s.sessions.Get(ctx, sessionID)
	switch {
	case errors.Is(err, repository.ErrSessionNotFound) && !elevated:
		return ErrForbidden
	case errors.Is(err, repository.ErrSessionNotFound):
		return err
	case err != nil:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	kind := "owner"
	if rec.UserID != actor.UserID {
		if !elevated {
			return ErrForbidden
		}
		kind = "elevated"
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	observability.RecordSessionRevocation(ctx, kind)
	s.activity.Record(ctx, domain.ActivityLog{
		ActorID:   actor.UserID,
		ActorName: actor.ActorName(),
		Action:    domain.ActivityRevokeSession,
		Target:    sessionID,
		Detail:    fmt.Sprintf("revoked %s session of %s", rec.DeviceInfo.Describe(), rec.UserName),
	})
	return nil
}

// List returns the caller's sessions, or every session for elevated actors.
func (s *SessionService) List(ctx context.Context, actor *Principal) ([]SessionView, error) {
	var (
		records []domain.SessionRecord
		err     error
	)
	if s.IsElevated(actor) {
		records, err = s.sessions.ListAll(ctx)
	} else {
		records, err = s.sessions.ListByUser(ctx, actor.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	now := s.now()
	views := make([]SessionView, 0, len(records))
	for _, rec := range records {
		views = append(views, SessionView{
			SessionRecord: rec,
			IsCurrent:     rec.SessionID == actor.SessionID,
			IsStale:       rec.IsStale(now, s.staleAfter),
		})
	}
	return views, nil
}

// Logout removes the session referenced by raw if it can be resolved. It
// never fails: a user must always be able to sign out.
func (s *SessionService) Logout(ctx context.Context, raw string, loc *domain.Location) {
	if raw == "" {
		return
	}
	tok, err := s.codec.Decode(raw)
	if err != nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := s.sessions.Delete(ctx, tok.SessionID); err != nil {
		s.logger.Warn("logout session delete failed", "session_id", tok.SessionID, "error", err)
	}
	detail := ""
	if !loc.IsZero() && loc.Address != nil {
		detail = "at " + *loc.Address
	}
	s.activity.Record(ctx, domain.ActivityLog{
		ActorID:   tok.UserID,
		ActorName: principalFromToken(tok).ActorName(),
		Action:    domain.ActivityLogout,
		Target:    tok.SessionID,
		Detail:    detail,
	})
}

// UpdateLocation patches the caller's own session. Targeting any other
// session is forbidden regardless of role.
func (s *SessionService) UpdateLocation(ctx context.Context, actor *Principal, sessionID string, patch domain.LocationPatch) (*domain.SessionRecord, error) {
	if actor == nil || actor.SessionID != sessionID {
		return nil, ErrForbidden
	}
	if patch.IsEmpty() {
		return nil, domain.ErrInvalidLocationPatch
	}
	ctx = context.WithoutCancel(ctx)
	rec, err := s.sessions.UpdateLocation(ctx, sessionID, patch, s.now().UnixMilli())
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	s.activity.Record(ctx, domain.ActivityLog{
		ActorID:   actor.UserID,
		ActorName: actor.ActorName(),
		Action:    domain.ActivityUpdateLocation,
		Target:    sessionID,
	})
	return rec, nil
}

// SweepStale removes every stale record for every user.
func (s *SessionService) SweepStale(ctx context.Context) (int, error) {
	records, err := s.sessions.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	_, stale := domain.PartitionStale(records, s.now(), s.staleAfter)
	var errs []error
	removed := 0
	for _, rec := range stale {
		if err := s.sessions.Delete(ctx, rec.SessionID); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", rec.SessionID, err))
			continue
		}
		removed++
	}
	observability.RecordStaleSessionsReaped(ctx, removed)
	return removed, errors.Join(errs...)
}
