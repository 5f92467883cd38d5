package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/identity"
	"github.com/youthorg/admingate/internal/observability"
	"github.com/youthorg/admingate/internal/repository"
	"github.com/youthorg/admingate/internal/security"
)

const reapConcurrency = 4

type AdmissionPolicy struct {
	MaxSessions int
	StaleAfter  time.Duration
	TokenTTL    time.Duration
}

type LoginInput struct {
	Credential string
	Device     domain.DeviceInfo
	Location   *domain.Location
}

type LoginResult struct {
	Token     string
	Payload   domain.SessionToken
	Session   domain.SessionRecord
	ExpiresAt time.Time
}

// AdmissionService turns a verified identity into a new device session,
// enforcing the per-account device cap.
type AdmissionService struct {
	verifier identity.Verifier
	accounts repository.AccountRepository
	sessions repository.SessionStore
	codec    *security.TokenCodec
	activity *ActivityLogger
	policy   AdmissionPolicy
	logger   *slog.Logger
	now      func() time.Time
}

func NewAdmissionService(
	verifier identity.Verifier,
	accounts repository.AccountRepository,
	sessions repository.SessionStore,
	codec *security.TokenCodec,
	activity *ActivityLogger,
	policy AdmissionPolicy,
	logger *slog.Logger,
) *AdmissionService {
	if policy.MaxSessions <= 0 {
		policy.MaxSessions = domain.DefaultMaxSessions
	}
	if policy.StaleAfter <= 0 {
		policy.StaleAfter = domain.DefaultStaleAfter
	}
	if policy.TokenTTL <= 0 {
		policy.TokenTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AdmissionService{
		verifier: verifier,
		accounts: accounts,
		sessions: sessions,
		codec:    codec,
		activity: activity,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *AdmissionService) MaxSessions() int { return s.policy.MaxSessions }

func (s *AdmissionService) TokenTTL() time.Duration { return s.policy.TokenTTL }

// Login admits a new device. Two concurrent logins can both pass the cap
// check and leave the account one session over the cap.
func (s *AdmissionService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	ctx, span := observability.StartSpan(ctx, "admission.login")
	defer span.End()

	ident, err := s.verifier.Verify(ctx, in.Credential)
	if err != nil {
		observability.RecordLoginAttempt(ctx, "invalid_credential")
		if errors.Is(err, identity.ErrInvalidCredential) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
		}
		return nil, err
	}

	// Past credential verification the login runs to completion even if the
	// client goes away.
	ctx = context.WithoutCancel(ctx)
	account, err := s.lookupAccount(ctx, ident)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			observability.RecordLoginAttempt(ctx, "not_registered")
			return nil, ErrAccountNotRegistered
		}
		observability.RecordLoginAttempt(ctx, "error")
		return nil, err
	}
	if account.IsBlocked {
		observability.RecordLoginAttempt(ctx, "blocked")
		return nil, ErrAccountBlocked
	}

	existing, err := s.sessions.ListByUser(ctx, account.ID)
	if err != nil {
		observability.RecordLoginAttempt(ctx, "error")
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	now := s.now()
	active, stale := domain.PartitionStale(existing, now, s.policy.StaleAfter)
	s.reap(ctx, stale)

	if len(active) >= s.policy.MaxSessions {
		observability.RecordLoginAttempt(ctx, "max_sessions")
		return nil, &MaxSessionsError{Limit: s.policy.MaxSessions}
	}

	nowMs := now.UnixMilli()
	rec := domain.SessionRecord{
		SessionID:  uuid.NewString(),
		UserID:     account.ID,
		UserName:   account.Username,
		Role:       account.Role,
		DeviceInfo: in.Device,
		CreatedAt:  nowMs,
		LastActive: nowMs,
	}
	if !in.Location.IsZero() {
		loc := *in.Location
		rec.Location = &loc
	}

	expiresAt := now.Add(s.policy.TokenTTL)
	payload := domain.SessionToken{
		Version:     domain.CurrentTokenVersion,
		UserID:      account.ID,
		SessionID:   rec.SessionID,
		Username:    account.Username,
		Role:        account.Role,
		Permissions: append([]string(nil), account.Permissions...),
		DisplayName: account.DisplayName,
		Location:    rec.Location,
		IssuedAt:    nowMs,
		ExpiresAt:   expiresAt.UnixMilli(),
	}
	if !in.Device.IsZero() {
		device := in.Device
		payload.Device = &device
	}
	token, err := s.codec.Encode(payload)
	if err != nil {
		observability.RecordLoginAttempt(ctx, "error")
		return nil, fmt.Errorf("encode session token: %w", err)
	}
	if err := s.sessions.Put(ctx, &rec); err != nil {
		observability.RecordLoginAttempt(ctx, "error")
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.activity.Record(ctx, domain.ActivityLog{
		ActorID:   account.ID,
		ActorName: displayOrUsername(account),
		Action:    domain.ActivityLogin,
		Target:    rec.SessionID,
		Detail:    rec.DeviceInfo.Describe(),
	})
	observability.RecordLoginAttempt(ctx, "success")
	return &LoginResult{Token: token, Payload: payload, Session: rec, ExpiresAt: expiresAt}, nil
}

func (s *AdmissionService) lookupAccount(ctx context.Context, ident *identity.Identity) (*domain.Account, error) {
	account, err := s.accounts.FindByID(ctx, ident.UID)
	if err == nil || !errors.Is(err, repository.ErrAccountNotFound) || ident.Email == "" || !ident.EmailVerified {
		return account, err
	}
	return s.accounts.FindByEmail(ctx, ident.Email)
}

// reap deletes stale records concurrently. Failures are logged and left for
// the next login or sweep.
func (s *AdmissionService) reap(ctx context.Context, stale []domain.SessionRecord) {
	if len(stale) == 0 {
		return
	}
	var g errgroup.Group
	g.SetLimit(reapConcurrency)
	for _, rec := range stale {
		g.Go(func() error {
			if err := s.sessions.Delete(ctx, rec.SessionID); err != nil {
				s.logger.Warn("stale session delete failed",
					"session_id", rec.SessionID,
					"user_id", rec.UserID,
					"error", err,
				)
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err == nil {
		observability.RecordStaleSessionsReaped(ctx, len(stale))
	}
}

func displayOrUsername(a *domain.Account) string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Username
}
