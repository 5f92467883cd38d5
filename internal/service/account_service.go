package service

import (
	"context"
	"log/slog"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/repository"
)

// AccountService holds the operator actions on accounts: lifting a kill
// switch block and flagging protected principals.
type AccountService struct {
	accounts repository.AccountRepository
	activity *ActivityLogger
	logger   *slog.Logger
}

func NewAccountService(accounts repository.AccountRepository, activity *ActivityLogger, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{accounts: accounts, activity: activity, logger: logger}
}

func (s *AccountService) Unblock(ctx context.Context, userID, operator string) error {
	if err := s.accounts.SetBlocked(ctx, userID, false, ""); err != nil {
		return err
	}
	detail := "unblocked"
	if operator != "" {
		detail = "unblocked by " + operator
	}
	s.activity.System(ctx, domain.ActivityUnblock, userID, detail)
	s.logger.Info("account unblocked", "user_id", userID, "operator", operator)
	return nil
}

// EnsureProtected flags each email as a protected principal. Emails without
// an account yet are reported back so the caller can warn about them.
func (s *AccountService) EnsureProtected(ctx context.Context, emails []string) (missing []string, err error) {
	for _, email := range emails {
		ok, err := s.accounts.SetProtected(ctx, email, true)
		if err != nil {
			return missing, err
		}
		if !ok {
			missing = append(missing, email)
		}
	}
	return missing, nil
}

// Unprotect clears the protected flag. It reports false when no account has
// the email.
func (s *AccountService) Unprotect(ctx context.Context, email string) (bool, error) {
	ok, err := s.accounts.SetProtected(ctx, email, false)
	if err == nil && ok {
		s.logger.Info("protected principal cleared", "email", email)
	}
	return ok, err
}
