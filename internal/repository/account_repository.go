package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/observability"
)

var ErrAccountNotFound = errors.New("account not found")

type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	Upsert(ctx context.Context, account *domain.Account) error
	SetBlocked(ctx context.Context, id string, blocked bool, reason string) error
	SetProtected(ctx context.Context, email string, protected bool) (bool, error)
	List(ctx context.Context) ([]domain.Account, error)
}

type GormAccountRepository struct{ db *gorm.DB }

func NewAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

func (r *GormAccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, "find_by_id", "id = ?", id)
}

func (r *GormAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, "find_by_email", "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *GormAccountRepository) findOne(ctx context.Context, op, query string, arg any) (*domain.Account, error) {
	var a domain.Account
	err := r.db.WithContext(ctx).Where(query, arg).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "account", op, "not_found")
			return nil, ErrAccountNotFound
		}
		observability.RecordRepositoryOperation(ctx, "account", op, "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "account", op, "success")
	return &a, nil
}

// Upsert writes profile fields. Block state and protection are only changed
// through SetBlocked and SetProtected.
func (r *GormAccountRepository) Upsert(ctx context.Context, account *domain.Account) error {
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "username", "display_name", "role", "permissions", "external_id", "updated_at"}),
	}).Create(account).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "account", "upsert", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "account", "upsert", "success")
	return nil
}

func (r *GormAccountRepository) SetBlocked(ctx context.Context, id string, blocked bool, reason string) error {
	updates := map[string]any{"is_blocked": blocked, "blocked_reason": reason, "blocked_at": nil}
	if blocked {
		updates["blocked_at"] = time.Now().UTC()
	}
	res := r.db.WithContext(ctx).Model(&domain.Account{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "account", "set_blocked", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "account", "set_blocked", "not_found")
		return ErrAccountNotFound
	}
	observability.RecordRepositoryOperation(ctx, "account", "set_blocked", "success")
	return nil
}

// SetProtected flags the account with the given email. It reports false
// when no such account exists yet.
func (r *GormAccountRepository) SetProtected(ctx context.Context, email string, protected bool) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Account{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Update("protected", protected)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "account", "set_protected", "error")
		return false, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "account", "set_protected", "success")
	return res.RowsAffected > 0, nil
}

func (r *GormAccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	var accounts []domain.Account
	if err := r.db.WithContext(ctx).Order("email ASC").Find(&accounts).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "account", "list", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "account", "list", "success")
	return accounts, nil
}
