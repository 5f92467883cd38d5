package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/observability"
)

type ActivityQuery struct {
	PageRequest
	ActorID string
	Action  domain.ActivityAction
}

type ActivityRepository interface {
	Create(ctx context.Context, entry *domain.ActivityLog) error
	List(ctx context.Context, query ActivityQuery) (PageResult[domain.ActivityLog], error)
}

type GormActivityRepository struct{ db *gorm.DB }

func NewActivityRepository(db *gorm.DB) *GormActivityRepository {
	return &GormActivityRepository{db: db}
}

func (r *GormActivityRepository) Create(ctx context.Context, entry *domain.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "activity", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "activity", "create", "success")
	return nil
}

func (r *GormActivityRepository) List(ctx context.Context, query ActivityQuery) (PageResult[domain.ActivityLog], error) {
	req := normalizePageRequest(query.PageRequest)
	result := PageResult[domain.ActivityLog]{Page: req.Page, PageSize: req.PageSize}

	base := r.db.WithContext(ctx).Model(&domain.ActivityLog{})
	if query.ActorID != "" {
		base = base.Where("actor_id = ?", query.ActorID)
	}
	if query.Action != "" {
		base = base.Where("action = ?", query.Action)
	}
	if err := base.Session(&gorm.Session{}).Count(&result.Total).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "activity", "list", "error")
		return PageResult[domain.ActivityLog]{}, err
	}
	offset := (req.Page - 1) * req.PageSize
	err := base.Order("created_at DESC").Order("id ASC").
		Offset(offset).Limit(req.PageSize).Find(&result.Items).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "activity", "list", "error")
		return PageResult[domain.ActivityLog]{}, err
	}
	result.TotalPages = calcTotalPages(result.Total, req.PageSize)
	observability.RecordRepositoryOperation(ctx, "activity", "list", "success")
	return result, nil
}
