package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/observability"
)

var ErrPostNotFound = errors.New("post not found")

type PostRepository interface {
	List(ctx context.Context, page PageRequest) (PageResult[domain.Post], error)
	Create(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, id uint) error
}

type GormPostRepository struct{ db *gorm.DB }

func NewPostRepository(db *gorm.DB) *GormPostRepository { return &GormPostRepository{db: db} }

func (r *GormPostRepository) List(ctx context.Context, page PageRequest) (PageResult[domain.Post], error) {
	req := normalizePageRequest(page)
	result := PageResult[domain.Post]{Page: req.Page, PageSize: req.PageSize}
	base := r.db.WithContext(ctx).Model(&domain.Post{})
	if err := base.Session(&gorm.Session{}).Count(&result.Total).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "post", "list", "error")
		return PageResult[domain.Post]{}, err
	}
	offset := (req.Page - 1) * req.PageSize
	if err := base.Order("id DESC").Offset(offset).Limit(req.PageSize).Find(&result.Items).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "post", "list", "error")
		return PageResult[domain.Post]{}, err
	}
	result.TotalPages = calcTotalPages(result.Total, req.PageSize)
	observability.RecordRepositoryOperation(ctx, "post", "list", "success")
	return result, nil
}

func (r *GormPostRepository) Create(ctx context.Context, post *domain.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "post", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "post", "create", "success")
	return nil
}

func (r *GormPostRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&domain.Post{}, id)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "post", "delete", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "post", "delete", "not_found")
		return ErrPostNotFound
	}
	observability.RecordRepositoryOperation(ctx, "post", "delete", "success")
	return nil
}
