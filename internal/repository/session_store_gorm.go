package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/observability"
)

type GormSessionStore struct{ db *gorm.DB }

func NewGormSessionStore(db *gorm.DB) *GormSessionStore { return &GormSessionStore{db: db} }

func (r *GormSessionStore) Put(ctx context.Context, rec *domain.SessionRecord) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "put", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "session", "put", "success")
	return nil
}

func (r *GormSessionStore) Get(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	var rec domain.SessionRecord
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "session", "get", "not_found")
			return nil, ErrSessionNotFound
		}
		observability.RecordRepositoryOperation(ctx, "session", "get", "error")
		return nil, err
	}
	normalizeLocation(&rec)
	observability.RecordRepositoryOperation(ctx, "session", "get", "success")
	return &rec, nil
}

func (r *GormSessionStore) Delete(ctx context.Context, sessionID string) error {
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&domain.SessionRecord{}).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "delete", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "session", "delete", "success")
	return nil
}

func (r *GormSessionStore) ListByUser(ctx context.Context, userID string) ([]domain.SessionRecord, error) {
	var records []domain.SessionRecord
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Order("session_id ASC").
		Find(&records).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "list_by_user", "error")
		return nil, err
	}
	for i := range records {
		normalizeLocation(&records[i])
	}
	observability.RecordRepositoryOperation(ctx, "session", "list_by_user", "success")
	return records, nil
}

func (r *GormSessionStore) ListAll(ctx context.Context) ([]domain.SessionRecord, error) {
	var records []domain.SessionRecord
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("session_id ASC").Find(&records).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "list_all", "error")
		return nil, err
	}
	for i := range records {
		normalizeLocation(&records[i])
	}
	observability.RecordRepositoryOperation(ctx, "session", "list_all", "success")
	return records, nil
}

func (r *GormSessionStore) UpdateLocation(ctx context.Context, sessionID string, patch domain.LocationPatch, lastActive int64) (*domain.SessionRecord, error) {
	updates := map[string]any{"last_active": lastActive}
	if patch.Address != nil {
		updates["location_address"] = *patch.Address
	}
	if patch.Latitude != nil {
		updates["location_latitude"] = *patch.Latitude
	}
	if patch.Longitude != nil {
		updates["location_longitude"] = *patch.Longitude
	}
	if patch.Accuracy != nil {
		updates["location_accuracy"] = *patch.Accuracy
	}
	res := r.db.WithContext(ctx).Model(&domain.SessionRecord{}).Where("session_id = ?", sessionID).Updates(updates)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "update_location", "error")
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "session", "update_location", "not_found")
		return nil, ErrSessionNotFound
	}
	observability.RecordRepositoryOperation(ctx, "session", "update_location", "success")
	return r.Get(ctx, sessionID)
}

// normalizeLocation drops the all-NULL embedded location gorm allocates.
func normalizeLocation(rec *domain.SessionRecord) {
	if rec.Location.IsZero() {
		rec.Location = nil
	}
}
