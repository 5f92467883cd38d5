package repository

import (
	"context"
	"errors"

	"github.com/youthorg/admingate/internal/domain"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore is a plain keyed registry of active device sessions. It has
// no TTL of its own: callers decide what is stale.
type SessionStore interface {
	Put(ctx context.Context, rec *domain.SessionRecord) error
	Get(ctx context.Context, sessionID string) (*domain.SessionRecord, error)
	Delete(ctx context.Context, sessionID string) error
	ListByUser(ctx context.Context, userID string) ([]domain.SessionRecord, error)
	ListAll(ctx context.Context) ([]domain.SessionRecord, error)
	UpdateLocation(ctx context.Context, sessionID string, patch domain.LocationPatch, lastActive int64) (*domain.SessionRecord, error)
}

func cloneRecord(rec *domain.SessionRecord) *domain.SessionRecord {
	out := *rec
	if rec.Location != nil {
		loc := *rec.Location
		out.Location = &loc
	}
	return &out
}
