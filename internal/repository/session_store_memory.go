package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/youthorg/admingate/internal/domain"
)

type InMemorySessionStore struct {
	mu      sync.RWMutex
	records map[string]*domain.SessionRecord
}

func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{records: make(map[string]*domain.SessionRecord)}
}

func (s *InMemorySessionStore) Put(_ context.Context, rec *domain.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.SessionID] = cloneRecord(rec)
	return nil
}

func (s *InMemorySessionStore) Get(_ context.Context, sessionID string) (*domain.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return cloneRecord(rec), nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sessionID)
	return nil
}

func (s *InMemorySessionStore) ListByUser(_ context.Context, userID string) ([]domain.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SessionRecord, 0)
	for _, rec := range s.records {
		if rec.UserID == userID {
			out = append(out, *cloneRecord(rec))
		}
	}
	sortByCreatedDesc(out)
	return out, nil
}

func (s *InMemorySessionStore) ListAll(_ context.Context) ([]domain.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SessionRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *cloneRecord(rec))
	}
	sortByCreatedDesc(out)
	return out, nil
}

func (s *InMemorySessionStore) UpdateLocation(_ context.Context, sessionID string, patch domain.LocationPatch, lastActive int64) (*domain.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	rec.Location = patch.Apply(rec.Location)
	rec.LastActive = lastActive
	return cloneRecord(rec), nil
}

func sortByCreatedDesc(records []domain.SessionRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt == records[j].CreatedAt {
			return records[i].SessionID < records[j].SessionID
		}
		return records[i].CreatedAt > records[j].CreatedAt
	})
}
