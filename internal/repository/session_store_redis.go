package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/observability"
)

const maxLocationUpdateRetries = 5

// RedisSessionStore keeps each record as JSON under prefix:session:<id> and a
// per-user set of session ids under prefix:user:<userId>.
type RedisSessionStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisSessionStore(client redis.UniversalClient, prefix string) *RedisSessionStore {
	if prefix == "" {
		prefix = "admingate"
	}
	return &RedisSessionStore{client: client, prefix: prefix}
}

func (s *RedisSessionStore) Put(ctx context.Context, rec *domain.SessionRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sessionKey(rec.SessionID), payload, 0)
	pipe.SAdd(ctx, s.userKey(rec.UserID), rec.SessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		observability.RecordRepositoryOperation(ctx, "session_redis", "put", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "session_redis", "put", "success")
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	raw, err := s.client.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.RecordRepositoryOperation(ctx, "session_redis", "get", "not_found")
		return nil, ErrSessionNotFound
	}
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session_redis", "get", "error")
		return nil, err
	}
	var rec domain.SessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		observability.RecordRepositoryOperation(ctx, "session_redis", "get", "error")
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	observability.RecordRepositoryOperation(ctx, "session_redis", "get", "success")
	return &rec, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	rec, err := s.Get(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.sessionKey(sessionID))
	pipe.SRem(ctx, s.userKey(rec.UserID), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		observability.RecordRepositoryOperation(ctx, "session_redis", "delete", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "session_redis", "delete", "success")
	return nil
}

func (s *RedisSessionStore) ListByUser(ctx context.Context, userID string) ([]domain.SessionRecord, error) {
	ids, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.RecordRepositoryOperation(ctx, "session_redis", "list_by_user", "error")
		return nil, err
	}
	records, missing, err := s.load(ctx, ids)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session_redis", "list_by_user", "error")
		return nil, err
	}
	if len(missing) > 0 {
		members := make([]any, len(missing))
		for i, id := range missing {
			members[i] = id
		}
		_ = s.client.SRem(ctx, s.userKey(userID), members...).Err()
	}
	sortByCreatedDesc(records)
	observability.RecordRepositoryOperation(ctx, "session_redis", "list_by_user", "success")
	return records, nil
}

func (s *RedisSessionStore) ListAll(ctx context.Context) ([]domain.SessionRecord, error) {
	var ids []string
	prefix := s.sessionKey("")
	iter := s.client.Scan(ctx, 0, prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len(prefix):])
	}
	if err := iter.Err(); err != nil {
		observability.RecordRepositoryOperation(ctx, "session_redis", "list_all", "error")
		return nil, err
	}
	records, _, err := s.load(ctx, ids)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session_redis", "list_all", "error")
		return nil, err
	}
	sortByCreatedDesc(records)
	observability.RecordRepositoryOperation(ctx, "session_redis", "list_all", "success")
	return records, nil
}

// UpdateLocation merges under WATCH so concurrent writers to the same record
// never lose each other's fields.
func (s *RedisSessionStore) UpdateLocation(ctx context.Context, sessionID string, patch domain.LocationPatch, lastActive int64) (*domain.SessionRecord, error) {
	key := s.sessionKey(sessionID)
	var updated domain.SessionRecord
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		var rec domain.SessionRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode session %s: %w", sessionID, err)
		}
		rec.Location = patch.Apply(rec.Location)
		rec.LastActive = lastActive
		payload, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err == nil {
			updated = rec
		}
		return err
	}
	for i := 0; i < maxLocationUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrSessionNotFound) {
			observability.RecordRepositoryOperation(ctx, "session_redis", "update_location", "not_found")
			return nil, err
		}
		if err != nil {
			observability.RecordRepositoryOperation(ctx, "session_redis", "update_location", "error")
			return nil, err
		}
		observability.RecordRepositoryOperation(ctx, "session_redis", "update_location", "success")
		return &updated, nil
	}
	observability.RecordRepositoryOperation(ctx, "session_redis", "update_location", "conflict")
	return nil, fmt.Errorf("update location %s: too many concurrent writers", sessionID)
}

func (s *RedisSessionStore) load(ctx context.Context, ids []string) ([]domain.SessionRecord, []string, error) {
	records := make([]domain.SessionRecord, 0, len(ids))
	if len(ids) == 0 {
		return records, nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.sessionKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, err
	}
	var missing []string
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		var rec domain.SessionRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, nil, fmt.Errorf("decode session %s: %w", ids[i], err)
		}
		records = append(records, rec)
	}
	return records, missing, nil
}

func (s *RedisSessionStore) sessionKey(sessionID string) string {
	return s.prefix + ":session:" + sessionID
}

func (s *RedisSessionStore) userKey(userID string) string {
	return s.prefix + ":user:" + userID
}
