package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/observability"
)

const mongoSessionCollection = "activeSessions"

type MongoSessionStore struct {
	coll *mongo.Collection
}

func NewMongoSessionStore(db *mongo.Database) *MongoSessionStore {
	return &MongoSessionStore{coll: db.Collection(mongoSessionCollection)}
}

// EnsureIndexes creates the userId index used by ListByUser.
func (s *MongoSessionStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return err
}

func (s *MongoSessionStore) Put(ctx context.Context, rec *domain.SessionRecord) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": rec.SessionID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session_mongo", "put", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "session_mongo", "put", "success")
	return nil
}

func (s *MongoSessionStore) Get(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	var rec domain.SessionRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		observability.RecordRepositoryOperation(ctx, "session_mongo", "get", "not_found")
		return nil, ErrSessionNotFound
	}
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session_mongo", "get", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "session_mongo", "get", "success")
	return &rec, nil
}

func (s *MongoSessionStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": sessionID}); err != nil {
		observability.RecordRepositoryOperation(ctx, "session_mongo", "delete", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "session_mongo", "delete", "success")
	return nil
}

func (s *MongoSessionStore) ListByUser(ctx context.Context, userID string) ([]domain.SessionRecord, error) {
	records, err := s.find(ctx, bson.M{"userId": userID})
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session_mongo", "list_by_user", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "session_mongo", "list_by_user", "success")
	return records, nil
}

func (s *MongoSessionStore) ListAll(ctx context.Context) ([]domain.SessionRecord, error) {
	records, err := s.find(ctx, bson.M{})
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session_mongo", "list_all", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "session_mongo", "list_all", "success")
	return records, nil
}

func (s *MongoSessionStore) UpdateLocation(ctx context.Context, sessionID string, patch domain.LocationPatch, lastActive int64) (*domain.SessionRecord, error) {
	set := bson.M{"lastActive": lastActive}
	if patch.Address != nil {
		set["location.address"] = *patch.Address
	}
	if patch.Latitude != nil {
		set["location.latitude"] = *patch.Latitude
	}
	if patch.Longitude != nil {
		set["location.longitude"] = *patch.Longitude
	}
	if patch.Accuracy != nil {
		set["location.accuracy"] = *patch.Accuracy
	}
	var rec domain.SessionRecord
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": sessionID}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		observability.RecordRepositoryOperation(ctx, "session_mongo", "update_location", "not_found")
		return nil, ErrSessionNotFound
	}
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session_mongo", "update_location", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "session_mongo", "update_location", "success")
	return &rec, nil
}

func (s *MongoSessionStore) find(ctx context.Context, filter bson.M) ([]domain.SessionRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	records := make([]domain.SessionRecord, 0)
	if err := cur.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
