package mongo

import (
	"context"
	"fmt"

	"github.com/adammck/blobstream/pkg/api"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collection = "indices"
	kId        = "_id"
	kKey       = "key"
	kOffset    = "offset"
	kSize      = "size"
	kExpiresAt = "exp"
	kEntries   = "entries"
)

type IndexStore struct {
	db *mongo.Database
}

var _ api.IndexStore = (*IndexStore)(nil)

func New(db *mongo.Database) *IndexStore {
	return &IndexStore{
		db: db,
	}
}

func (s *IndexStore) Init(ctx context.Context) error {
	err := s.db.CreateCollection(ctx, collection)
	if err != nil {
		return fmt.Errorf("CreateCollection: %w", err)
	}

	return nil
}

func (s *IndexStore) StoreIndex(ctx context.Context, segment string, entries api.Index) error {
	bsonEntries := make([]bson.M, len(entries))
	for i, entry := range entries {
		bsonEntries[i] = bson.M{
			kKey:       entry.Key,
			kOffset:    entry.Offset,
			kSize:      entry.Size,
			kExpiresAt: entry.ExpiresAt,
		}
	}

	opts := options.Update().SetUpsert(true)
	_, err := s.db.Collection(collection).UpdateOne(
		ctx,
		bson.M{kId: segment},
		bson.M{"$set": bson.M{kEntries: bsonEntries}},
		opts,
	)
	if err != nil {
		return fmt.Errorf("UpdateOne: %w", err)
	}

	return nil
}

func (s *IndexStore) GetIndex(ctx context.Context, segment string) (api.Index, error) {
	var result struct {
		Entries []struct {
			Key       string `bson:"key"`
			Offset    int64  `bson:"offset"`
			Size      int64  `bson:"size"`
			ExpiresAt int64  `bson:"exp"`
		} `bson:"entries"`
	}

	err := s.db.Collection(collection).FindOne(ctx, bson.M{kId: segment}).Decode(&result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, &api.IndexNotFound{
				Segment: segment,
			}
		}
		return nil, fmt.Errorf("FindOne: %w", err)
	}

	entries := make(api.Index, len(result.Entries))
	for i, e := range result.Entries {
		entries[i] = api.IndexEntry{
			Key:       e.Key,
			Offset:    e.Offset,
			Size:      e.Size,
			ExpiresAt: e.ExpiresAt,
		}
	}

	return entries, nil
}

func (s *IndexStore) DeleteIndex(ctx context.Context, segment string) error {
	_, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{kId: segment})
	if err != nil {
		return fmt.Errorf("DeleteOne: %w", err)
	}

	return nil
}
