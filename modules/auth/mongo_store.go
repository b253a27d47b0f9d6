package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const tokensCollection = "auth_tokens"

// MongoTokenStore implements TokenStore over a mongo collection. The
// compare-and-set on the used flag is a conditional UpdateOne: concurrent
// verifications of the same token resolve to exactly one modified document.
type MongoTokenStore struct {
	coll *mongo.Collection
}

// NewMongoTokenStore creates the store and ensures its indexes: a unique
// secret index for lookups and a TTL index that lets mongo garbage-collect
// expired tokens on its own schedule.
func NewMongoTokenStore(ctx context.Context, db *mongo.Database) (*MongoTokenStore, error) {
	coll := db.Collection(tokensCollection)

	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "secret", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "email", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	return &MongoTokenStore{coll: coll}, nil
}

func (s *MongoTokenStore) Invalidate(ctx context.Context, email string) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"email": email, "used": false})
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *MongoTokenStore) Create(ctx context.Context, email string, ttl time.Duration) (*Token, error) {
	t, err := newToken(email, ttl)
	if err != nil {
		return nil, err
	}

	if _, err := s.coll.InsertOne(ctx, t); err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	return t, nil
}

func (s *MongoTokenStore) LookupBySecret(ctx context.Context, secret string) (*Token, error) {
	var t Token
	err := s.coll.FindOne(ctx, bson.M{"secret": secret}).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTokenNotFound
		}
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return &t, nil
}

func (s *MongoTokenStore) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "used": false},
		bson.M{"$set": bson.M{"used": true, "used_at": usedAt}},
	)
	if err != nil {
		return false, errors.Join(ErrStoreUnavailable, err)
	}

	return res.ModifiedCount == 1, nil
}

func (s *MongoTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": now}})
	if err != nil {
		return 0, errors.Join(ErrStoreUnavailable, err)
	}
	return res.DeletedCount, nil
}

var _ TokenStore = (*MongoTokenStore)(nil)
