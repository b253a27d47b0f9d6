package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const usersCollection = "users"

// MongoDirectory implements Directory backed by a mongo collection.
// The email field carries a unique index so concurrent first logins for the
// same address cannot create two accounts.
type MongoDirectory struct {
	coll *mongo.Collection
}

// NewMongoDirectory creates a directory over the given database and ensures
// the unique email index exists.
func NewMongoDirectory(ctx context.Context, db *mongo.Database) (*MongoDirectory, error) {
	coll := db.Collection(usersCollection)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}

	return &MongoDirectory{coll: coll}, nil
}

// EnsureExists resolves the user id for email, creating the account on
// first use. The upsert only sets fields on insert, so an existing account
// is returned unchanged.
func (d *MongoDirectory) EnsureExists(ctx context.Context, email string) (uuid.UUID, error) {
	update := bson.M{"$setOnInsert": bson.M{
		"_id":            uuid.New(),
		"email":          email,
		"email_verified": true,
		"created_at":     time.Now(),
	}}

	var u User
	err := d.coll.FindOneAndUpdate(ctx,
		bson.M{"email": email},
		update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		return uuid.Nil, errors.Join(ErrUnavailable, err)
	}

	return u.ID, nil
}

// GetByEmail returns the stored user for email.
func (d *MongoDirectory) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := d.coll.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Join(ErrUnavailable, err)
	}
	return &u, nil
}

var _ Directory = (*MongoDirectory)(nil)
