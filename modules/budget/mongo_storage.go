package budget

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	transactionsCollection  = "transactions"
	recurringCollection     = "recurring_payments"
	installmentsCollection  = "installment_plans"
	notificationsCollection = "notifications"
)

// MongoStorage implements Storage over mongo collections.
type MongoStorage struct {
	transactions  *mongo.Collection
	recurring     *mongo.Collection
	installments  *mongo.Collection
	notifications *mongo.Collection
}

// NewMongoStorage creates the storage and ensures per-user indexes.
func NewMongoStorage(ctx context.Context, db *mongo.Database) (*MongoStorage, error) {
	s := &MongoStorage{
		transactions:  db.Collection(transactionsCollection),
		recurring:     db.Collection(recurringCollection),
		installments:  db.Collection(installmentsCollection),
		notifications: db.Collection(notificationsCollection),
	}

	userIndex := mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}}}
	userDateIndex := mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}}}

	if _, err := s.transactions.Indexes().CreateOne(ctx, userDateIndex); err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	for _, coll := range []*mongo.Collection{s.recurring, s.installments, s.notifications} {
		if _, err := coll.Indexes().CreateOne(ctx, userIndex); err != nil {
			return nil, errors.Join(ErrStorage, err)
		}
	}

	return s, nil
}

func (s *MongoStorage) CreateTransaction(ctx context.Context, t *Transaction) error {
	return insertOne(ctx, s.transactions, t)
}

func (s *MongoStorage) ListTransactions(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Transaction, error) {
	filter := bson.M{
		"user_id": userID,
		"date":    bson.M{"$gte": from, "$lt": to},
	}
	return findAll[Transaction](ctx, s.transactions, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
}

func (s *MongoStorage) DeleteTransaction(ctx context.Context, userID, id uuid.UUID) error {
	return deleteOne(ctx, s.transactions, userID, id)
}

func (s *MongoStorage) CreateRecurring(ctx context.Context, r *RecurringPayment) error {
	return insertOne(ctx, s.recurring, r)
}

func (s *MongoStorage) ListRecurring(ctx context.Context, userID uuid.UUID) ([]RecurringPayment, error) {
	return findAll[RecurringPayment](ctx, s.recurring, bson.M{"user_id": userID}, nil)
}

func (s *MongoStorage) DeleteRecurring(ctx context.Context, userID, id uuid.UUID) error {
	return deleteOne(ctx, s.recurring, userID, id)
}

func (s *MongoStorage) CreateInstallment(ctx context.Context, p *InstallmentPlan) error {
	return insertOne(ctx, s.installments, p)
}

func (s *MongoStorage) ListInstallments(ctx context.Context, userID uuid.UUID) ([]InstallmentPlan, error) {
	return findAll[InstallmentPlan](ctx, s.installments, bson.M{"user_id": userID}, nil)
}

func (s *MongoStorage) DeleteInstallment(ctx context.Context, userID, id uuid.UUID) error {
	return deleteOne(ctx, s.installments, userID, id)
}

func (s *MongoStorage) CreateNotification(ctx context.Context, n *Notification) error {
	return insertOne(ctx, s.notifications, n)
}

func (s *MongoStorage) ListNotifications(ctx context.Context, userID uuid.UUID) ([]Notification, error) {
	return findAll[Notification](ctx, s.notifications, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (s *MongoStorage) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error {
	res, err := s.notifications.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return errors.Join(ErrStorage, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func insertOne(ctx context.Context, coll *mongo.Collection, doc any) error {
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return errors.Join(ErrStorage, err)
	}
	return nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptionsBuilder) ([]T, error) {
	var cursor *mongo.Cursor
	var err error
	if opts != nil {
		cursor, err = coll.Find(ctx, filter, opts)
	} else {
		cursor, err = coll.Find(ctx, filter)
	}
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}

	var out []T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	return out, nil
}

func deleteOne(ctx context.Context, coll *mongo.Collection, userID, id uuid.UUID) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return errors.Join(ErrStorage, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Storage = (*MongoStorage)(nil)
