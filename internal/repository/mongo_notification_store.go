package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oggyb/ember/internal/db"
)

const notificationsCollection = "notifications"

// MongoNotificationStore keeps notifications in a MongoDB collection with a TTL.
type MongoNotificationStore struct {
	coll *mongo.Collection
	ttl  time.Duration
}

func NewMongoNotificationStore(database *mongo.Database, ttl time.Duration) *MongoNotificationStore {
	return &MongoNotificationStore{coll: database.Collection(notificationsCollection), ttl: ttl}
}

// EnsureIndexes creates the listing index and the expiry index.
func (s *MongoNotificationStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(s.ttl.Seconds())),
		},
	})
	return err
}

func (s *MongoNotificationStore) Create(ctx context.Context, n *db.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := s.coll.InsertOne(ctx, n)
	return err
}

func (s *MongoNotificationStore) ListForUser(ctx context.Context, userID string, limit int) ([]db.Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []db.Notification{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoNotificationStore) MarkRead(ctx context.Context, userID, id string) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoNotificationStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"user_id": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *MongoNotificationStore) CountUnread(ctx context.Context, userID string) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{"user_id": userID, "read": false})
}
