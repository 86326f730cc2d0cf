package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	admindomain "github.com/sngm3741/dispatch-contact/api/internal/admin/domain"
	"github.com/sngm3741/dispatch-contact/api/internal/public/application"
)

// FailedNotificationRepository keeps notifications that could not be sent.
type FailedNotificationRepository struct {
	collection *mongo.Collection
}

func NewFailedNotificationRepository(db *mongo.Database, collectionName string) *FailedNotificationRepository {
	return &FailedNotificationRepository{collection: db.Collection(collectionName)}
}

// EnsureIndexes creates the indexes used by ListRecent and per-submission lookups.
func (r *FailedNotificationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_failed_notification_created"),
		},
		{
			Keys:    bson.D{{Key: "payload.submissionId", Value: 1}},
			Options: options.Index().SetName("idx_failed_notification_submission"),
		},
	})
	if err != nil {
		return fmt.Errorf("create failed notification indexes: %w", err)
	}
	return nil
}

// RecordFailure implements application.FailureRecorder.
func (r *FailedNotificationRepository) RecordFailure(ctx context.Context, failure application.NotificationFailure) error {
	doc := newFailedNotificationDocument(primitive.NewObjectID(), failure)
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert failed notification: %w", err)
	}
	return nil
}

// ListRecent returns the newest failures first.
func (r *FailedNotificationRepository) ListRecent(ctx context.Context, limit int) ([]admindomain.FailedNotification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find failed notifications: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]admindomain.FailedNotification, 0)
	for cursor.Next(ctx) {
		var doc FailedNotificationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode failed notification: %w", err)
		}
		items = append(items, mapFailedNotificationDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate failed notifications: %w", err)
	}
	return items, nil
}
