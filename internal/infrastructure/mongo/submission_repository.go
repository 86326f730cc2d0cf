package mongo

import (
	"context"
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	adminapp "github.com/sngm3741/dispatch-contact/api/internal/admin/application"
	"github.com/sngm3741/dispatch-contact/api/internal/public/domain"
)

const defaultPingTimeout = 2 * time.Second

// SubmissionRepository stores contact submissions. It implements both the
// intake write port and the admin read port.
type SubmissionRepository struct {
	collection  *mongo.Collection
	pingTimeout time.Duration
	provisioned atomic.Bool
}

// NewSubmissionRepository creates a Mongo-backed submission repository.
// The repository reports not ready until EnsureIndexes succeeds.
func NewSubmissionRepository(db *mongo.Database, collectionName string, pingTimeout time.Duration) *SubmissionRepository {
	if pingTimeout <= 0 {
		pingTimeout = defaultPingTimeout
	}
	return &SubmissionRepository{
		collection:  db.Collection(collectionName),
		pingTimeout: pingTimeout,
	}
}

// EnsureIndexes creates the lookup indexes and marks the repository provisioned.
func (r *SubmissionRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("idx_message_email"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_message_created"),
		},
		{
			Keys:    bson.D{{Key: "ip", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_message_ip_created"),
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create message indexes: %w", err)
	}
	r.provisioned.Store(true)
	return nil
}

// Ready reports whether indexes are provisioned and the primary answers a ping.
func (r *SubmissionRepository) Ready(ctx context.Context) bool {
	if !r.provisioned.Load() {
		return false
	}
	pingCtx, cancel := context.WithTimeout(ctx, r.pingTimeout)
	defer cancel()
	return r.collection.Database().Client().Ping(pingCtx, readpref.Primary()) == nil
}

// Insert appends one submission and returns its generated id.
func (r *SubmissionRepository) Insert(ctx context.Context, submission *domain.Submission) (string, error) {
	id := primitive.NewObjectID()
	if _, err := r.collection.InsertOne(ctx, newMessageDocument(id, submission)); err != nil {
		return "", fmt.Errorf("insert message: %w", err)
	}
	return id.Hex(), nil
}

// Find returns submissions matching filter, newest first.
func (r *SubmissionRepository) Find(ctx context.Context, filter adminapp.SubmissionFilter, paging adminapp.Paging) ([]domain.Submission, error) {
	paging = paging.Normalize()
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(paging.Skip()).
		SetLimit(int64(paging.Limit))

	cursor, err := r.collection.Find(ctx, buildSubmissionFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer cursor.Close(ctx)

	submissions := make([]domain.Submission, 0, paging.Limit)
	for cursor.Next(ctx) {
		var doc MessageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		submissions = append(submissions, mapMessageDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return submissions, nil
}

// FindByID returns mongo.ErrNoDocuments when no record has the id.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*domain.Submission, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var doc MessageDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc); err != nil {
		return nil, err
	}
	submission := mapMessageDocument(doc)
	return &submission, nil
}

// CountBySourceSince counts submissions from sourceIP created at or after since.
func (r *SubmissionRepository) CountBySourceSince(ctx context.Context, sourceIP string, since time.Time) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"ip":        sourceIP,
		"createdAt": bson.M{"$gte": since.UTC()},
	})
	if err != nil {
		return 0, fmt.Errorf("count messages by source: %w", err)
	}
	return count, nil
}

func buildSubmissionFilter(filter adminapp.SubmissionFilter) bson.M {
	query := bson.M{}
	if filter.Email != "" {
		query["email"] = bson.M{"$regex": "^" + regexp.QuoteMeta(filter.Email) + "$", "$options": "i"}
	}
	if filter.SourceIP != "" {
		query["ip"] = filter.SourceIP
	}
	created := bson.M{}
	if !filter.Since.IsZero() {
		created["$gte"] = filter.Since.UTC()
	}
	if !filter.Until.IsZero() {
		created["$lt"] = filter.Until.UTC()
	}
	if len(created) > 0 {
		query["createdAt"] = created
	}
	return query
}
