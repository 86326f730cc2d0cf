package mongo

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	adminapp "github.com/sngm3741/dispatch-contact/api/internal/admin/application"
	"github.com/sngm3741/dispatch-contact/api/internal/config"
	"github.com/sngm3741/dispatch-contact/api/internal/public/application"
	"github.com/sngm3741/dispatch-contact/api/internal/public/domain"
)

func strPtr(v string) *string { return &v }

func TestMessageDocumentStoresNullForAbsentFields(t *testing.T) {
	now := time.Date(2026, 10, 3, 10, 0, 0, 0, time.UTC)
	submission := &domain.Submission{
		FirstName: "John",
		LastName:  "Doe",
		Email:     "john@test.com",
		Company:   strPtr("Acme"),
		SourceIP:  "203.0.113.1",
		UserAgent: "curl/8.0",
		CreatedAt: now,
		UpdatedAt: now,
	}

	raw, err := bson.Marshal(newMessageDocument(primitive.NewObjectID(), submission))
	require.NoError(t, err)

	var decoded bson.M
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	for _, key := range []string{"_id", "firstname", "lastname", "email", "phone", "company", "message", "ip", "userAgent", "createdAt", "updatedAt"} {
		assert.Contains(t, decoded, key)
	}
	assert.Nil(t, decoded["phone"])
	assert.Nil(t, decoded["message"])
	assert.Equal(t, "Acme", decoded["company"])
	assert.Equal(t, decoded["createdAt"], decoded["updatedAt"])
}

func TestMapMessageDocumentRoundTripsIdentity(t *testing.T) {
	id := primitive.NewObjectID()
	doc := MessageDocument{ID: id, FirstName: "Jane", Email: "jane@example.com", Phone: strPtr("5551234567")}

	got := mapMessageDocument(doc)
	assert.Equal(t, id.Hex(), got.ID)
	assert.Equal(t, "5551234567", *got.Phone)
	assert.Nil(t, got.Company)
}

func TestFailedNotificationDocument(t *testing.T) {
	occurred := time.Date(2026, 10, 3, 11, 0, 0, 0, time.UTC)
	doc := newFailedNotificationDocument(primitive.NewObjectID(), application.NotificationFailure{
		SubmissionID: "abc",
		Recipient:    "jane@example.com",
		Kind:         application.KindConfirmation,
		Err:          errors.New("550 mailbox unavailable"),
		Attempts:     1,
		OccurredAt:   occurred,
	})

	assert.Equal(t, "confirmation", doc.Target)
	assert.Equal(t, "pending", doc.Status)
	assert.Equal(t, "550 mailbox unavailable", doc.Error)
	assert.Equal(t, occurred, doc.CreatedAt)

	mapped := mapFailedNotificationDocument(doc)
	assert.Equal(t, "abc", mapped.SubmissionID)
	assert.Equal(t, "jane@example.com", mapped.Recipient)
	assert.Equal(t, 1, mapped.Attempts)
}

func TestBuildSubmissionFilter(t *testing.T) {
	assert.Empty(t, buildSubmissionFilter(adminapp.SubmissionFilter{}))

	since := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	until := since.Add(24 * time.Hour)
	got := buildSubmissionFilter(adminapp.SubmissionFilter{
		Email:    "john+1@test.com",
		SourceIP: "10.0.0.1",
		Since:    since,
		Until:    until,
	})

	assert.Equal(t, bson.M{"$regex": `^john\+1@test\.com$`, "$options": "i"}, got["email"])
	assert.Equal(t, "10.0.0.1", got["ip"])
	assert.Equal(t, bson.M{"$gte": since, "$lt": until}, got["createdAt"])
}

func TestClientOptions(t *testing.T) {
	opts := clientOptions(config.MongoConfig{
		URI:                    "mongodb://localhost:27017",
		ConnectTimeout:         3 * time.Second,
		ServerSelectionTimeout: 2 * time.Second,
		MaxPoolSize:            7,
	})

	require.NotNil(t, opts.ConnectTimeout)
	assert.Equal(t, 3*time.Second, *opts.ConnectTimeout)
	require.NotNil(t, opts.ServerSelectionTimeout)
	assert.Equal(t, 2*time.Second, *opts.ServerSelectionTimeout)
	require.NotNil(t, opts.MaxPoolSize)
	assert.Equal(t, uint64(7), *opts.MaxPoolSize)
	assert.Nil(t, opts.SocketTimeout)
}
