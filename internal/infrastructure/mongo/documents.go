package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	admindomain "github.com/sngm3741/dispatch-contact/api/internal/admin/domain"
	"github.com/sngm3741/dispatch-contact/api/internal/public/application"
	"github.com/sngm3741/dispatch-contact/api/internal/public/domain"
)

// MessageDocument is the persisted shape of a contact submission.
// Optional fields are stored as null rather than omitted.
type MessageDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	FirstName string             `bson:"firstname"`
	LastName  string             `bson:"lastname"`
	Email     string             `bson:"email"`
	Phone     *string            `bson:"phone"`
	Company   *string            `bson:"company"`
	Message   *string            `bson:"message"`
	SourceIP  string             `bson:"ip"`
	UserAgent string             `bson:"userAgent"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

// FailedNotificationPayload identifies what the notification was about.
type FailedNotificationPayload struct {
	SubmissionID string `bson:"submissionId"`
	Recipient    string `bson:"recipient"`
}

// FailedNotificationDocument is one undelivered notification.
type FailedNotificationDocument struct {
	ID          primitive.ObjectID        `bson:"_id"`
	Target      string                    `bson:"target"`
	Payload     FailedNotificationPayload `bson:"payload"`
	Error       string                    `bson:"error"`
	Attempts    int                       `bson:"attempts"`
	Status      string                    `bson:"status"`
	CreatedAt   time.Time                 `bson:"createdAt"`
	LastTriedAt time.Time                 `bson:"lastTriedAt"`
}

func newMessageDocument(id primitive.ObjectID, s *domain.Submission) MessageDocument {
	return MessageDocument{
		ID:        id,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Email:     s.Email,
		Phone:     s.Phone,
		Company:   s.Company,
		Message:   s.Message,
		SourceIP:  s.SourceIP,
		UserAgent: s.UserAgent,
		CreatedAt: s.CreatedAt.UTC(),
		UpdatedAt: s.UpdatedAt.UTC(),
	}
}

func mapMessageDocument(doc MessageDocument) domain.Submission {
	return domain.Submission{
		ID:        doc.ID.Hex(),
		FirstName: doc.FirstName,
		LastName:  doc.LastName,
		Email:     doc.Email,
		Phone:     doc.Phone,
		Company:   doc.Company,
		Message:   doc.Message,
		SourceIP:  doc.SourceIP,
		UserAgent: doc.UserAgent,
		CreatedAt: doc.CreatedAt.UTC(),
		UpdatedAt: doc.UpdatedAt.UTC(),
	}
}

func newFailedNotificationDocument(id primitive.ObjectID, f application.NotificationFailure) FailedNotificationDocument {
	occurred := f.OccurredAt.UTC()
	if f.OccurredAt.IsZero() {
		occurred = time.Now().UTC()
	}
	errText := ""
	if f.Err != nil {
		errText = f.Err.Error()
	}
	return FailedNotificationDocument{
		ID:     id,
		Target: f.Kind,
		Payload: FailedNotificationPayload{
			SubmissionID: f.SubmissionID,
			Recipient:    f.Recipient,
		},
		Error:       errText,
		Attempts:    f.Attempts,
		Status:      admindomain.FailedNotificationPending,
		CreatedAt:   occurred,
		LastTriedAt: occurred,
	}
}

func mapFailedNotificationDocument(doc FailedNotificationDocument) admindomain.FailedNotification {
	return admindomain.FailedNotification{
		ID:           doc.ID.Hex(),
		SubmissionID: doc.Payload.SubmissionID,
		Recipient:    doc.Payload.Recipient,
		Kind:         doc.Target,
		Error:        doc.Error,
		Attempts:     doc.Attempts,
		Status:       doc.Status,
		CreatedAt:    doc.CreatedAt.UTC(),
	}
}
