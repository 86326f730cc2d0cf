package application

import (
	"context"
	"io"
	"time"

	"github.com/sngm3741/dispatch-contact/api/internal/public/domain"
)

// SubmissionRepository is the write-side port of the submission store.
type SubmissionRepository interface {
	// Ready reports whether the store is connected and its indexes are provisioned.
	Ready(ctx context.Context) bool
	// Insert appends one record and returns the generated id. It never upserts.
	Insert(ctx context.Context, submission *domain.Submission) (string, error)
}

// Notifier delivers one email. Implementations make a single attempt.
type Notifier interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// FailureRecorder keeps undelivered notifications for later inspection.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, failure NotificationFailure) error
}

// Recorder receives pipeline metrics.
type Recorder interface {
	RecordSubmission(outcome string)
	RecordStoreLatency(d time.Duration)
	RecordNotification(kind, result string)
}

// NotificationFailure describes one failed send.
type NotificationFailure struct {
	SubmissionID string
	Recipient    string
	Kind         string
	Err          error
	Attempts     int
	OccurredAt   time.Time
}

// RequestMeta is transport metadata captured by the HTTP layer.
type RequestMeta struct {
	SourceIP  string
	UserAgent string
}

// Outcome is the terminal state of one intake request.
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeInvalid
	OutcomeUnavailable
	OutcomePersistenceFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomePersistenceFailed:
		return "persistence_failed"
	default:
		return "unknown"
	}
}

// SubmitResult is returned by SubmissionService.Submit. ID is set only for
// OutcomeCreated and Validation only for OutcomeInvalid.
type SubmitResult struct {
	Outcome    Outcome
	ID         string
	Validation *domain.ValidationError
}

// SubmissionCommandService is the intake use-case consumed by HTTP handlers.
type SubmissionCommandService interface {
	Submit(ctx context.Context, body io.Reader, meta RequestMeta) SubmitResult
	Ready(ctx context.Context) bool
}
