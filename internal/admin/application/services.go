package application

import (
	"context"
	"time"

	admindomain "github.com/sngm3741/dispatch-contact/api/internal/admin/domain"
	"github.com/sngm3741/dispatch-contact/api/internal/public/domain"
)

// Paging defaults.
const (
	DefaultLimit = 50
	MaxLimit     = 200
	MaxPage      = 10000
)

// SubmissionRepository exposes read operations on stored submissions.
type SubmissionRepository interface {
	Find(ctx context.Context, filter SubmissionFilter, paging Paging) ([]domain.Submission, error)
	FindByID(ctx context.Context, id string) (*domain.Submission, error)
	CountBySourceSince(ctx context.Context, sourceIP string, since time.Time) (int64, error)
}

// FailedNotificationRepository lists undelivered notifications.
type FailedNotificationRepository interface {
	ListRecent(ctx context.Context, limit int) ([]admindomain.FailedNotification, error)
}

// SubmissionFilter expresses admin search criteria. Zero values are ignored.
type SubmissionFilter struct {
	Email    string
	SourceIP string
	Since    time.Time
	Until    time.Time
}

// Paging controls pagination. Page is 1-based.
type Paging struct {
	Page  int
	Limit int
}

// Normalize clamps paging to sane bounds.
func (p Paging) Normalize() Paging {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Skip returns the number of records preceding the page.
func (p Paging) Skip() int64 {
	n := p.Normalize()
	return int64(n.Page-1) * int64(n.Limit)
}

// SubmissionService describes admin submission use-cases.
type SubmissionService interface {
	List(ctx context.Context, filter SubmissionFilter, paging Paging) ([]domain.Submission, error)
	Detail(ctx context.Context, id string) (*domain.Submission, error)
	SourceActivity(ctx context.Context, sourceIP string, since time.Time) (admindomain.SourceActivity, error)
}

// NotificationService describes admin notification use-cases.
type NotificationService interface {
	ListFailed(ctx context.Context, limit int) ([]admindomain.FailedNotification, error)
}
