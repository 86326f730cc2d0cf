package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	admindomain "github.com/sngm3741/dispatch-contact/api/internal/admin/domain"
	"github.com/sngm3741/dispatch-contact/api/internal/public/domain"
)

// DefaultActivityWindow is used when SourceActivity is asked without a start.
const DefaultActivityWindow = 24 * time.Hour

type submissionService struct {
	repo SubmissionRepository
	now  func() time.Time
}

func NewSubmissionService(repo SubmissionRepository) SubmissionService {
	return &submissionService{repo: repo, now: time.Now}
}

func (s *submissionService) List(ctx context.Context, filter SubmissionFilter, paging Paging) ([]domain.Submission, error) {
	filter.Email = strings.TrimSpace(filter.Email)
	filter.SourceIP = strings.TrimSpace(filter.SourceIP)
	if !filter.Since.IsZero() && !filter.Until.IsZero() && filter.Until.Before(filter.Since) {
		return nil, fmt.Errorf("until must not be before since")
	}
	return s.repo.Find(ctx, filter, paging.Normalize())
}

func (s *submissionService) Detail(ctx context.Context, id string) (*domain.Submission, error) {
	return s.repo.FindByID(ctx, strings.TrimSpace(id))
}

func (s *submissionService) SourceActivity(ctx context.Context, sourceIP string, since time.Time) (admindomain.SourceActivity, error) {
	sourceIP = strings.TrimSpace(sourceIP)
	if sourceIP == "" {
		return admindomain.SourceActivity{}, fmt.Errorf("source ip is required")
	}
	if since.IsZero() {
		since = s.now().Add(-DefaultActivityWindow)
	}
	since = since.UTC()
	count, err := s.repo.CountBySourceSince(ctx, sourceIP, since)
	if err != nil {
		return admindomain.SourceActivity{}, err
	}
	return admindomain.SourceActivity{SourceIP: sourceIP, Since: since, Count: count}, nil
}

type notificationService struct {
	repo FailedNotificationRepository
}

func NewNotificationService(repo FailedNotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) ListFailed(ctx context.Context, limit int) ([]admindomain.FailedNotification, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return s.repo.ListRecent(ctx, limit)
}
