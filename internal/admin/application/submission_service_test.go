package application

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	admindomain "github.com/sngm3741/dispatch-contact/api/internal/admin/domain"
	"github.com/sngm3741/dispatch-contact/api/internal/public/domain"
)

type mockSubmissionRepository struct {
	findFn  func(ctx context.Context, filter SubmissionFilter, paging Paging) ([]domain.Submission, error)
	byIDFn  func(ctx context.Context, id string) (*domain.Submission, error)
	countFn func(ctx context.Context, sourceIP string, since time.Time) (int64, error)
}

func (m *mockSubmissionRepository) Find(ctx context.Context, filter SubmissionFilter, paging Paging) ([]domain.Submission, error) {
	return m.findFn(ctx, filter, paging)
}

func (m *mockSubmissionRepository) FindByID(ctx context.Context, id string) (*domain.Submission, error) {
	return m.byIDFn(ctx, id)
}

func (m *mockSubmissionRepository) CountBySourceSince(ctx context.Context, sourceIP string, since time.Time) (int64, error) {
	return m.countFn(ctx, sourceIP, since)
}

type mockFailedNotificationRepository struct {
	listFn func(ctx context.Context, limit int) ([]admindomain.FailedNotification, error)
}

func (m *mockFailedNotificationRepository) ListRecent(ctx context.Context, limit int) ([]admindomain.FailedNotification, error) {
	return m.listFn(ctx, limit)
}

func TestPagingNormalize(t *testing.T) {
	assert.Equal(t, Paging{Page: 1, Limit: DefaultLimit}, Paging{}.Normalize())
	assert.Equal(t, Paging{Page: 3, Limit: MaxLimit}, Paging{Page: 3, Limit: 5000}.Normalize())
	assert.Equal(t, int64(40), Paging{Page: 3, Limit: 20}.Skip())
	assert.Equal(t, int64(0), Paging{Page: -1}.Skip())

	huge := Paging{Page: math.MaxInt, Limit: MaxLimit}
	assert.Equal(t, MaxPage, huge.Normalize().Page)
	assert.Equal(t, int64(MaxPage-1)*MaxLimit, huge.Skip())
	assert.Positive(t, huge.Skip())
}

func TestListNormalizesInput(t *testing.T) {
	var gotFilter SubmissionFilter
	var gotPaging Paging
	repo := &mockSubmissionRepository{
		findFn: func(_ context.Context, filter SubmissionFilter, paging Paging) ([]domain.Submission, error) {
			gotFilter, gotPaging = filter, paging
			return []domain.Submission{{ID: "a"}}, nil
		},
	}
	svc := NewSubmissionService(repo)

	items, err := svc.List(context.Background(), SubmissionFilter{Email: "  john@test.com ", SourceIP: " 10.0.0.1"}, Paging{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, "john@test.com", gotFilter.Email)
	assert.Equal(t, "10.0.0.1", gotFilter.SourceIP)
	assert.Equal(t, Paging{Page: 1, Limit: DefaultLimit}, gotPaging)
}

func TestListRejectsInvertedRange(t *testing.T) {
	svc := NewSubmissionService(&mockSubmissionRepository{})
	now := time.Now()

	_, err := svc.List(context.Background(), SubmissionFilter{Since: now, Until: now.Add(-time.Hour)}, Paging{})
	assert.Error(t, err)
}

func TestSourceActivityDefaultsWindow(t *testing.T) {
	fixed := time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC)
	var gotSince time.Time
	repo := &mockSubmissionRepository{
		countFn: func(_ context.Context, ip string, since time.Time) (int64, error) {
			assert.Equal(t, "192.0.2.7", ip)
			gotSince = since
			return 4, nil
		},
	}
	svc := &submissionService{repo: repo, now: func() time.Time { return fixed }}

	activity, err := svc.SourceActivity(context.Background(), "192.0.2.7", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), activity.Count)
	assert.Equal(t, fixed.Add(-DefaultActivityWindow), gotSince)
	assert.Equal(t, gotSince, activity.Since)
}

func TestSourceActivityRequiresIP(t *testing.T) {
	svc := NewSubmissionService(&mockSubmissionRepository{})
	_, err := svc.SourceActivity(context.Background(), " ", time.Time{})
	assert.Error(t, err)
}

func TestListFailedClampsLimit(t *testing.T) {
	var got int
	svc := NewNotificationService(&mockFailedNotificationRepository{
		listFn: func(_ context.Context, limit int) ([]admindomain.FailedNotification, error) {
			got = limit
			return nil, nil
		},
	})

	_, err := svc.ListFailed(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, got)

	_, err = svc.ListFailed(context.Background(), 10_000)
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, got)
}
