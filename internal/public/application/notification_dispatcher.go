package application

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sngm3741/dispatch-contact/api/internal/public/domain"
)

// Notification kinds.
const (
	KindConfirmation = "confirmation"
	KindAdminAlert   = "admin"
)

// Notification is scheduled once per stored submission.
type Notification struct {
	Submission domain.Submission
}

// DispatcherConfig defines dependencies for NotificationDispatcher.
type DispatcherConfig struct {
	Notifier     Notifier
	Failures     FailureRecorder
	SiteName     string
	AdminAddress string
	Timeout      time.Duration
	Logger       *zap.Logger
	Metrics      Recorder
}

// NotificationDispatcher sends confirmation mail in background goroutines.
// A send is attempted at most once; failures are logged and recorded but never
// reach the request that triggered them.
type NotificationDispatcher struct {
	notifier     Notifier
	failures     FailureRecorder
	siteName     string
	adminAddress string
	timeout      time.Duration
	logger       *zap.Logger
	metrics      Recorder
	wg           sync.WaitGroup
}

// NewNotificationDispatcher builds a dispatcher.
func NewNotificationDispatcher(cfg DispatcherConfig) *NotificationDispatcher {
	d := &NotificationDispatcher{
		notifier:     cfg.Notifier,
		failures:     cfg.Failures,
		siteName:     strings.TrimSpace(cfg.SiteName),
		adminAddress: strings.TrimSpace(cfg.AdminAddress),
		timeout:      cfg.Timeout,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
	}
	if d.siteName == "" {
		d.siteName = "Dispatch Team"
	}
	if d.timeout <= 0 {
		d.timeout = 30 * time.Second
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.metrics == nil {
		d.metrics = nopRecorder{}
	}
	return d
}

// Dispatch returns immediately.
func (d *NotificationDispatcher) Dispatch(n Notification) {
	if d.notifier == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				d.logger.Error("notification panicked",
					zap.String("submissionId", n.Submission.ID),
					zap.Any("panic", rec),
				)
			}
		}()
		d.deliver(context.Background(), n)
	}()
}

// Wait blocks until in-flight notifications finish or ctx ends.
func (d *NotificationDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *NotificationDispatcher) deliver(ctx context.Context, n Notification) {
	submission := n.Submission

	subject, body, err := renderConfirmation(d.siteName, submission)
	if err == nil {
		d.send(ctx, KindConfirmation, submission.ID, submission.Email, subject, body)
	} else {
		d.logger.Error("confirmation render failed", zap.String("submissionId", submission.ID), zap.Error(err))
	}

	if d.adminAddress == "" {
		return
	}
	subject, body, err = renderAdminAlert(d.siteName, submission)
	if err != nil {
		d.logger.Error("admin alert render failed", zap.String("submissionId", submission.ID), zap.Error(err))
		return
	}
	d.send(ctx, KindAdminAlert, submission.ID, d.adminAddress, subject, body)
}

func (d *NotificationDispatcher) send(ctx context.Context, kind, submissionID, to, subject, body string) {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.notifier.Send(sendCtx, to, subject, body)
	if err == nil {
		d.metrics.RecordNotification(kind, "sent")
		d.logger.Info("notification sent", zap.String("kind", kind), zap.String("submissionId", submissionID))
		return
	}

	d.metrics.RecordNotification(kind, "failed")
	d.logger.Warn("notification failed",
		zap.String("kind", kind),
		zap.String("submissionId", submissionID),
		zap.Error(err),
	)
	d.recordFailure(ctx, NotificationFailure{
		SubmissionID: submissionID,
		Recipient:    to,
		Kind:         kind,
		Err:          err,
		Attempts:     1,
		OccurredAt:   time.Now().UTC(),
	})
}

func (d *NotificationDispatcher) recordFailure(ctx context.Context, failure NotificationFailure) {
	if d.failures == nil {
		return
	}
	recordCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := d.failures.RecordFailure(recordCtx, failure); err != nil {
		d.logger.Error("failed notification could not be recorded",
			zap.String("submissionId", failure.SubmissionID),
			zap.Error(fmt.Errorf("record failure: %w", err)),
		)
	}
}
