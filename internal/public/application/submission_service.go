package application

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/sngm3741/dispatch-contact/api/internal/public/domain"
)

// Dispatcher schedules a notification without blocking the caller.
type Dispatcher interface {
	Dispatch(n Notification)
}

// SubmissionServiceConfig defines dependencies required by the intake service.
type SubmissionServiceConfig struct {
	Repository   SubmissionRepository
	Dispatcher   Dispatcher
	Policy       domain.Policy
	MaxBodyBytes int64
	Logger       *zap.Logger
	Metrics      Recorder
	Now          func() time.Time
}

// NewSubmissionService builds the intake orchestrator.
func NewSubmissionService(cfg SubmissionServiceConfig) SubmissionCommandService {
	svc := &submissionService{
		repo:       cfg.Repository,
		dispatcher: cfg.Dispatcher,
		policy:     cfg.Policy,
		maxBody:    cfg.MaxBodyBytes,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		now:        cfg.Now,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.metrics == nil {
		svc.metrics = nopRecorder{}
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

type submissionService struct {
	repo       SubmissionRepository
	dispatcher Dispatcher
	policy     domain.Policy
	maxBody    int64
	logger     *zap.Logger
	metrics    Recorder
	now        func() time.Time
}

func (s *submissionService) Ready(ctx context.Context) bool {
	return s.repo != nil && s.repo.Ready(ctx)
}

// Submit runs ready check, parse, validate, insert and notification scheduling
// in that order. Every path ends in exactly one SubmitResult.
func (s *submissionService) Submit(ctx context.Context, body io.Reader, meta RequestMeta) SubmitResult {
	if !s.Ready(ctx) {
		s.logger.Warn("submission rejected: store not ready", zap.String("ip", meta.SourceIP))
		return s.finish(SubmitResult{Outcome: OutcomeUnavailable})
	}

	candidate, verr := domain.ParseCandidate(body, s.maxBody)
	if verr != nil {
		s.logger.Info("submission rejected: malformed payload", zap.String("ip", meta.SourceIP), zap.String("reason", verr.Reason))
		return s.finish(SubmitResult{Outcome: OutcomeInvalid, Validation: verr})
	}

	valid, verr := domain.Validate(candidate, s.policy)
	if verr != nil {
		s.logger.Info("submission rejected: validation failed",
			zap.String("ip", meta.SourceIP),
			zap.String("kind", string(verr.Kind)),
			zap.Strings("fields", verr.FieldNames()),
		)
		return s.finish(SubmitResult{Outcome: OutcomeInvalid, Validation: verr})
	}

	submission := domain.NewSubmission(valid, domain.Origin{
		SourceIP:  meta.SourceIP,
		UserAgent: meta.UserAgent,
	}, s.now())

	started := time.Now()
	id, err := s.repo.Insert(ctx, submission)
	s.metrics.RecordStoreLatency(time.Since(started))
	if err != nil {
		s.logger.Error("submission insert failed", zap.String("ip", meta.SourceIP), zap.Error(err))
		return s.finish(SubmitResult{Outcome: OutcomePersistenceFailed})
	}
	submission.ID = id

	s.logger.Info("submission stored", zap.String("id", id), zap.String("ip", meta.SourceIP))

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(Notification{Submission: *submission})
	}

	return s.finish(SubmitResult{Outcome: OutcomeCreated, ID: id})
}

func (s *submissionService) finish(result SubmitResult) SubmitResult {
	s.metrics.RecordSubmission(result.Outcome.String())
	return result
}

type nopRecorder struct{}

func (nopRecorder) RecordSubmission(string)           {}
func (nopRecorder) RecordStoreLatency(time.Duration)  {}
func (nopRecorder) RecordNotification(string, string) {}
