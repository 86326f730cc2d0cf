package public

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	publicapp "github.com/sngm3741/dispatch-contact/api/internal/public/application"
)

// Handler wires public HTTP endpoints to application services.
type Handler struct {
	logger      *zap.Logger
	submissions publicapp.SubmissionCommandService
	startedAt   time.Time
	now         func() time.Time
	submitLimit func(http.Handler) http.Handler
}

// Config defines dependencies required by Handler.
type Config struct {
	Logger      *zap.Logger
	Submissions publicapp.SubmissionCommandService
	// StartedAt is the process start used for the health uptime.
	StartedAt time.Time
	// SubmitLimiter wraps POST /messages only. Optional.
	SubmitLimiter func(http.Handler) http.Handler
}

// NewHandler constructs a public HTTP handler set.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		logger:      cfg.Logger,
		submissions: cfg.Submissions,
		startedAt:   cfg.StartedAt,
		now:         time.Now,
		submitLimit: cfg.SubmitLimiter,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.startedAt.IsZero() {
		h.startedAt = time.Now()
	}
	return h
}

// Register mounts all public routes onto the router.
func (h *Handler) Register(r chi.Router) {
	submit := r
	if h.submitLimit != nil {
		submit = r.With(h.submitLimit)
	}
	submit.Post("/messages", h.messageCreateHandler())
	r.Get("/health", h.healthHandler())
}
