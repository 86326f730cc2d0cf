package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	adminapp "github.com/sngm3741/dispatch-contact/api/internal/admin/application"
	"github.com/sngm3741/dispatch-contact/api/internal/interfaces/http/common"
)

const (
	errInvalidQuery  = "Invalid query parameter"
	errInvalidID     = "Invalid message id"
	errInvalidIP     = "Invalid ip address"
	errNotFound      = "Message not found"
	errListMessages  = "Failed to list messages"
	errLoadMessage   = "Failed to load message"
	errCountMessages = "Failed to count messages"
	errListFailures  = "Failed to list notifications"
	msgInternalError = "An internal server error occurred"
	msgInvalidRange  = "until must not be before since"
	msgInvalidID     = "id must be a 24 character hex object id"
	msgInvalidIP     = "ip must be an IPv4 or IPv6 address"
	msgNotFound      = "No message exists with that id"
)

// Handler wires admin HTTP endpoints to application services.
type Handler struct {
	logger        *zap.Logger
	submissions   adminapp.SubmissionService
	notifications adminapp.NotificationService
}

// Config provides dependencies for Handler.
type Config struct {
	Logger        *zap.Logger
	Submissions   adminapp.SubmissionService
	Notifications adminapp.NotificationService
}

// NewHandler constructs an admin HTTP handler set.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		logger:        cfg.Logger,
		submissions:   cfg.Submissions,
		notifications: cfg.Notifications,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	return h
}

// Register mounts admin routes onto router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/messages", h.messageListHandler())
	r.Get("/messages/sources/{ip}/count", h.sourceActivityHandler())
	r.Get("/messages/{id}", h.messageDetailHandler())
	r.Get("/notifications/failed", h.failedNotificationListHandler())
}

// requestLogger tags entries with the authenticated admin when one is present.
func (h *Handler) requestLogger(r *http.Request) *zap.Logger {
	user, ok := common.UserFromContext(r.Context())
	if !ok {
		return h.logger
	}
	return h.logger.With(zap.String("admin", user.ID), zap.String("issuer", user.Issuer))
}
