package public

import (
	"context"
	"net/http"
	"time"

	"github.com/sngm3741/dispatch-contact/api/internal/interfaces/http/common"
)

const healthReadinessTimeout = 2 * time.Second

// healthHandler always answers 200; database reflects current store readiness.
func (h *Handler) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthReadinessTimeout)
		defer cancel()

		database := databaseDisconnected
		if h.submissions != nil && h.submissions.Ready(ctx) {
			database = databaseConnected
		}

		now := h.now()
		common.WriteJSON(h.logger, w, http.StatusOK, healthResponse{
			Status:    healthStatusHealthy,
			Timestamp: now.UTC().Format(time.RFC3339Nano),
			Uptime:    now.Sub(h.startedAt).Seconds(),
			Database:  database,
		})
	}
}
