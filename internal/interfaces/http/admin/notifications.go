package admin

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	adminapp "github.com/sngm3741/dispatch-contact/api/internal/admin/application"
	"github.com/sngm3741/dispatch-contact/api/internal/interfaces/http/common"
)

func (h *Handler) failedNotificationListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := h.requestLogger(r)
		limit, _ := common.ParsePositiveInt(r.URL.Query().Get("limit"), adminapp.DefaultLimit)

		ctx, cancel := context.WithTimeout(r.Context(), common.AdminQueryTimeout)
		defer cancel()

		failures, err := h.notifications.ListFailed(ctx, limit)
		if err != nil {
			log.Error("admin failed notification list failed", zap.Error(err))
			common.WriteError(h.logger, w, http.StatusInternalServerError, errListFailures, msgInternalError)
			return
		}
		log.Info("admin listed failed notifications", zap.Int("limit", limit), zap.Int("count", len(failures)))

		items := make([]failedNotificationResponse, 0, len(failures))
		for _, f := range failures {
			items = append(items, toFailedNotificationResponse(f))
		}
		common.WriteJSON(h.logger, w, http.StatusOK, failedNotificationListResponse{Items: items})
	}
}
