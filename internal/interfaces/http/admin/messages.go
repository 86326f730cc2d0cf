package admin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	adminapp "github.com/sngm3741/dispatch-contact/api/internal/admin/application"
	"github.com/sngm3741/dispatch-contact/api/internal/interfaces/http/common"
)

func (h *Handler) messageListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := h.requestLogger(r)
		query := r.URL.Query()
		since, err := common.ParseTimeParam(query.Get("since"))
		if err != nil {
			common.WriteError(h.logger, w, http.StatusBadRequest, errInvalidQuery, err.Error())
			return
		}
		until, err := common.ParseTimeParam(query.Get("until"))
		if err != nil {
			common.WriteError(h.logger, w, http.StatusBadRequest, errInvalidQuery, err.Error())
			return
		}
		if !since.IsZero() && !until.IsZero() && until.Before(since) {
			common.WriteError(h.logger, w, http.StatusBadRequest, errInvalidQuery, msgInvalidRange)
			return
		}

		limit, _ := common.ParsePositiveInt(query.Get("limit"), adminapp.DefaultLimit)
		page, _ := common.ParsePositiveInt(query.Get("page"), 1)
		paging := adminapp.Paging{Page: page, Limit: limit}.Normalize()

		filter := adminapp.SubmissionFilter{
			Email:    strings.TrimSpace(query.Get("email")),
			SourceIP: strings.TrimSpace(query.Get("ip")),
			Since:    since,
			Until:    until,
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.AdminQueryTimeout)
		defer cancel()

		submissions, err := h.submissions.List(ctx, filter, paging)
		if err != nil {
			log.Error("admin message list fetch failed", zap.Error(err))
			common.WriteError(h.logger, w, http.StatusInternalServerError, errListMessages, msgInternalError)
			return
		}
		log.Info("admin listed messages",
			zap.Int("page", paging.Page),
			zap.Int("limit", paging.Limit),
			zap.Int("count", len(submissions)),
		)

		items := make([]adminMessageResponse, 0, len(submissions))
		for _, s := range submissions {
			items = append(items, toMessageResponse(s))
		}
		common.WriteJSON(h.logger, w, http.StatusOK, adminMessageListResponse{
			Items: items,
			Page:  paging.Page,
			Limit: paging.Limit,
		})
	}
}

func (h *Handler) messageDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := h.requestLogger(r)
		idParam := strings.TrimSpace(chi.URLParam(r, "id"))
		if _, err := primitive.ObjectIDFromHex(idParam); err != nil {
			common.WriteError(h.logger, w, http.StatusBadRequest, errInvalidID, msgInvalidID)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.AdminQueryTimeout)
		defer cancel()

		submission, err := h.submissions.Detail(ctx, idParam)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				common.WriteError(h.logger, w, http.StatusNotFound, errNotFound, msgNotFound)
				return
			}
			log.Error("admin message detail fetch failed", zap.String("id", idParam), zap.Error(err))
			common.WriteError(h.logger, w, http.StatusInternalServerError, errLoadMessage, msgInternalError)
			return
		}
		log.Info("admin viewed message", zap.String("id", idParam))

		common.WriteJSON(h.logger, w, http.StatusOK, toMessageResponse(*submission))
	}
}

func (h *Handler) sourceActivityHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := h.requestLogger(r)
		ip := strings.TrimSpace(chi.URLParam(r, "ip"))
		if net.ParseIP(ip) == nil {
			common.WriteError(h.logger, w, http.StatusBadRequest, errInvalidIP, msgInvalidIP)
			return
		}
		since, err := common.ParseTimeParam(r.URL.Query().Get("since"))
		if err != nil {
			common.WriteError(h.logger, w, http.StatusBadRequest, errInvalidQuery, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.AdminQueryTimeout)
		defer cancel()

		activity, err := h.submissions.SourceActivity(ctx, ip, since)
		if err != nil {
			log.Error("admin source activity failed", zap.String("ip", ip), zap.Error(err))
			common.WriteError(h.logger, w, http.StatusInternalServerError, errCountMessages, msgInternalError)
			return
		}
		log.Info("admin counted source activity", zap.String("ip", ip), zap.Int64("count", activity.Count))

		common.WriteJSON(h.logger, w, http.StatusOK, sourceActivityResponse{
			IP:    activity.SourceIP,
			Since: activity.Since,
			Count: activity.Count,
		})
	}
}
