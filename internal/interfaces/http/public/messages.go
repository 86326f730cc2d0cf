package public

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/sngm3741/dispatch-contact/api/internal/interfaces/http/common"
	publicapp "github.com/sngm3741/dispatch-contact/api/internal/public/application"
	"github.com/sngm3741/dispatch-contact/api/internal/public/domain"
)

func (h *Handler) messageCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.SubmitTimeout)
		defer cancel()

		result := h.submissions.Submit(ctx, r.Body, publicapp.RequestMeta{
			SourceIP:  common.ClientIP(r),
			UserAgent: r.UserAgent(),
		})

		switch result.Outcome {
		case publicapp.OutcomeCreated:
			common.WriteJSON(h.logger, w, http.StatusCreated, messageCreatedResponse{
				Success: true,
				Message: msgSaved,
				ID:      result.ID,
			})
		case publicapp.OutcomeInvalid:
			common.WriteJSON(h.logger, w, http.StatusBadRequest, validationResponse(result.Validation))
		case publicapp.OutcomeUnavailable:
			common.WriteError(h.logger, w, http.StatusServiceUnavailable, errUnavailable, msgUnavailable)
		case publicapp.OutcomePersistenceFailed:
			common.WriteError(h.logger, w, http.StatusInternalServerError, errSaveFailed, msgSaveFailed)
		default:
			h.logger.Error("unexpected submit outcome", zap.Stringer("outcome", result.Outcome))
			common.WriteError(h.logger, w, http.StatusInternalServerError, errSaveFailed, msgSaveFailed)
		}
	}
}

func validationResponse(verr *domain.ValidationError) common.ErrorResponse {
	if verr == nil {
		return common.ErrorResponse{Error: errInvalidBody, Message: msgInvalidBody}
	}
	switch verr.Kind {
	case domain.KindMissingField:
		return common.ErrorResponse{Error: errMissingFields, Details: verr.Fields, Message: msgMissingFields}
	case domain.KindInvalidFormat:
		if _, ok := verr.Fields[domain.FieldEmail]; ok {
			return common.ErrorResponse{Error: errInvalidEmail, Details: verr.Fields, Message: msgInvalidEmail}
		}
		return common.ErrorResponse{Error: errInvalidPhone, Details: verr.Fields, Message: msgInvalidPhone}
	default:
		message := verr.Reason
		if message == "" {
			message = msgInvalidBody
		}
		return common.ErrorResponse{Error: errInvalidBody, Details: verr.Fields, Message: message}
	}
}
