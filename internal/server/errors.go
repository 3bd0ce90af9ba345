package server

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/askindex/internal/models"
	"github.com/hyperjump/askindex/internal/search"
	"github.com/hyperjump/askindex/internal/vector"
	"github.com/hyperjump/askindex/pkg/utils"
)

// errorStatus maps pipeline failures to HTTP statuses. Tenant failures caused by a
// missing index are refined to 404 in statusFor.
var errorStatus = map[search.Kind]int{
	search.KindEmbeddingFailed:   http.StatusInternalServerError,
	search.KindTenantUnavailable: http.StatusServiceUnavailable,
	search.KindSearchFailed:      http.StatusInternalServerError,
}

func statusFor(perr *search.PipelineError) int {
	if perr.Kind == search.KindTenantUnavailable && errors.Is(perr, vector.ErrIndexNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(perr, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	if status, ok := errorStatus[perr.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// statusClientClosedRequest is the nginx convention for a client that went away.
const statusClientClosedRequest = 499

func (s *Server) respondSearchError(w http.ResponseWriter, r *http.Request, err error) {
	log := utils.LoggerFromContext(r.Context(), s.logger)

	if errors.Is(err, context.Canceled) {
		log.Debug("search canceled by client", zap.Error(err))
		s.respondJSON(w, statusClientClosedRequest, models.ErrorResponse{Error: "canceled", Message: err.Error()})
		return
	}

	var verr *models.ValidationError
	if errors.As(err, &verr) {
		log.Debug("invalid search request", zap.Error(err))
		s.respondJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{
			Error:   "validation_failed",
			Message: "request body failed validation",
			Details: verr.Violations,
		})
		return
	}

	var perr *search.PipelineError
	if errors.As(err, &perr) {
		status := statusFor(perr)
		if status >= http.StatusInternalServerError {
			log.Error("search failed", zap.String("kind", string(perr.Kind)), zap.Error(err))
		} else {
			log.Info("search rejected", zap.String("kind", string(perr.Kind)), zap.Error(err))
		}
		s.respondJSON(w, status, models.ErrorResponse{
			Error:   string(perr.Kind),
			Message: perr.Err.Error(),
		})
		return
	}

	log.Error("search failed", zap.Error(err))
	s.respondJSON(w, http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: err.Error(),
	})
}
