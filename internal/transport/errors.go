package transport

import (
	"errors"
	"net/http"

	"mercadolibros/internal/domain"
	"mercadolibros/internal/middleware"

	"go.uber.org/zap"
)

// respondWithServiceError maps domain error kinds onto HTTP statuses.
// Anything unclassified is logged and hidden behind a generic 500.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		switch domainErr.Kind {
		case domain.KindNotFound:
			middleware.RespondWithError(w, http.StatusNotFound, domainErr.Message)
			return
		case domain.KindConflict:
			middleware.RespondWithError(w, http.StatusConflict, domainErr.Message)
			return
		case domain.KindInvalid:
			middleware.RespondWithError(w, http.StatusBadRequest, domainErr.Message)
			return
		}
	}

	logger.Error("Unhandled error",
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
	middleware.RespondWithError(w, http.StatusInternalServerError, "an unexpected error occurred")
}
