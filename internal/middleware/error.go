package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Timestamp string              `json:"timestamp"`
	Status    int                 `json:"status"`
	Error     string              `json:"error"`
	Message   string              `json:"message"`
	Errors    map[string][]string `json:"errors,omitempty"`
}

const validationErrorTitle = "Validation Error"

// RespondWithError sends a structured error response
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	writeError(w, statusCode, http.StatusText(statusCode), message, nil)
}

// RespondWithValidationErrors sends the per-field violations of a request
func RespondWithValidationErrors(w http.ResponseWriter, errors map[string][]string) {
	writeError(w, http.StatusBadRequest, validationErrorTitle, "validation failed", errors)
}

func writeError(w http.ResponseWriter, statusCode int, title, message string, errors map[string][]string) {
	RespondWithJSON(w, statusCode, ErrorResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Status:    statusCode,
		Error:     title,
		Message:   message,
		Errors:    errors,
	})
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
						zap.Stack("stack"),
					)

					RespondWithError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
