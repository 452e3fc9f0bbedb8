// internal/handlers/errors.go
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/akash684/bloodbank-be/internal/core/domain"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError translates domain errors into HTTP responses.
// Dependency failures are logged server-side and surfaced as 502 so
// callers can distinguish them from bad input.
func respondServiceError(l *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError
	var insufficientErr *domain.InsufficientInventoryError
	var dependencyErr *domain.DependencyError

	switch {
	case errors.As(err, &validationErr):
		respondError(w, http.StatusBadRequest, validationErr.Error())

	case errors.As(err, &insufficientErr):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":       insufficientErr.Error(),
			"blood_group": insufficientErr.BloodGroup,
			"requested":   insufficientErr.Requested,
			"available":   insufficientErr.Available,
		})

	case errors.Is(err, domain.ErrForbidden):
		respondError(w, http.StatusForbidden, "Insufficient permissions")

	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "Resource not found")

	case errors.Is(err, domain.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "Invalid status transition")

	case errors.As(err, &dependencyErr):
		l.ErrorContext(r.Context(), "dependency failure",
			slog.String("op", dependencyErr.Op),
			slog.String("error", dependencyErr.Error()))
		respondError(w, http.StatusBadGateway, "Upstream dependency unavailable")

	default:
		l.ErrorContext(r.Context(), "unhandled service error",
			slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
