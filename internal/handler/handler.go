package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tastemash/compatibility-service/internal/domain"
	"github.com/tastemash/compatibility-service/internal/service"
)

type Handler struct {
	service *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

// write JSON response
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writes JSON error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

// writeDomainError maps engine errors onto feature-appropriate HTTP
// responses. Empty states are handled before this is reached; only
// real failures arrive here.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", "No resolvable caller identity")
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", "User does not exist")
	case errors.Is(err, domain.ErrInsufficientData):
		writeError(w, http.StatusUnprocessableEntity, "insufficient_data", "Not enough rated history yet")
	case errors.Is(err, domain.ErrInsufficientOverlap):
		writeError(w, http.StatusUnprocessableEntity, "insufficient_overlap", "Not enough shared items between these users")
	case domain.IsTransient(err):
		writeError(w, http.StatusServiceUnavailable, "upstream_unavailable", "A data source is temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request_timeout", "Request timed out, please try again")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
