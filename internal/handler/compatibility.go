package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tastemash/compatibility-service/internal/domain"
	"github.com/tastemash/compatibility-service/internal/service"
)

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseUserID(r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	return id, err == nil && id > 0
}

// GET /users/{userID}/signature
func (h *Handler) GetSignature(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid userID parameter")
		return
	}

	sig, err := h.service.GetSignature(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sig)
}

// GET /users/{userID}/insights
func (h *Handler) GetInsights(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid userID parameter")
		return
	}

	insights, err := h.service.GetInsights(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

// GET /users/{userID}/mash/{otherID}
func (h *Handler) GetMashScore(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid userID parameter")
		return
	}
	otherID, ok := parseUserID(r, "otherID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid otherID parameter")
		return
	}
	if userID == otherID {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Cannot score a user against themselves")
		return
	}

	mash, err := h.service.MashScore(r.Context(), userID, otherID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MashResponse{UserID: userID, OtherID: otherID, Mash: mash})
}

// GET /users/{userID}/twins
func (h *Handler) GetTasteTwins(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid userID parameter")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > 50 {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	twins, err := h.service.FindTasteTwins(r.Context(), userID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if twins == nil {
		twins = []service.TwinMatch{}
	}
	writeJSON(w, http.StatusOK, TwinsResponse{UserID: userID, Twins: twins})
}

// POST /users/{userID}/library
func (h *Handler) AddLibraryEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid userID parameter")
		return
	}
	if CallerID(r.Context()) != userID {
		writeError(w, http.StatusForbidden, "forbidden", "Cannot modify another user's library")
		return
	}

	var body struct {
		MediaType domain.MediaType `json:"media_type"`
		MediaID   string           `json:"media_id"`
		Rating    *float64         `json:"rating"`
		Genres    []string         `json:"genres"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Malformed request body")
		return
	}
	if !body.MediaType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Unknown media_type")
		return
	}
	if body.MediaID == "" {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "media_id is required")
		return
	}
	if body.Rating != nil && (*body.Rating < 1 || *body.Rating > 10) {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "rating must be between 1 and 10")
		return
	}

	err := h.service.AddLibraryEntry(r.Context(), domain.LibraryEntry{
		UserID:    userID,
		MediaType: body.MediaType,
		MediaID:   body.MediaID,
		Rating:    body.Rating,
		Genres:    body.Genres,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
