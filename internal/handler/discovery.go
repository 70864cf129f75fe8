package handler

import (
	"net/http"

	"github.com/tastemash/compatibility-service/internal/domain"
)

// GET /users/{userID}/blind-match
func (h *Handler) GetBlindMatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid userID parameter")
		return
	}

	result, err := h.service.NextBlindMatch(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DiscoveryResponse{UserID: userID, Feature: "blind_match", Result: result})
}

// GET /users/{userID}/roulette?media_type=movie
func (h *Handler) GetRoulette(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid userID parameter")
		return
	}

	mediaType := domain.MediaType(r.URL.Query().Get("media_type"))
	if mediaType != "" && !mediaType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Unknown media_type")
		return
	}

	result, err := h.service.Roulette(r.Context(), userID, mediaType)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DiscoveryResponse{UserID: userID, Feature: "roulette", Result: result})
}

// GET /users/{userID}/recommendations?media_type=anime
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid userID parameter")
		return
	}

	mediaType := domain.MediaType(r.URL.Query().Get("media_type"))
	if mediaType != "" && !mediaType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Unknown media_type")
		return
	}

	result, err := h.service.Recommendations(r.Context(), userID, mediaType)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DiscoveryResponse{UserID: userID, Feature: "item_rec", Result: result})
}

// POST /groups/consensus
func (h *Handler) GroupConsensus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MemberIDs []int64 `json:"member_ids"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Malformed request body")
		return
	}
	if len(body.MemberIDs) < 2 {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "At least two member_ids are required")
		return
	}

	result, err := h.service.GroupConsensus(r.Context(), body.MemberIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DiscoveryResponse{Feature: "consensus", Result: result})
}
