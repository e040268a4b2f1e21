package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/limshub/vessel-queue/internal/domain"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondMessages returns the operation's MessageCollection plus optional
// payload. Accumulated errors mean the operation was aborted without state
// change, which maps to 422; warnings and infos ride along with a 200.
func respondMessages(w http.ResponseWriter, mc *domain.MessageCollection, payload map[string]any) {
	body := map[string]any{"messages": mc}
	for k, v := range payload {
		body[k] = v
	}
	status := http.StatusOK
	if mc.HasErrors() {
		status = http.StatusUnprocessableEntity
	}
	respondJSON(w, status, body)
}

// mapError translates domain sentinel errors to HTTP status codes.
// All mapping lives here so individual handlers stay concise.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrQueueNotFound),
		errors.Is(err, domain.ErrGroupingNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidQueueType),
		errors.Is(err, domain.ErrInvalidOrigin),
		errors.Is(err, domain.ErrEmptyVesselSet),
		errors.Is(err, domain.ErrEmptyGroupName),
		errors.Is(err, domain.ErrMissingPosition):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrNotRequeueable),
		errors.Is(err, domain.ErrScopedQueueType):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
