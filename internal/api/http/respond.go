package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"telecare-backend/internal/logger"
	"telecare-backend/internal/repository"
	"telecare-backend/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondServiceError maps service-layer sentinels onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrInvalidBooking),
		errors.Is(err, service.ErrSessionMissing):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInsufficientBalance):
		respondError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, service.ErrEmailTaken):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, err.Error())
	default:
		logger.Error("internal error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
