package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"character-quiz-service/internal/domain"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify maps domain error kinds to a status and a stable code. Unknown
// errors are reported as internal without their text.
func classify(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized, errorPayload{Code: "unauthorized", Message: err.Error()}
	case errors.Is(err, domain.ErrMissingIdentity):
		return http.StatusBadRequest, errorPayload{Code: "validation", Message: err.Error()}
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, errorPayload{Code: "validation", Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorPayload{Code: "not_found", Message: err.Error()}
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, errorPayload{Code: "conflict", Message: err.Error()}
	case errors.Is(err, domain.ErrExpired):
		return http.StatusGone, errorPayload{Code: "expired", Message: err.Error()}
	default:
		log.Printf("internal error: %v", err)
		return http.StatusInternalServerError, errorPayload{Code: "internal", Message: "internal error"}
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, payload := classify(err)
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
