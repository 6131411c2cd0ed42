package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/careportal/access-core/internal/auth"
	"github.com/careportal/access-core/internal/repository"
	"github.com/careportal/access-core/internal/services"
	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the core's error taxonomy to transport status
// codes. Auth failures stay generic on purpose.
func writeServiceError(w http.ResponseWriter, err error) {
	var validation *services.ValidationError
	var weak *auth.WeakSecretError
	var locked *auth.LockedError
	var denied *services.DeniedError

	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &weak):
		writeError(w, http.StatusBadRequest, weak.Error())
	case errors.Is(err, repository.ErrDuplicateIdentity):
		writeError(w, http.StatusConflict, "account already exists")
	case errors.As(err, &locked):
		w.Header().Set("Retry-After", locked.RetryAfter.Round(time.Second).String())
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"error":       "too many failed attempts",
			"retry_after": int(locked.RetryAfter.Seconds()),
		})
	case errors.Is(err, auth.ErrAuthFailed):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.As(err, &denied):
		writeError(w, http.StatusForbidden, denied.Reason)
	case errors.Is(err, services.ErrAccountRestricted):
		writeError(w, http.StatusConflict, "account is restricted")
	case errors.Is(err, repository.ErrAccountNotFound),
		errors.Is(err, repository.ErrRequestNotFound),
		errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrRequestTerminal):
		writeError(w, http.StatusConflict, "request already settled")
	default:
		log.Error().Err(err).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// clientIP prefers the RealIP middleware's resolution.
func clientIP(r *http.Request) string {
	return r.RemoteAddr
}
