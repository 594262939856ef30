package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kpgate/kpgate/keepass"
	"github.com/kpgate/kpgate/security"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeAuthFailure is the single authorization-failure shape. Missing,
// malformed, expired, and unknown-session cases all produce this exact
// response so callers cannot enumerate sessions or probe token state.
func writeAuthFailure(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, "authentication required")
}

// mapError converts an error into a caller-facing response. Authorization
// failures stay uniform; unexpected errors are logged with full detail and
// surfaced as a generic 500.
func (a *API) mapError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, security.ErrInvalidToken),
		errors.Is(err, security.ErrSessionExpired),
		errors.Is(err, security.ErrSecurity):
		writeAuthFailure(w)
	case errors.Is(err, keepass.ErrAuthenticationFailed):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, keepass.ErrDatabaseNotFound),
		errors.Is(err, keepass.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, keepass.ErrDatabaseLocked):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, keepass.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, keepass.ErrTimeout.Error())
	case errors.Is(err, keepass.ErrNotAvailable):
		writeError(w, http.StatusServiceUnavailable, keepass.ErrNotAvailable.Error())
	default:
		a.logger.LogAttrs(r.Context(), slog.LevelError, "internal error",
			slog.String("path", r.URL.Path), slog.String("err", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
