package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kpgate/kpgate/keepass"
	"github.com/kpgate/kpgate/security"
	"github.com/kpgate/kpgate/session"
)

// Login opens the database once to verify the credentials, then creates a
// session holding the encrypted master password. Wrong password and missing
// database produce the same response so callers cannot probe for database
// files.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DatabasePath == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "database_path and password are required")
		return
	}

	creds := keepass.Credentials{
		DatabasePath: req.DatabasePath,
		Password:     req.Password,
		Keyfile:      req.Keyfile,
	}
	if err := a.repo.TestConnection(r.Context(), creds); err != nil {
		if errors.Is(err, keepass.ErrAuthenticationFailed) || errors.Is(err, keepass.ErrDatabaseNotFound) {
			a.audit.logFailure(AuditLoginFailure, r, "invalid credentials")
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		a.mapError(w, r, err)
		return
	}

	res, err := a.sessions.Create(req.DatabasePath, req.Password, req.Keyfile, session.Metadata{
		IPAddress: a.extractClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		a.mapError(w, r, err)
		return
	}

	a.audit.logSession(AuditLoginSuccess, r, session.RedactID(res.SessionID),
		slog.String("database", req.DatabasePath))

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:        res.Token,
		SessionID:    res.SessionID,
		ExpiresIn:    int(a.sessions.SessionTimeout().Seconds()),
		DatabasePath: req.DatabasePath,
	})
}

// Logout invalidates the session named by the bearer token. Expired tokens
// are accepted; logging out is cleanup, not a privileged action. The call
// is idempotent.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	token := security.ExtractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeAuthFailure(w)
		return
	}

	invalidated := a.sessions.Invalidate(token)
	if invalidated {
		a.audit.log(AuditLogout, r)
	}
	writeJSON(w, http.StatusOK, LogoutResponse{Invalidated: invalidated})
}

// Refresh extends the session and returns a replacement token. The password
// envelope's freshness clock is not reset; only re-login does that.
func (a *API) Refresh(w http.ResponseWriter, r *http.Request) {
	token := security.ExtractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeAuthFailure(w)
		return
	}

	newToken, err := a.sessions.Refresh(token)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	if newToken == "" {
		writeAuthFailure(w)
		return
	}

	a.audit.log(AuditSessionRefreshed, r)
	writeJSON(w, http.StatusOK, RefreshResponse{
		Token:     newToken,
		ExpiresIn: int(a.sessions.SessionTimeout().Seconds()),
	})
}

// SessionInfo returns the redacted view of the caller's session.
func (a *API) SessionInfo(w http.ResponseWriter, r *http.Request) {
	info, ok := a.sessions.Info(tokenFrom(r.Context()))
	if !ok {
		writeAuthFailure(w)
		return
	}
	writeJSON(w, http.StatusOK, SessionInfoResponse{Session: *info})
}
