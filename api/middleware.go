package api

import (
	"context"
	"net/http"

	"github.com/kpgate/kpgate/security"
	"github.com/kpgate/kpgate/session"
)

type contextKey int

const (
	sessionKey contextKey = iota
	tokenKey
)

// AuthMiddleware is the per-request authentication mediation: it extracts
// the bearer token, resolves it to a live session, and stores both on the
// request context. Every failure mode (missing header, malformed token,
// expired token, expired session, unknown session) produces the same 401
// body. Anything unexpected becomes a generic 500 with details only in the
// server log.
func (a *API) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := security.ExtractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeAuthFailure(w)
			return
		}

		sess, err := a.sessions.Get(token)
		if err != nil {
			a.mapError(w, r, err)
			return
		}
		if sess == nil {
			writeAuthFailure(w)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFrom returns the authenticated session placed by AuthMiddleware.
func sessionFrom(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey).(*session.Session)
	return s
}

// tokenFrom returns the raw bearer token for the current request.
func tokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}

// credentialsForRequest decrypts the master password for the scope of one
// request. The plaintext lives on the stack of the calling handler and is
// never cached, logged, or attached to a response.
func (a *API) credentialsForRequest(w http.ResponseWriter, r *http.Request) (databasePath, password, keyfile string, ok bool) {
	sess := sessionFrom(r.Context())
	if sess == nil {
		writeAuthFailure(w)
		return "", "", "", false
	}

	password, err := a.sessions.DecryptedPassword(tokenFrom(r.Context()))
	if err != nil {
		a.mapError(w, r, err)
		return "", "", "", false
	}
	if password == "" {
		writeAuthFailure(w)
		return "", "", "", false
	}
	return sess.DatabasePath, password, sess.Keyfile, true
}
