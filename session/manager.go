package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kpgate/kpgate/security"
)

// Metadata carries audit-only client attributes. They are never used for
// authorization decisions.
type Metadata struct {
	IPAddress string
	UserAgent string
}

// CreateResult is returned from a successful session creation.
type CreateResult struct {
	Token     string
	SessionID string
}

// Manager orchestrates session identity, encrypted-credential storage, and
// the two independent expiry clocks: the session timeout (how long the
// session record lives) and the max password age (how long the password
// envelope may still be opened, regardless of session liveness).
type Manager struct {
	store          *Store
	enc            *security.EncryptionService
	tokens         *security.TokenManager
	sessionTimeout time.Duration
	maxPasswordAge time.Duration
	now            func() time.Time
	logger         *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the clock for the manager and both underlying
// security services. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager builds a manager owning a fresh store. The secret drives both
// the envelope key and the token signing key and must be at least
// security.MinSecretLength characters.
func NewManager(secret string, sessionTimeout, maxPasswordAge time.Duration, opts ...Option) (*Manager, error) {
	m := &Manager{
		store:          NewStore(),
		sessionTimeout: sessionTimeout,
		maxPasswordAge: maxPasswordAge,
		now:            time.Now,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	enc, err := security.NewEncryptionService(secret, security.WithEncryptionClock(m.now))
	if err != nil {
		return nil, err
	}
	tokens, err := security.NewTokenManager(secret, sessionTimeout, security.WithTokenClock(m.now))
	if err != nil {
		enc.Destroy()
		return nil, err
	}
	m.enc = enc
	m.tokens = tokens

	m.logger = m.logger.With("component", "session")
	m.logger.Info("session manager initialized",
		"session_timeout", sessionTimeout.String(),
		"max_password_age", maxPasswordAge.String())
	return m, nil
}

// Create encrypts the master password, stores a new session, and issues a
// token bound to its id. The token claims carry only non-sensitive fields;
// the claim filter in the token manager is a second line of defense.
func (m *Manager) Create(databasePath, password, keyfile string, meta Metadata) (CreateResult, error) {
	encrypted, err := m.enc.Encrypt(password)
	if err != nil {
		return CreateResult{}, fmt.Errorf("%w: encrypting password: %v", security.ErrSecurity, err)
	}

	now := m.now()
	s := Session{
		SessionID:         uuid.NewString(),
		DatabasePath:      databasePath,
		encryptedPassword: encrypted,
		Keyfile:           keyfile,
		CreatedAt:         now,
		LastActivity:      now,
		ExpiresAt:         now.Add(m.sessionTimeout),
		IPAddress:         meta.IPAddress,
		UserAgent:         meta.UserAgent,
	}

	token, err := m.tokens.CreateToken(s.SessionID, map[string]any{
		"database_path": databasePath,
		"has_keyfile":   keyfile != "",
	}, m.sessionTimeout)
	if err != nil {
		return CreateResult{}, fmt.Errorf("%w: issuing token: %v", security.ErrSecurity, err)
	}

	m.store.Put(s)
	m.logger.Info("session created", "session_id", RedactID(s.SessionID), "database", databasePath)

	return CreateResult{Token: token, SessionID: s.SessionID}, nil
}

// Get resolves a token to its session. It returns (nil, nil) when the
// session does not exist: a never-issued token and a token for an
// invalidated session are deliberately indistinguishable. A token past its
// own expiry, or a session past its independent expiry, returns
// security.ErrSessionExpired; the latter also lazily removes the entry.
func (m *Manager) Get(token string) (*Session, error) {
	claims, err := m.tokens.DecodeToken(token, true)
	if err != nil {
		if errors.Is(err, security.ErrSessionExpired) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", security.ErrInvalidToken, err)
	}

	id, _ := claims["sub"].(string)
	if id == "" {
		return nil, nil
	}

	s, ok := m.store.Get(id)
	if !ok {
		return nil, nil
	}

	now := m.now()
	if s.Expired(now) {
		m.store.DeleteIfExpired(id, now)
		m.logger.Warn("session expired on lookup", "session_id", RedactID(id))
		return nil, fmt.Errorf("%w: session past its expiry", security.ErrSessionExpired)
	}

	m.store.Touch(id, now)
	s.LastActivity = now
	return &s, nil
}

// DecryptedPassword resolves the session and opens its envelope under the
// max-password-age freshness clock. The plaintext must be used within the
// scope of a single request and never stored, logged, or echoed.
func (m *Manager) DecryptedPassword(token string) (string, error) {
	s, err := m.Get(token)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", nil
	}

	password, err := m.enc.Decrypt(s.encryptedPassword, m.maxPasswordAge)
	if err != nil {
		m.logger.Warn("password envelope rejected", "session_id", RedactID(s.SessionID))
		return "", fmt.Errorf("%w: opening password envelope: %v", security.ErrSecurity, err)
	}
	return password, nil
}

// Refresh extends the session's expiry to now + session timeout and issues
// a brand-new token for the same subject. The password envelope's internal
// timestamp is deliberately left untouched: a long-lived, repeatedly
// refreshed session still loses password retrieval once the envelope
// exceeds the max password age, and re-login is the recovery path.
// Returns ("", nil) when the session does not exist.
func (m *Manager) Refresh(token string) (string, error) {
	s, err := m.Get(token)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", nil
	}

	now := m.now()
	if !m.store.Extend(s.SessionID, now.Add(m.sessionTimeout), now) {
		// Lost a race with the sweeper or an invalidate.
		return "", nil
	}

	newToken, err := m.tokens.RefreshToken(token, m.sessionTimeout)
	if err != nil {
		return "", err
	}

	m.logger.Info("session refreshed", "session_id", RedactID(s.SessionID))
	return newToken, nil
}

// Invalidate removes the session named by the token, accepting expired
// tokens since the goal is cleanup. Reports whether a removal occurred.
func (m *Manager) Invalidate(token string) bool {
	claims, err := m.tokens.DecodeToken(token, false)
	if err != nil {
		return false
	}
	id, _ := claims["sub"].(string)
	if id == "" {
		return false
	}
	if m.store.Delete(id) {
		m.logger.Info("session invalidated", "session_id", RedactID(id))
		return true
	}
	return false
}

// CleanupExpired sweeps the full store once, removing every expired session.
func (m *Manager) CleanupExpired() int {
	removed := m.store.SweepExpired(m.now())
	if removed > 0 {
		m.logger.Info("cleaned up expired sessions", "count", removed)
	}
	return removed
}

// RunCleanup sweeps on the given interval until ctx is done. Start it once
// from the server wiring; per-request lookups already reap lazily.
func (m *Manager) RunCleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupExpired()
		}
	}
}

// ActiveCount returns the number of currently unexpired sessions.
func (m *Manager) ActiveCount() int {
	return m.store.ActiveCount(m.now())
}

// Info returns the redacted view of the session named by the token,
// accepting expired tokens. Only derived, non-sensitive fields appear.
func (m *Manager) Info(token string) (*Info, bool) {
	claims, err := m.tokens.DecodeToken(token, false)
	if err != nil {
		return nil, false
	}
	id, _ := claims["sub"].(string)
	s, ok := m.store.Get(id)
	if !ok {
		return nil, false
	}
	info := s.info(m.now())
	return &info, true
}

// ClearAll removes every session (emergency logout) and returns the count.
func (m *Manager) ClearAll() int {
	n := m.store.Clear()
	m.logger.Warn("all sessions cleared", "count", n)
	return n
}

// SessionTimeout exposes the configured session timeout for response bodies.
func (m *Manager) SessionTimeout() time.Duration {
	return m.sessionTimeout
}

// Destroy wipes the envelope key material on shutdown.
func (m *Manager) Destroy() {
	m.enc.Destroy()
}
