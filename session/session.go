// Package session owns the in-memory table of authenticated sessions and
// mediates every access to the encrypted master password stored in them.
package session

import "time"

// Session binds a client's authenticated access to one database file for a
// bounded time. The master password is held only as an authenticated
// ciphertext envelope; the plaintext never appears on this type.
type Session struct {
	SessionID         string
	DatabasePath      string
	encryptedPassword string
	Keyfile           string
	CreatedAt         time.Time
	LastActivity      time.Time
	ExpiresAt         time.Time
	IPAddress         string
	UserAgent         string
}

// Expired reports whether the session's own expiry clock has passed. This is
// the only authority on session activity.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Remaining returns the seconds until expiry, never negative.
func (s Session) Remaining(now time.Time) int {
	d := s.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return int(d.Seconds())
}

// HasPassword reports whether an encrypted envelope is present. Diagnostic
// surfaces get this boolean, never the envelope itself.
func (s Session) HasPassword() bool {
	return s.encryptedPassword != ""
}

// RedactID shortens a session id for logs, audit records, and diagnostics.
// Everything that prints a session id goes through this one rule.
func RedactID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}

// Info is the redacted, serialization-safe view of a session. It carries no
// credential material in any form.
type Info struct {
	SessionID     string `json:"session_id"`
	DatabasePath  string `json:"database_path"`
	HasKeyfile    bool   `json:"has_keyfile"`
	HasPassword   bool   `json:"has_password"`
	CreatedAt     string `json:"created_at"`
	ExpiresAt     string `json:"expires_at"`
	Expired       bool   `json:"expired"`
	RemainingSecs int    `json:"remaining_seconds"`
}

func (s Session) info(now time.Time) Info {
	return Info{
		SessionID:     RedactID(s.SessionID),
		DatabasePath:  s.DatabasePath,
		HasKeyfile:    s.Keyfile != "",
		HasPassword:   s.HasPassword(),
		CreatedAt:     s.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:     s.ExpiresAt.UTC().Format(time.RFC3339),
		Expired:       s.Expired(now),
		RemainingSecs: s.Remaining(now),
	}
}
