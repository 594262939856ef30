package api

import (
	"github.com/kpgate/kpgate/keepass"
	"github.com/kpgate/kpgate/session"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LoginRequest opens a database and creates a session.
type LoginRequest struct {
	DatabasePath string `json:"database_path"`
	Password     string `json:"password"`
	Keyfile      string `json:"keyfile,omitempty"`
}

// LoginResponse returns the session token. The password is never echoed.
type LoginResponse struct {
	Token        string `json:"token"`
	SessionID    string `json:"session_id"`
	ExpiresIn    int    `json:"expires_in"`
	DatabasePath string `json:"database_path"`
}

// LogoutResponse acknowledges session invalidation.
type LogoutResponse struct {
	Invalidated bool `json:"invalidated"`
}

// RefreshResponse carries the replacement token.
type RefreshResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// SessionInfoResponse exposes only redacted session fields.
type SessionInfoResponse struct {
	Session session.Info `json:"session"`
}

// EntryListResponse lists entry paths.
type EntryListResponse struct {
	Entries []string `json:"entries"`
	Count   int      `json:"count"`
}

// EntryResponse carries one entry. Password is present only on the
// dedicated password endpoint.
type EntryResponse struct {
	Entry keepass.Entry `json:"entry"`
}

// EntryPasswordResponse is the decrypt-per-request payload.
type EntryPasswordResponse struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// CreateEntryRequest adds a new entry.
type CreateEntryRequest struct {
	Path     string `json:"path"`
	Username string `json:"username"`
	Password string `json:"password"`
	URL      string `json:"url,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// UpdateEntryRequest changes entry fields; omitted fields stay unchanged.
type UpdateEntryRequest struct {
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
	URL      *string `json:"url,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

// AckResponse acknowledges a mutation.
type AckResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// GroupListResponse lists database groups.
type GroupListResponse struct {
	Groups []keepass.Group `json:"groups"`
	Count  int             `json:"count"`
}

// DatabaseInfoResponse carries the non-sensitive database summary.
type DatabaseInfoResponse struct {
	Database keepass.DatabaseInfo `json:"database"`
}

// GeneratePasswordRequest tunes password generation.
type GeneratePasswordRequest struct {
	Length       int  `json:"length,omitempty"`
	Lowercase    bool `json:"lowercase"`
	Uppercase    bool `json:"uppercase"`
	Numbers      bool `json:"numbers"`
	Special      bool `json:"special"`
	ExcludeAlike bool `json:"exclude_alike"`
}

// GeneratePasswordResponse returns a freshly generated password. It is not
// stored anywhere server-side.
type GeneratePasswordResponse struct {
	Password string `json:"password"`
}

// HealthResponse is the liveness body.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// ReadinessResponse reports dependency health.
type ReadinessResponse struct {
	Status         string `json:"status"`
	CLIAvailable   bool   `json:"keepassxc_cli_available"`
	CLIVersion     string `json:"keepassxc_cli_version,omitempty"`
	CacheReachable bool   `json:"cache_reachable"`
	ActiveSessions int    `json:"active_sessions"`
}
