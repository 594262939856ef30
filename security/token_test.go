package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokens(t *testing.T) (*TokenManager, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	m, err := NewTokenManager(testSecret, 30*time.Minute, WithTokenClock(clock.Now))
	require.NoError(t, err)
	return m, clock
}

func TestTokenManager_CreateAndDecode(t *testing.T) {
	m, _ := newTestTokens(t)

	token, err := m.CreateToken("session-1", map[string]any{
		"database_path": "/vault/work.kdbx",
	}, 0)
	require.NoError(t, err)

	claims, err := m.DecodeToken(token, true)
	require.NoError(t, err)
	assert.Equal(t, "session-1", claims["sub"])
	assert.Equal(t, "/vault/work.kdbx", claims["database_path"])
	assert.Equal(t, "Bearer", claims["typ"])
	assert.NotEmpty(t, claims["jti"])
}

func TestTokenManager_RejectsShortSecret(t *testing.T) {
	_, err := NewTokenManager("short", time.Minute)
	assert.ErrorIs(t, err, ErrSecretTooShort)
}

func TestTokenManager_RejectsEmptySubject(t *testing.T) {
	m, _ := newTestTokens(t)

	_, err := m.CreateToken("", nil, 0)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_DropsSensitiveClaims(t *testing.T) {
	m, _ := newTestTokens(t)

	token, err := m.CreateToken("session-1", map[string]any{
		"database_path": "/vault/work.kdbx",
		"password":      "hunter2",
		"api_secret":    "shh",
		"MasterPwd":     "nope",
		"has_keyfile":   true, // dropped too: "key" is on the denylist
	}, 0)
	require.NoError(t, err)

	claims, err := m.DecodeToken(token, true)
	require.NoError(t, err)
	assert.Equal(t, "/vault/work.kdbx", claims["database_path"])
	for _, key := range []string{"password", "api_secret", "MasterPwd", "has_keyfile"} {
		assert.NotContains(t, claims, key)
	}
}

func TestTokenManager_CustomClaimsCannotShadowRegistered(t *testing.T) {
	m, _ := newTestTokens(t)

	token, err := m.CreateToken("session-1", map[string]any{
		"sub": "someone-else",
		"exp": 1,
	}, 0)
	require.NoError(t, err)

	claims, err := m.DecodeToken(token, true)
	require.NoError(t, err)
	assert.Equal(t, "session-1", claims["sub"])
}

func TestTokenManager_TokensAreNeverIdentical(t *testing.T) {
	m, _ := newTestTokens(t)

	a, err := m.CreateToken("session-1", nil, 0)
	require.NoError(t, err)
	b, err := m.CreateToken("session-1", nil, 0)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestTokenManager_ExpiredToken(t *testing.T) {
	m, clock := newTestTokens(t)

	token, err := m.CreateToken("session-1", map[string]any{"database_path": "/db.kdbx"}, time.Hour)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)

	_, err = m.DecodeToken(token, true)
	assert.ErrorIs(t, err, ErrSessionExpired)

	// The unverified path still yields the claims; refresh and invalidate
	// flows depend on it.
	claims, err := m.DecodeToken(token, false)
	require.NoError(t, err)
	assert.Equal(t, "session-1", claims["sub"])
}

func TestTokenManager_RejectsTamperedToken(t *testing.T) {
	m, _ := newTestTokens(t)

	token, err := m.CreateToken("session-1", nil, 0)
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = m.DecodeToken(tampered, true)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Tampered signatures fail even with expiry checking off.
	_, err = m.DecodeToken(tampered, false)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsForeignSecret(t *testing.T) {
	m, _ := newTestTokens(t)
	other, err := NewTokenManager("ffffffffffffffffffffffffffffffff", 30*time.Minute)
	require.NoError(t, err)

	token, err := other.CreateToken("session-1", nil, 0)
	require.NoError(t, err)

	_, err = m.DecodeToken(token, true)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_Refresh(t *testing.T) {
	m, clock := newTestTokens(t)

	token, err := m.CreateToken("session-1", map[string]any{"database_path": "/db.kdbx"}, time.Hour)
	require.NoError(t, err)

	// Refresh past expiry: the expired token is still refreshable.
	clock.Advance(2 * time.Hour)
	refreshed, err := m.RefreshToken(token, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, token, refreshed)

	claims, err := m.DecodeToken(refreshed, true)
	require.NoError(t, err)
	assert.Equal(t, "session-1", claims["sub"])
	assert.Equal(t, "/db.kdbx", claims["database_path"])
}

func TestTokenManager_RefreshRejectsGarbage(t *testing.T) {
	m, _ := newTestTokens(t)

	_, err := m.RefreshToken("not-a-token", time.Hour)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_Subject(t *testing.T) {
	m, _ := newTestTokens(t)

	token, err := m.CreateToken("session-1", nil, 0)
	require.NoError(t, err)

	subject, err := m.Subject(token, true)
	require.NoError(t, err)
	assert.Equal(t, "session-1", subject)
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"BEARER abc123", "abc123"},
		{"  Bearer   abc123  ", "abc123"},
		{"Basic abc123", ""},
		{"Bearer", ""},
		{"Bearer a b", ""},
		{"abc123", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractBearerToken(tt.header), "header %q", tt.header)
	}
}
