package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpgate/kpgate/security"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T, sessionTimeout, maxPasswordAge time.Duration) (*Manager, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	m, err := NewManager(testSecret, sessionTimeout, maxPasswordAge, WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(m.Destroy)
	return m, clock
}

func TestManager_CreateAndGet(t *testing.T) {
	m, _ := newTestManager(t, 30*time.Minute, time.Hour)

	res, err := m.Create("/vault/work.kdbx", "master-pw", "", Metadata{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	require.NotEmpty(t, res.SessionID)

	s, err := m.Get(res.Token)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, res.SessionID, s.SessionID)
	assert.Equal(t, "/vault/work.kdbx", s.DatabasePath)
	assert.True(t, s.HasPassword())
	assert.Equal(t, 1, m.ActiveCount())
}

func TestManager_RejectsShortSecret(t *testing.T) {
	_, err := NewManager("short", 30*time.Minute, time.Hour)
	assert.ErrorIs(t, err, security.ErrSecretTooShort)
}

func TestManager_DecryptedPassword(t *testing.T) {
	m, _ := newTestManager(t, 30*time.Minute, time.Hour)

	res, err := m.Create("/db.kdbx", "master-pw", "", Metadata{})
	require.NoError(t, err)

	password, err := m.DecryptedPassword(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "master-pw", password)
}

func TestManager_GarbageTokenRejected(t *testing.T) {
	m, _ := newTestManager(t, 30*time.Minute, time.Hour)

	_, err := m.Get("not-a-token")
	assert.ErrorIs(t, err, security.ErrInvalidToken)
}

// A token that was never issued by this deployment and a token whose session
// has been invalidated must be indistinguishable to the caller.
func TestManager_UnknownSessionsIndistinguishable(t *testing.T) {
	m, _ := newTestManager(t, 30*time.Minute, time.Hour)

	// Validly signed token for a session this store never held.
	foreign, err := NewManager(testSecret, 30*time.Minute, time.Hour)
	require.NoError(t, err)
	defer foreign.Destroy()
	foreignRes, err := foreign.Create("/other.kdbx", "pw", "", Metadata{})
	require.NoError(t, err)

	s, err := m.Get(foreignRes.Token)
	require.NoError(t, err)
	assert.Nil(t, s)

	// Token for a session that existed and was invalidated.
	res, err := m.Create("/db.kdbx", "pw", "", Metadata{})
	require.NoError(t, err)
	require.True(t, m.Invalidate(res.Token))

	s, err = m.Get(res.Token)
	require.NoError(t, err)
	assert.Nil(t, s)

	password, err := m.DecryptedPassword(res.Token)
	require.NoError(t, err)
	assert.Empty(t, password)
}

func TestManager_SessionExpires(t *testing.T) {
	m, clock := newTestManager(t, 30*time.Minute, time.Hour)

	res, err := m.Create("/db.kdbx", "pw", "", Metadata{})
	require.NoError(t, err)

	clock.Advance(31 * time.Minute)

	_, err = m.Get(res.Token)
	assert.ErrorIs(t, err, security.ErrSessionExpired)
	assert.Equal(t, 0, m.ActiveCount())
}

// The session clock and the password-age clock run independently: a live
// session can hold an envelope too old to open.
func TestManager_PasswordAgeIndependentOfSession(t *testing.T) {
	m, clock := newTestManager(t, 30*time.Minute, 10*time.Minute)

	res, err := m.Create("/db.kdbx", "pw", "", Metadata{})
	require.NoError(t, err)

	clock.Advance(15 * time.Minute)

	// Session is alive.
	s, err := m.Get(res.Token)
	require.NoError(t, err)
	require.NotNil(t, s)

	// Password retrieval is not.
	_, err = m.DecryptedPassword(res.Token)
	assert.ErrorIs(t, err, security.ErrSecurity)
}

func TestManager_RefreshExtendsSessionOnly(t *testing.T) {
	m, clock := newTestManager(t, 30*time.Minute, time.Hour)

	res, err := m.Create("/db.kdbx", "pw", "", Metadata{})
	require.NoError(t, err)

	clock.Advance(20 * time.Minute)
	token2, err := m.Refresh(res.Token)
	require.NoError(t, err)
	require.NotEmpty(t, token2)
	assert.NotEqual(t, res.Token, token2)

	// Past the original expiry, the refreshed session is still alive.
	clock.Advance(20 * time.Minute)
	s, err := m.Get(token2)
	require.NoError(t, err)
	require.NotNil(t, s)

	// Keep refreshing across the max password age.
	token3, err := m.Refresh(token2)
	require.NoError(t, err)
	clock.Advance(25 * time.Minute) // 65 minutes since login

	s, err = m.Get(token3)
	require.NoError(t, err)
	require.NotNil(t, s)

	// The envelope's freshness clock was never reset by the refreshes.
	_, err = m.DecryptedPassword(token3)
	assert.ErrorIs(t, err, security.ErrSecurity)
}

func TestManager_RefreshAlwaysReturnsNewToken(t *testing.T) {
	m, _ := newTestManager(t, 30*time.Minute, time.Hour)

	res, err := m.Create("/db.kdbx", "pw", "", Metadata{})
	require.NoError(t, err)

	seen := map[string]bool{res.Token: true}
	token := res.Token
	for i := 0; i < 5; i++ {
		next, err := m.Refresh(token)
		require.NoError(t, err)
		assert.False(t, seen[next], "refresh returned a previously issued token")
		seen[next] = true
		token = next
	}
}

func TestManager_RefreshUnknownSession(t *testing.T) {
	m, _ := newTestManager(t, 30*time.Minute, time.Hour)

	res, err := m.Create("/db.kdbx", "pw", "", Metadata{})
	require.NoError(t, err)
	require.True(t, m.Invalidate(res.Token))

	token, err := m.Refresh(res.Token)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestManager_InvalidateIsIdempotent(t *testing.T) {
	m, _ := newTestManager(t, 30*time.Minute, time.Hour)

	res, err := m.Create("/db.kdbx", "pw", "", Metadata{})
	require.NoError(t, err)

	assert.True(t, m.Invalidate(res.Token))
	assert.False(t, m.Invalidate(res.Token))
	assert.False(t, m.Invalidate("garbage"))
}

func TestManager_InvalidateAcceptsExpiredToken(t *testing.T) {
	m, clock := newTestManager(t, 30*time.Minute, time.Hour)

	res, err := m.Create("/db.kdbx", "pw", "", Metadata{})
	require.NoError(t, err)

	clock.Advance(31 * time.Minute)
	assert.True(t, m.Invalidate(res.Token))
}

func TestManager_CleanupExpired(t *testing.T) {
	m, clock := newTestManager(t, 30*time.Minute, time.Hour)

	for i := 0; i < 3; i++ {
		_, err := m.Create("/db.kdbx", "pw", "", Metadata{})
		require.NoError(t, err)
	}
	clock.Advance(10 * time.Minute)
	fresh, err := m.Create("/db.kdbx", "pw", "", Metadata{})
	require.NoError(t, err)

	clock.Advance(25 * time.Minute) // first three expired, fresh one alive

	assert.Equal(t, 3, m.CleanupExpired())
	assert.Equal(t, 1, m.ActiveCount())

	s, err := m.Get(fresh.Token)
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestManager_RunCleanupStopsOnContextCancel(t *testing.T) {
	m, _ := newTestManager(t, 30*time.Minute, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.RunCleanup(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}

func TestManager_ClearAll(t *testing.T) {
	m, _ := newTestManager(t, 30*time.Minute, time.Hour)

	for i := 0; i < 4; i++ {
		_, err := m.Create("/db.kdbx", "pw", "", Metadata{})
		require.NoError(t, err)
	}
	assert.Equal(t, 4, m.ClearAll())
	assert.Equal(t, 0, m.ActiveCount())
}

func TestManager_InfoIsRedacted(t *testing.T) {
	m, _ := newTestManager(t, 30*time.Minute, time.Hour)

	res, err := m.Create("/db.kdbx", "pw", "/key.keyx", Metadata{})
	require.NoError(t, err)

	info, ok := m.Info(res.Token)
	require.True(t, ok)
	assert.Equal(t, res.SessionID[:8]+"...", info.SessionID)
	assert.Equal(t, "/db.kdbx", info.DatabasePath)
	assert.True(t, info.HasKeyfile)
	assert.True(t, info.HasPassword)
	assert.False(t, info.Expired)
	assert.Equal(t, 30*60, info.RemainingSecs)
}

func TestRedactID(t *testing.T) {
	assert.Equal(t, "", RedactID(""))
	assert.Equal(t, "short", RedactID("short"))
	assert.Equal(t, "8chars..", RedactID("8chars.."))
	assert.Equal(t, "0f8fad5b...", RedactID("0f8fad5b-d9cb-469f-a165-70867728950e"))
}

func TestManager_ExpiredSessionDeniesEverything(t *testing.T) {
	m, clock := newTestManager(t, 30*time.Minute, time.Hour)

	res, err := m.Create("/db.kdbx", "pw", "", Metadata{})
	require.NoError(t, err)

	clock.Advance(31 * time.Minute)

	_, err = m.DecryptedPassword(res.Token)
	assert.ErrorIs(t, err, security.ErrSessionExpired)

	_, err = m.Refresh(res.Token)
	assert.ErrorIs(t, err, security.ErrSessionExpired)
}
