package session

import (
	"sync"
	"time"
)

// Store is the mutex-guarded in-memory session table. It is the only shared
// mutable state in the core; every read/modify/delete is atomic at the
// granularity of one logical operation so a refresh racing an invalidate or
// an expiry sweep cannot corrupt the table or resurrect a deleted entry.
// Sessions are lost on process restart.
type Store struct {
	mu   sync.RWMutex
	data map[string]Session
}

// NewStore creates an empty session table.
func NewStore() *Store {
	return &Store{data: make(map[string]Session)}
}

// Get returns a copy of the session, if present. Expiry is the caller's
// concern; use DeleteIfExpired for lazy reaping.
func (st *Store) Get(id string) (Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.data[id]
	return s, ok
}

// Put inserts or replaces a session.
func (st *Store) Put(s Session) {
	st.mu.Lock()
	st.data[s.SessionID] = s
	st.mu.Unlock()
}

// Delete removes a session, reporting whether it was present.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.data[id]
	if ok {
		delete(st.data, id)
	}
	return ok
}

// DeleteIfExpired removes the session only if it is still present and
// expired at now. The re-check under the lock keeps two concurrent lazy
// deletions, or a lazy deletion racing a refresh, from removing a live entry.
func (st *Store) DeleteIfExpired(id string, now time.Time) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.data[id]
	if !ok || !s.Expired(now) {
		return false
	}
	delete(st.data, id)
	return true
}

// Touch updates LastActivity if the session is present.
func (st *Store) Touch(id string, now time.Time) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.data[id]
	if !ok {
		return false
	}
	s.LastActivity = now
	st.data[id] = s
	return true
}

// Extend moves ExpiresAt forward and touches LastActivity. It refuses to
// extend a session that is absent or already expired at now, so a refresh
// cannot resurrect an entry the sweeper is about to remove.
func (st *Store) Extend(id string, expiresAt, now time.Time) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.data[id]
	if !ok || s.Expired(now) {
		return false
	}
	s.ExpiresAt = expiresAt
	s.LastActivity = now
	st.data[id] = s
	return true
}

// SweepExpired removes every expired session in one pass and returns the
// count. Intended for a periodic trigger, not per-request use.
func (st *Store) SweepExpired(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.data {
		if s.Expired(now) {
			delete(st.data, id)
			removed++
		}
	}
	return removed
}

// ActiveCount returns the number of sessions not yet expired at now.
func (st *Store) ActiveCount(now time.Time) int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	n := 0
	for _, s := range st.data {
		if !s.Expired(now) {
			n++
		}
	}
	return n
}

// Clear removes every session and returns how many were removed.
func (st *Store) Clear() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := len(st.data)
	st.data = make(map[string]Session)
	return n
}
