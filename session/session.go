// Package session enforces at most one live authenticated session per
// account. A second sign-in while a fresh session exists is refused; a
// session whose last-seen timestamp exceeds the liveness TTL is stale and
// reclaimed silently by the next sign-in.
package session

import (
	"errors"
	"time"

	"github.com/pocket-arcade/houserules-casino-server/state"

	"github.com/google/uuid"
)

// DefaultTTL is the session liveness window.
const DefaultTTL = 6 * time.Hour

var (
	ErrSessionConflict = errors.New("session: account already signed in")
	ErrInvalidSession  = errors.New("session: token invalid or no session")
	ErrUnknownAccount  = errors.New("session: account not found")
)

type Manager struct {
	store *state.Store
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(store *state.Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{store: store, ttl: ttl, now: time.Now}
}

func (m *Manager) stale(sess state.Session, nowEpoch float64) bool {
	return nowEpoch-sess.LastSeenEpoch > m.ttl.Seconds()
}

func (m *Manager) pruneExpired(data *state.AppState, nowEpoch float64) {
	for name, sess := range data.ActiveSessions {
		if m.stale(sess, nowEpoch) {
			delete(data.ActiveSessions, name)
		}
	}
}

// Acquire signs the account in and returns a fresh session token. Fails
// with ErrSessionConflict while another fresh session holds the account;
// stale sessions are reclaimed without ceremony.
func (m *Manager) Acquire(name string) (string, error) {
	token := uuid.NewString()
	nowEpoch := float64(m.now().UnixNano()) / float64(time.Second)
	err := m.store.Update(func(data *state.AppState) error {
		if _, ok := data.Accounts[name]; !ok {
			return ErrUnknownAccount
		}
		m.pruneExpired(data, nowEpoch)
		if existing, ok := data.ActiveSessions[name]; ok && existing.SessionID != token {
			return ErrSessionConflict
		}
		data.ActiveSessions[name] = state.Session{SessionID: token, LastSeenEpoch: nowEpoch}
		return nil
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// ForceAcquire replaces any live session with a fresh one. Used when the
// caller proved ownership of the existing session or an admin takes over.
func (m *Manager) ForceAcquire(name string) (string, error) {
	token := uuid.NewString()
	nowEpoch := float64(m.now().UnixNano()) / float64(time.Second)
	err := m.store.Update(func(data *state.AppState) error {
		if _, ok := data.Accounts[name]; !ok {
			return ErrUnknownAccount
		}
		data.ActiveSessions[name] = state.Session{SessionID: token, LastSeenEpoch: nowEpoch}
		return nil
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// Heartbeat refreshes the session's last-seen timestamp.
func (m *Manager) Heartbeat(name, token string) error {
	nowEpoch := float64(m.now().UnixNano()) / float64(time.Second)
	return m.store.Update(func(data *state.AppState) error {
		sess, ok := data.ActiveSessions[name]
		if !ok || sess.SessionID != token || m.stale(sess, nowEpoch) {
			return ErrInvalidSession
		}
		sess.LastSeenEpoch = nowEpoch
		data.ActiveSessions[name] = sess
		return nil
	})
}

// Validate checks that the token holds a fresh session for the account.
func (m *Manager) Validate(name, token string) error {
	nowEpoch := float64(m.now().UnixNano()) / float64(time.Second)
	data, err := m.store.Load()
	if err != nil {
		return err
	}
	sess, ok := data.ActiveSessions[name]
	if !ok || sess.SessionID != token || m.stale(sess, nowEpoch) {
		return ErrInvalidSession
	}
	return nil
}

// Release signs the account out. Releasing with a mismatched token fails;
// releasing when no session exists is a no-op.
func (m *Manager) Release(name, token string) error {
	return m.store.Update(func(data *state.AppState) error {
		sess, ok := data.ActiveSessions[name]
		if !ok {
			return nil
		}
		if sess.SessionID != token {
			return ErrInvalidSession
		}
		delete(data.ActiveSessions, name)
		return nil
	})
}
