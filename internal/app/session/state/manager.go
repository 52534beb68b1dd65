package state

import (
	"sync"
	"time"
)

// Info is a point-in-time view of the session.
type Info struct {
	Phase      Phase
	Username   string
	LoggedInAt *time.Time
}

// Manager manages auth session state with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	phase      Phase
	username   string
	token      string
	loggedInAt *time.Time
}

// New creates a new state manager in the logged out phase.
func New() *Manager {
	return &Manager{phase: PhaseLoggedOut}
}

// GetPhase returns the current phase.
func (m *Manager) GetPhase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// IsLoggedIn returns true if a credential is held.
func (m *Manager) IsLoggedIn() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase == PhaseLoggedIn
}

// GetToken returns the access token, empty when logged out.
func (m *Manager) GetToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// GetUsername returns the logged in username.
func (m *Manager) GetUsername() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.username
}

// SetLoggedIn records a credential and moves to PhaseLoggedIn.
func (m *Manager) SetLoggedIn(username, token string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phase = PhaseLoggedIn
	m.username = username
	m.token = token
	m.loggedInAt = &at
}

// SetLoggedOut drops the credential.
func (m *Manager) SetLoggedOut() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset(PhaseLoggedOut)
}

// Expire drops the credential and records that the backend rejected it.
// Returns false if there was no credential to expire.
func (m *Manager) Expire() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseLoggedIn {
		return false
	}
	m.reset(PhaseExpired)
	return true
}

// BuildInfo returns a snapshot of the session.
func (m *Manager) BuildInfo() Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info := Info{Phase: m.phase, Username: m.username}
	if m.loggedInAt != nil {
		at := *m.loggedInAt
		info.LoggedInAt = &at
	}
	return info
}

// reset clears credential fields. Must be called with m.mu held.
func (m *Manager) reset(p Phase) {
	m.phase = p
	m.username = ""
	m.token = ""
	m.loggedInAt = nil
}
