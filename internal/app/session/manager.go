// Package session provides the auth session manager.
package session

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunemap/internal/app/session/state"
	"github.com/osa030/tunemap/internal/infra/backend"
	"github.com/osa030/tunemap/internal/infra/tokenstore"
)

var (
	// ErrLoggedOut is returned when a call needs a credential and none is held,
	// including after a forced logout.
	ErrLoggedOut = errors.New("not logged in")
)

// Manager owns the stored credential and hands out authorized clients.
type Manager struct {
	client   *backend.Client
	store    *tokenstore.Store
	stateMgr *state.Manager
	now      func() time.Time
}

// NewManager creates a new session manager. client is the anonymous backend client.
func NewManager(client *backend.Client, store *tokenstore.Store) *Manager {
	return &Manager{
		client:   client,
		store:    store,
		stateMgr: state.New(),
		now:      time.Now,
	}
}

// Restore loads a previously stored credential.
// Returns ErrLoggedOut when none is stored or it has expired.
func (m *Manager) Restore() error {
	cred, err := m.store.Load()
	if err != nil {
		if errors.Is(err, tokenstore.ErrNotFound) {
			return ErrLoggedOut
		}
		return err
	}

	if cred.Expired(m.now()) {
		zlog.Info().Msgf("stored credential for %s has expired", cred.Username)
		if err := m.store.Clear(); err != nil {
			zlog.Warn().Err(err).Msg("failed to clear expired credential")
		}
		return ErrLoggedOut
	}

	m.stateMgr.SetLoggedIn(cred.Username, cred.AccessToken, cred.SavedAt)
	return nil
}

// Login authenticates against the backend and stores the token.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	token, err := m.client.Login(ctx, username, password)
	if err != nil {
		return errors.Wrap(err, "login failed")
	}

	now := m.now()
	if err := m.store.Save(&tokenstore.Credential{
		Username:    username,
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		Expiry:      token.Expiry,
		SavedAt:     now,
	}); err != nil {
		return err
	}

	m.stateMgr.SetLoggedIn(username, token.AccessToken, now)
	zlog.Info().Msgf("logged in as %s", username)
	return nil
}

// Register creates an account and logs into it.
func (m *Manager) Register(ctx context.Context, username, password string) error {
	if _, err := m.client.Register(ctx, username, password); err != nil {
		return errors.Wrap(err, "registration failed")
	}
	return m.Login(ctx, username, password)
}

// Logout removes the stored credential.
func (m *Manager) Logout() error {
	m.stateMgr.SetLoggedOut()
	return m.store.Clear()
}

// Client returns a backend client carrying the session token.
func (m *Manager) Client() (*backend.Client, error) {
	token := m.stateMgr.GetToken()
	if token == "" {
		return nil, ErrLoggedOut
	}
	return m.client.WithToken(token), nil
}

// Guard performs a forced logout when err reports a rejected token.
// The returned error matches both ErrLoggedOut and backend.ErrUnauthorized.
// Other errors are returned unchanged.
func (m *Manager) Guard(err error) error {
	if err == nil || !errors.Is(err, backend.ErrUnauthorized) {
		return err
	}

	username := m.stateMgr.GetUsername()
	if m.stateMgr.Expire() {
		zlog.Warn().Msgf("session for %s rejected by backend, logging out", username)
	}
	if clearErr := m.store.Clear(); clearErr != nil {
		zlog.Error().Err(clearErr).Msg("failed to clear credential after forced logout")
	}
	return errors.Mark(errors.Wrap(err, "session expired"), ErrLoggedOut)
}

// Info returns the current session state.
func (m *Manager) Info() state.Info {
	return m.stateMgr.BuildInfo()
}
