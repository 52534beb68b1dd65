package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tunemap/internal/app/session/state"
	"github.com/osa030/tunemap/internal/infra/backend"
	"github.com/osa030/tunemap/internal/infra/tokenstore"
)

func newTestManager(t *testing.T, handler http.HandlerFunc) (*Manager, *tokenstore.Store) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := backend.New(backend.Config{BaseURL: server.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)

	store := tokenstore.New(filepath.Join(t.TempDir(), "token.yaml"))
	return NewManager(client, store), store
}

func tokenHandler(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/token":
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok-1","token_type":"bearer"}`)
	case "/users/me/":
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"detail":"Could not validate credentials"}`)
			return
		}
		fmt.Fprint(w, `{"id": 1, "username": "alice"}`)
	case "/users/":
		fmt.Fprint(w, `{"id": 1, "username": "alice"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestManager_LoginAndClient(t *testing.T) {
	mgr, store := newTestManager(t, tokenHandler)

	_, err := mgr.Client()
	assert.ErrorIs(t, err, ErrLoggedOut)

	require.NoError(t, mgr.Login(context.Background(), "alice", "pw"))
	assert.Equal(t, state.PhaseLoggedIn, mgr.Info().Phase)
	assert.Equal(t, "alice", mgr.Info().Username)

	cred, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", cred.AccessToken)

	client, err := mgr.Client()
	require.NoError(t, err)
	u, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
}

func TestManager_Register(t *testing.T) {
	mgr, _ := newTestManager(t, tokenHandler)

	require.NoError(t, mgr.Register(context.Background(), "alice", "pw"))
	assert.Equal(t, state.PhaseLoggedIn, mgr.Info().Phase)
}

func TestManager_Restore(t *testing.T) {
	mgr, store := newTestManager(t, tokenHandler)

	assert.ErrorIs(t, mgr.Restore(), ErrLoggedOut)

	require.NoError(t, store.Save(&tokenstore.Credential{Username: "alice", AccessToken: "tok-1"}))
	require.NoError(t, mgr.Restore())
	assert.True(t, mgr.stateMgr.IsLoggedIn())
	assert.Equal(t, "tok-1", mgr.stateMgr.GetToken())
}

func TestManager_RestoreExpired(t *testing.T) {
	mgr, store := newTestManager(t, tokenHandler)

	require.NoError(t, store.Save(&tokenstore.Credential{
		Username:    "alice",
		AccessToken: "tok-1",
		Expiry:      time.Now().Add(-time.Hour),
	}))
	assert.ErrorIs(t, mgr.Restore(), ErrLoggedOut)

	_, err := store.Load()
	assert.ErrorIs(t, err, tokenstore.ErrNotFound)
}

func TestManager_Logout(t *testing.T) {
	mgr, store := newTestManager(t, tokenHandler)
	require.NoError(t, mgr.Login(context.Background(), "alice", "pw"))

	require.NoError(t, mgr.Logout())
	assert.Equal(t, state.PhaseLoggedOut, mgr.Info().Phase)
	_, err := store.Load()
	assert.ErrorIs(t, err, tokenstore.ErrNotFound)
}

func TestManager_GuardForcesLogout(t *testing.T) {
	mgr, store := newTestManager(t, tokenHandler)
	require.NoError(t, store.Save(&tokenstore.Credential{Username: "alice", AccessToken: "stale"}))
	require.NoError(t, mgr.Restore())

	client, err := mgr.Client()
	require.NoError(t, err)
	_, err = client.CurrentUser(context.Background())
	require.Error(t, err)

	guarded := mgr.Guard(err)
	assert.True(t, errors.Is(guarded, ErrLoggedOut))
	assert.True(t, errors.Is(guarded, backend.ErrUnauthorized))
	assert.Equal(t, state.PhaseExpired, mgr.Info().Phase)

	_, err = store.Load()
	assert.ErrorIs(t, err, tokenstore.ErrNotFound)
	_, err = mgr.Client()
	assert.ErrorIs(t, err, ErrLoggedOut)
}

func TestManager_GuardPassesOtherErrors(t *testing.T) {
	mgr, _ := newTestManager(t, tokenHandler)

	assert.NoError(t, mgr.Guard(nil))

	other := errors.New("network down")
	assert.Equal(t, other, mgr.Guard(other))
}
