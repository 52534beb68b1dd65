package tokenstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.yaml")
	store := New(path)

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNotFound)

	expiry := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, store.Save(&Credential{Username: "alice", AccessToken: "tok", TokenType: "bearer", Expiry: expiry}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cred, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "alice", cred.Username)
	assert.Equal(t, "tok", cred.AccessToken)
	assert.True(t, expiry.Equal(cred.Expiry))
	assert.False(t, cred.SavedAt.IsZero())

	require.NoError(t, store.Clear())
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNotFound)

	// Clearing twice is fine
	assert.NoError(t, store.Clear())
}

func TestStore_SaveRequiresToken(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "token.yaml"))
	assert.Error(t, store.Save(&Credential{Username: "alice"}))
	assert.Error(t, store.Save(nil))
}

func TestStore_LoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.yaml")
	require.NoError(t, os.WriteFile(path, []byte("access_token: [unclosed"), 0o600))

	_, err := New(path).Load()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestCredential_Expired(t *testing.T) {
	now := time.Now()
	assert.False(t, (&Credential{}).Expired(now))
	assert.True(t, (&Credential{Expiry: now.Add(-time.Minute)}).Expired(now))
	assert.False(t, (&Credential{Expiry: now.Add(time.Minute)}).Expired(now))
}
