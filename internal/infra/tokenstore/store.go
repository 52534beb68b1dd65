// Package tokenstore persists the backend access token in a local YAML file.
package tokenstore

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no credential has been stored.
var ErrNotFound = errors.New("no stored credential")

// Credential is the persisted login.
type Credential struct {
	Username    string    `yaml:"username"`
	AccessToken string    `yaml:"access_token"`
	TokenType   string    `yaml:"token_type,omitempty"`
	Expiry      time.Time `yaml:"expiry,omitempty"`
	SavedAt     time.Time `yaml:"saved_at"`
}

// Expired reports whether the credential carries an expiry in the past.
func (c *Credential) Expired(now time.Time) bool {
	return !c.Expiry.IsZero() && !now.Before(c.Expiry)
}

// Store reads and writes a single credential file.
type Store struct {
	path string
}

// New creates a store backed by path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the credential file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the stored credential.
func (s *Store) Load() (*Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to read credential file")
	}

	var cred Credential
	if err := yaml.Unmarshal(data, &cred); err != nil {
		return nil, errors.Wrap(err, "failed to parse credential file")
	}
	if cred.AccessToken == "" {
		return nil, ErrNotFound
	}
	return &cred, nil
}

// Save writes the credential with owner-only permissions.
func (s *Store) Save(cred *Credential) error {
	if cred == nil || cred.AccessToken == "" {
		return errors.New("access token is required")
	}
	if cred.SavedAt.IsZero() {
		cred.SavedAt = time.Now()
	}

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return errors.Wrap(err, "failed to create credential directory")
		}
	}

	data, err := yaml.Marshal(cred)
	if err != nil {
		return errors.Wrap(err, "failed to encode credential")
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return errors.Wrap(err, "failed to write credential file")
	}
	return nil
}

// Clear removes the stored credential. Missing files are not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "failed to remove credential file")
	}
	return nil
}
