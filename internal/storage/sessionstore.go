package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/visionqc/visionqc/pkg/models"
	"gopkg.in/yaml.v3"
)

// SessionFileName is the single persisted key holding the logged-in user.
const SessionFileName = "session.yaml"

// ErrMalformedSession is returned by Load when the session file exists but
// cannot be decoded into a user record.
var ErrMalformedSession = errors.New("malformed session file")

// SessionStore persists the logged-in user record.
type SessionStore interface {
	// Load returns the stored user, or nil when nothing is stored.
	Load() (*models.User, error)
	Save(user models.User) error
	Clear() error
	Path() string
}

type fileSessionStore struct {
	basePath string
}

// NewSessionStore creates a SessionStore backed by session.yaml in the given
// base directory.
func NewSessionStore(basePath string) SessionStore {
	return &fileSessionStore{basePath: basePath}
}

func (s *fileSessionStore) Path() string {
	return filepath.Join(s.basePath, SessionFileName)
}

// Load reads the session file. A missing file is not an error.
func (s *fileSessionStore) Load() (*models.User, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}

	var user models.User
	if err := yaml.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("loading session: %w: %v", ErrMalformedSession, err)
	}
	if user.IsZero() {
		return nil, fmt.Errorf("loading session: %w: empty record", ErrMalformedSession)
	}
	return &user, nil
}

// Save writes the user record, replacing any previous one.
func (s *fileSessionStore) Save(user models.User) error {
	if err := os.MkdirAll(s.basePath, 0o755); err != nil {
		return fmt.Errorf("saving session: creating directory: %w", err)
	}
	data, err := yaml.Marshal(user)
	if err != nil {
		return fmt.Errorf("saving session: marshaling: %w", err)
	}

	tmp := s.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("saving session: writing: %w", err)
	}
	if err := os.Rename(tmp, s.Path()); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("saving session: replacing: %w", err)
	}
	return nil
}

// Clear removes the session file. Clearing an absent file is not an error.
func (s *fileSessionStore) Clear() error {
	if err := os.Remove(s.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}
