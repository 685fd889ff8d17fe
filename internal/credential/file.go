package credential

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// session is the on-disk layout of a FileStore.
type session struct {
	AccessToken  string `toml:"access_token"`
	RefreshToken string `toml:"refresh_token,omitempty"`
}

// FileStore persists the session token in a TOML file:
//
//	access_token = "..."
//
// Token reads the file on every call and never caches.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path. The file need not exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Token implements Source. Unreadable or malformed files count as no token.
func (s *FileStore) Token() (string, bool) {
	sess, err := s.load()
	if err != nil || sess.AccessToken == "" {
		return "", false
	}
	return sess.AccessToken, true
}

// load returns the stored session. A missing file yields an empty session.
func (s *FileStore) load() (session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sess session
	if _, err := toml.DecodeFile(s.path, &sess); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return session{}, nil
		}
		return session{}, fmt.Errorf("failed to read session file %s: %w", s.path, err)
	}
	return sess, nil
}

// Set replaces the stored access token, keeping any refresh token.
func (s *FileStore) Set(token string) error {
	sess, err := s.load()
	if err != nil {
		sess = session{}
	}
	sess.AccessToken = token

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*.toml")
	if err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(sess); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode session file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Clear removes the session file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
