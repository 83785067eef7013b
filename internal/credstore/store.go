package credstore

import (
	"os"
	"path/filepath"
	"strings"
)

// Store persists the single bearer token across runs. The token is treated
// as an opaque string; a store that cannot be read behaves as always-absent
// and is never fatal.
type Store struct {
	path string
}

// New returns a store rooted at the user's home directory.
func New() *Store {
	home, err := os.UserHomeDir()
	if err != nil {
		return &Store{}
	}
	return &Store{path: filepath.Join(home, ".requiem", "token")}
}

// NewAt returns a store backed by an explicit file path.
func NewAt(path string) *Store {
	return &Store{path: path}
}

// Get retrieves the stored token, reporting whether one is present.
func (s *Store) Get() (string, bool) {
	if s.path == "" {
		return "", false
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", false
	}
	return token, true
}

// Set persists the token. Write failures are reported but callers treat
// them as non-fatal: the session still works for the current run.
func (s *Store) Set(token string) error {
	if s.path == "" {
		return os.ErrNotExist
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(token), 0600)
}

// Clear removes the stored token.
func (s *Store) Clear() {
	if s.path == "" {
		return
	}
	os.Remove(s.path)
}
