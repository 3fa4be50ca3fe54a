package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
)

// TokenStore persists the bearer token between runs.
type TokenStore interface {
	Token() string
	Save(token string) error
	Clear() error
}

// FileTokenStore keeps the token in a 0600 file. Writes replace the file
// atomically.
type FileTokenStore struct {
	path string

	mu     sync.Mutex
	token  string
	loaded bool
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (s *FileTokenStore) Path() string { return s.path }

// Token returns the stored token, or "" when there is none or the file
// cannot be read.
func (s *FileTokenStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		raw, err := os.ReadFile(s.path)
		if err == nil {
			s.token = strings.TrimSpace(string(raw))
		}
		s.loaded = true
	}
	return s.token
}

func (s *FileTokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	if err := atomic.WriteFile(s.path, strings.NewReader(token)); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	// atomic.WriteFile does not set permissions on new files.
	if err := os.Chmod(s.path, 0o600); err != nil {
		return fmt.Errorf("set token file permissions: %w", err)
	}

	s.token = token
	s.loaded = true
	return nil
}

func (s *FileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.loaded = true
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func (s *MemoryTokenStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *MemoryTokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryTokenStore) Clear() error {
	return s.Save("")
}
