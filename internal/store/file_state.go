package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStateStore keeps the persisted sync state in a file. An empty path
// keeps it in memory only.
type FileStateStore struct {
	path string

	mu    sync.RWMutex
	value string
}

func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

// Load returns the saved state, or "" when the file does not exist yet.
func (s *FileStateStore) Load(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.path == "" {
		return s.value, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read state file: %w", err)
	}
	return string(data), nil
}

// Save replaces the saved state. The file is written next to the target and
// renamed over it, so a crash never leaves a half-written state.
func (s *FileStateStore) Save(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		s.value = state
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(state), 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
