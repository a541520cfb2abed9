package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore is a filesystem-backed content store. Payloads are written under
// their digest, via a temp file and rename so a crash never leaves a partial
// blob behind a valid key.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStore creates a content store rooted at baseDir.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure content dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) Put(ctx context.Context, data []byte) (Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := refFor(data)
	path := filepath.Join(s.baseDir, ref.Checksum+".blob")

	if _, err := os.Stat(path); err == nil {
		return ref, nil
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return Ref{}, fmt.Errorf("failed to write blob: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return Ref{}, fmt.Errorf("failed to commit blob: %w", err)
	}
	return ref, nil
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	digest, err := parseKey(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.baseDir, digest+".blob"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("content not found: %s", key)
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

func (s *FileStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	digest, err := parseKey(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(filepath.Join(s.baseDir, digest+".blob"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat blob: %w", err)
	}
	return true, nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	digest, err := parseKey(key)
	if err != nil {
		return err
	}

	err = os.Remove(filepath.Join(s.baseDir, digest+".blob"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}
