package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// FileStore persists a single JSON document at a fixed path. A per-store
// mutex serializes writers so concurrent mutations cannot interleave a
// read-modify-write; the on-disk format stays a plain indented JSON file.
type FileStore struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFileStore returns a store bound to the given path. The file does not
// need to exist yet.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if path == "" {
		return nil, ErrMissingPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, logger: logger}, nil
}

// Load reads the document into the provided value. Missing and corrupt files
// are recovered locally: the value is left untouched and no error is
// returned.
func (s *FileStore) Load(_ context.Context, document any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("document unreadable, treating as empty",
				zap.String("path", s.path), zap.Error(err))
		}
		return nil
	}

	if err := json.Unmarshal(data, document); err != nil {
		s.logger.Warn("document corrupt, treating as empty",
			zap.String("path", s.path), zap.Error(err))
		return nil
	}
	return nil
}

// Save replaces the stored document wholesale.
func (s *FileStore) Save(_ context.Context, document any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal document: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("storage: create document directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("storage: write document: %w", err)
	}
	return nil
}
