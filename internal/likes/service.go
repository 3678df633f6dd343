// Package likes tracks per-photo like toggles keyed by opaque caller ids.
// The persisted document is a map from filename to {count, users}; the count
// always tracks the size of the user set.
package likes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/turkalkol/turkalkol-backend/internal/storage"
	"go.uber.org/zap"
)

var (
	// ErrMissingUserID rejects toggle requests without a caller id.
	ErrMissingUserID = errors.New("likes: userId is required")

	errMissingStore = errors.New("likes: document store dependency required")
)

// Record is the stored like state for one filename.
type Record struct {
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// ToggleResult reports the state after one toggle.
type ToggleResult struct {
	Action   string
	Count    int
	HasLiked bool
}

// Toggle action names, part of the response contract.
const (
	ActionLiked   = "liked"
	ActionUnliked = "unliked"
)

// ServiceConfig wires the likes service dependencies.
type ServiceConfig struct {
	Store  storage.DocumentStore
	Logger *zap.Logger
}

// Service owns the likes document.
type Service struct {
	store  storage.DocumentStore
	logger *zap.Logger
}

// NewService validates dependencies and returns a likes service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: cfg.Store, logger: logger}, nil
}

// Toggle flips the caller's like on a filename. The filename is an opaque
// key; it is not checked against existing photos. Anyone may toggle on behalf
// of any userId they supply, matching the open endpoint this serves.
func (s *Service) Toggle(ctx context.Context, filename, userID string) (ToggleResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ToggleResult{}, ErrMissingUserID
	}

	likes := s.loadAll(ctx)
	record := likes[filename]

	idx := -1
	for i, existing := range record.Users {
		if existing == userID {
			idx = i
			break
		}
	}

	var action string
	if idx >= 0 {
		record.Users = append(record.Users[:idx], record.Users[idx+1:]...)
		// Floor guards legacy documents whose count drifted below the set size.
		record.Count--
		if record.Count < 0 {
			record.Count = 0
		}
		action = ActionUnliked
	} else {
		record.Users = append(record.Users, userID)
		record.Count++
		action = ActionLiked
	}

	likes[filename] = record
	if err := s.store.Save(ctx, likes); err != nil {
		s.logger.Error("likes save failed",
			zap.String("filename", filename),
			zap.String("user_id", userID),
			zap.Error(err))
		return ToggleResult{}, fmt.Errorf("likes: save toggle: %w", err)
	}

	return ToggleResult{Action: action, Count: record.Count, HasLiked: idx < 0}, nil
}

// Get returns the like state for a filename, zero-valued when absent or when
// the document is unreadable.
func (s *Service) Get(ctx context.Context, filename string) Record {
	record := s.loadAll(ctx)[filename]
	if record.Users == nil {
		record.Users = []string{}
	}
	return record
}

// Forget drops the record for a filename, typically when the photo is
// deleted. Absent records are a no-op.
func (s *Service) Forget(ctx context.Context, filename string) error {
	likes := s.loadAll(ctx)
	if _, ok := likes[filename]; !ok {
		return nil
	}

	delete(likes, filename)
	if err := s.store.Save(ctx, likes); err != nil {
		s.logger.Error("likes forget failed", zap.String("filename", filename), zap.Error(err))
		return fmt.Errorf("likes: forget %q: %w", filename, err)
	}
	return nil
}

func (s *Service) loadAll(ctx context.Context) map[string]Record {
	likes := map[string]Record{}
	if err := s.store.Load(ctx, &likes); err != nil {
		s.logger.Error("likes load failed", zap.Error(err))
	}
	return likes
}
