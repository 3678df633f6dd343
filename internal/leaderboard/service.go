package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/turkalkol/turkalkol-backend/internal/storage"
	"go.uber.org/zap"
)

var (
	// ErrUsernameLength rejects usernames outside 2-20 characters after trimming.
	ErrUsernameLength = errors.New("leaderboard: username must be 2-20 characters")
	// ErrScoreNegative rejects negative scores.
	ErrScoreNegative = errors.New("leaderboard: score cannot be negative")
	// ErrScoreTooLarge rejects scores above the anti-cheat cap.
	ErrScoreTooLarge = errors.New("leaderboard: score exceeds maximum")
	// ErrNotFound indicates no entry matched the requested username.
	ErrNotFound = errors.New("leaderboard: player not found")

	errMissingStore = errors.New("document store dependency required")

	noOpLogger = zap.NewNop()
)

const (
	opServiceNew    = "leaderboard.service.new"
	opSubmit        = "leaderboard.submit"
	opAdminDelete   = "leaderboard.admin_delete"
	opAdminSetScore = "leaderboard.admin_set_score"
	opAdminReset    = "leaderboard.admin_reset"
)

// ServiceError carries an operation.reason code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the operation.reason identifier.
func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// ServiceConfig wires the leaderboard service dependencies.
type ServiceConfig struct {
	Store  storage.DocumentStore
	Clock  func() time.Time
	Logger *zap.Logger
}

// Service owns the leaderboard document: public submissions with monotonic
// merge semantics and the admin mutations behind the auth gate.
type Service struct {
	store  storage.DocumentStore
	clock  func() time.Time
	logger *zap.Logger
}

// NewService validates dependencies and returns a leaderboard service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opServiceNew, "missing_store", errMissingStore)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{store: cfg.Store, clock: clock, logger: logger}, nil
}

// Submit upserts a score by (username, game) identity, both matched
// case-insensitively. A stored score only ever increases; each of the four
// stat counters independently takes the maximum of stored and incoming
// values. updated_at advances on every accepted submission, including ones
// that change nothing else.
func (s *Service) Submit(ctx context.Context, submission Submission) (SubmitResult, error) {
	username := strings.TrimSpace(submission.Username)
	if n := utf8.RuneCountInString(username); n < minUsernameRunes || n > maxUsernameRunes {
		return SubmitResult{}, ErrUsernameLength
	}
	if submission.Score < 0 {
		return SubmitResult{}, ErrScoreNegative
	}
	if submission.Score > maxScore {
		return SubmitResult{}, ErrScoreTooLarge
	}

	game := strings.ToLower(strings.TrimSpace(submission.Game))
	if game == "" {
		game = DefaultGame
	}

	totalFlips := clampNonNegative(submission.TotalFlips)
	successfulFlips := clampNonNegative(submission.SuccessfulFlips)
	longestCombo := clampNonNegative(submission.LongestCombo)
	gamesPlayed := clampNonNegative(submission.GamesPlayed)

	entries := s.loadEntries(ctx)
	now := s.clock().Format(TimestampLayout)

	idx := -1
	for i := range entries {
		if strings.EqualFold(entries[i].Username, username) && entries[i].game() == game {
			idx = i
			break
		}
	}

	if idx >= 0 {
		entry := &entries[idx]
		if submission.Score > entry.Score {
			entry.Score = submission.Score
		}
		entry.TotalFlips = maxInt(entry.TotalFlips, totalFlips)
		entry.SuccessfulFlips = maxInt(entry.SuccessfulFlips, successfulFlips)
		entry.LongestCombo = maxInt(entry.LongestCombo, longestCombo)
		entry.GamesPlayed = maxInt(entry.GamesPlayed, gamesPlayed)
		entry.UpdatedAt = now
		s.logger.Info("score merged",
			zap.String("username", username),
			zap.String("game", game),
			zap.Int("score", entry.Score))
	} else {
		entries = append(entries, Entry{
			Username:        username,
			Score:           submission.Score,
			Game:            game,
			TotalFlips:      totalFlips,
			SuccessfulFlips: successfulFlips,
			LongestCombo:    longestCombo,
			GamesPlayed:     gamesPlayed,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		idx = len(entries) - 1
		s.logger.Info("player created",
			zap.String("username", username),
			zap.String("game", game),
			zap.Int("score", submission.Score))
	}

	if err := s.store.Save(ctx, entries); err != nil {
		s.logError(opSubmit, "save_failed", err, zap.String("username", username), zap.String("game", game))
		return SubmitResult{}, newServiceError(opSubmit, "save_failed", err)
	}

	entry := entries[idx]
	return SubmitResult{
		Username:        username,
		Score:           entry.Score,
		TotalFlips:      entry.TotalFlips,
		SuccessfulFlips: entry.SuccessfulFlips,
		LongestCombo:    entry.LongestCombo,
		GamesPlayed:     entry.GamesPlayed,
	}, nil
}

// List returns entries for the given game (all games when empty), sorted by
// score descending and capped at 50. Equal scores order by updated_at
// ascending so the standings are deterministic. Read failures yield an empty
// board, never an error.
func (s *Service) List(ctx context.Context, game string) []Entry {
	entries := s.loadEntries(ctx)

	filter := strings.ToLower(strings.TrimSpace(game))
	if filter != "" {
		filtered := entries[:0]
		for _, entry := range entries {
			if entry.game() == filter {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UpdatedAt < entries[j].UpdatedAt
	})

	if len(entries) > maxListed {
		entries = entries[:maxListed]
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries
}

// AdminDelete removes every entry for the username across all games.
func (s *Service) AdminDelete(ctx context.Context, username string) error {
	entries := s.loadEntries(ctx)

	remaining := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if !strings.EqualFold(entry.Username, username) {
			remaining = append(remaining, entry)
		}
	}
	if len(remaining) == len(entries) {
		return ErrNotFound
	}

	if err := s.store.Save(ctx, remaining); err != nil {
		s.logError(opAdminDelete, "save_failed", err, zap.String("username", username))
		return newServiceError(opAdminDelete, "save_failed", err)
	}

	s.logger.Info("player deleted", zap.String("username", username), zap.Int("removed", len(entries)-len(remaining)))
	return nil
}

// AdminSetScore overwrites the score of the first entry matching the
// username case-insensitively, regardless of game. When a player has entries
// in several games only the first stored one is touched; this mirrors the
// long-standing admin panel behavior. No monotonic guard applies here.
func (s *Service) AdminSetScore(ctx context.Context, username string, score int) error {
	if score < 0 {
		return ErrScoreNegative
	}
	if score > maxScore {
		return ErrScoreTooLarge
	}

	entries := s.loadEntries(ctx)

	idx := -1
	for i := range entries {
		if strings.EqualFold(entries[i].Username, username) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}

	entries[idx].Score = score
	entries[idx].UpdatedAt = s.clock().Format(TimestampLayout)

	if err := s.store.Save(ctx, entries); err != nil {
		s.logError(opAdminSetScore, "save_failed", err, zap.String("username", username))
		return newServiceError(opAdminSetScore, "save_failed", err)
	}

	s.logger.Info("score overwritten", zap.String("username", username), zap.Int("score", score))
	return nil
}

// AdminReset replaces the whole board with an empty one.
func (s *Service) AdminReset(ctx context.Context) error {
	if err := s.store.Save(ctx, []Entry{}); err != nil {
		s.logError(opAdminReset, "save_failed", err)
		return newServiceError(opAdminReset, "save_failed", err)
	}
	s.logger.Info("leaderboard reset")
	return nil
}

func (s *Service) loadEntries(ctx context.Context) []Entry {
	var entries []Entry
	// Load never fails on unreadable documents; any error here is unexpected.
	if err := s.store.Load(ctx, &entries); err != nil {
		s.logError(opSubmit, "load_failed", err)
		return nil
	}
	return entries
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.Error(err),
	}
	attrs = append(attrs, fields...)
	s.logger.Error("leaderboard service error", attrs...)
}
