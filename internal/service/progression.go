// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// The game rules themselves live in internal/game as pure functions. A
// service decides when a rule runs: it takes the player's lock, opens the
// repository transaction, and lets the rule mutate the loaded progression
// inside it.
//
// Services take repository interfaces, never *sqlite.DB, and return
// apperror values the handler maps to HTTP statuses.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/idle-clicker/internal/game"
	"github.com/sakif/idle-clicker/internal/leaderboard"
	"github.com/sakif/idle-clicker/internal/model"
	"github.com/sakif/idle-clicker/internal/repository"
)

// DefaultLeaderboardSize is used when the caller asks for zero entries.
const DefaultLeaderboardSize = 10

// DefaultTrackerTimeout bounds the best-score update made during a reset.
const DefaultTrackerTimeout = 2 * time.Second

// ProgressionService is the progression ledger: initialize, click, reset,
// and the reads around them.
type ProgressionService struct {
	users        repository.UserRepository
	progressions repository.ProgressionRepository
	tracker      leaderboard.Tracker
	locks        *UserLocks
	logger       *slog.Logger

	trackerTimeout time.Duration
}

func NewProgressionService(
	users repository.UserRepository,
	progressions repository.ProgressionRepository,
	tracker leaderboard.Tracker,
	locks *UserLocks,
	logger *slog.Logger,
) *ProgressionService {
	return &ProgressionService{
		users:        users,
		progressions: progressions,
		tracker:      tracker,
		locks:        locks,
		logger:       logger,

		trackerTimeout: DefaultTrackerTimeout,
	}
}

// Initialize creates the user's progression exactly once. A second call
// fails with PROGRESSION_EXISTS and leaves the stored state alone.
func (s *ProgressionService) Initialize(ctx context.Context, userID string) (*model.Progression, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("service/progression: initializing %s: %w", userID, err)
	}

	p := game.NewProgression(userID)
	if err := s.progressions.CreateProgression(ctx, p); err != nil {
		return nil, fmt.Errorf("service/progression: initializing %s: %w", userID, err)
	}

	s.logger.Info("progression initialized", slog.String("userID", userID))
	return p, nil
}

func (s *ProgressionService) Get(ctx context.Context, userID string) (*model.Progression, error) {
	p, err := s.progressions.GetProgression(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/progression: getting %s: %w", userID, err)
	}
	return p, nil
}

// Click credits totalClickValue*multiplier and returns the new balance.
func (s *ProgressionService) Click(ctx context.Context, userID string) (model.ClickResult, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	var result model.ClickResult
	_, err := s.progressions.MutateProgression(ctx, userID, func(p *model.Progression) error {
		result = game.Click(p)
		return nil
	})
	if err != nil {
		return model.ClickResult{}, fmt.Errorf("service/progression: click by %s: %w", userID, err)
	}
	return result, nil
}

// ResetCost reports what the next reset would cost without changing anything.
func (s *ProgressionService) ResetCost(ctx context.Context, userID string) (int64, error) {
	p, err := s.progressions.GetProgression(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("service/progression: reset cost for %s: %w", userID, err)
	}
	return game.ResetCost(p.Multiplier), nil
}

// Reset spends the whole balance for +1 multiplier and submits the
// pre-reset balance to the global record.
//
// The tracker update runs inside the progression transaction. If the
// tracker fails, the reset is rolled back too, so a player never loses a
// balance that was not scored.
//
// The database has a single connection and the transaction holds it while
// the tracker runs, so the update gets at most trackerTimeout. Past that the
// reset fails with context.DeadlineExceeded and is rolled back.
func (s *ProgressionService) Reset(ctx context.Context, userID string) (*model.Progression, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	var (
		scored int64
		won    bool
	)
	p, err := s.progressions.MutateProgression(ctx, userID, func(p *model.Progression) error {
		var err error
		scored, err = game.Reset(p)
		if err != nil {
			return err
		}
		tctx, cancel := context.WithTimeout(ctx, s.trackerTimeout)
		defer cancel()
		won, err = s.tracker.Update(tctx, userID, scored)
		if err != nil {
			return fmt.Errorf("updating best score: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service/progression: reset by %s: %w", userID, err)
	}

	s.logger.Info("progression reset",
		slog.String("userID", userID),
		slog.Int64("scored", scored),
		slog.Int64("multiplier", p.Multiplier),
	)
	if won {
		s.logger.Info("new global best score", slog.String("userID", userID), slog.Int64("score", scored))
	}
	return p, nil
}

// BestScore returns the global record; the zero record when nobody has reset yet.
func (s *ProgressionService) BestScore(ctx context.Context) (model.BestScore, error) {
	rec, err := s.tracker.Peek(ctx)
	if err != nil {
		return model.BestScore{}, fmt.Errorf("service/progression: reading best score: %w", err)
	}
	return rec, nil
}

// Leaderboard ranks players by personal best.
func (s *ProgressionService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	entries, err := s.progressions.TopBestScores(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("service/progression: leaderboard: %w", err)
	}
	return entries, nil
}
