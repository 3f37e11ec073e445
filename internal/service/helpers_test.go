package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/idle-clicker/internal/auth"
	"github.com/sakif/idle-clicker/internal/leaderboard"
	"github.com/sakif/idle-clicker/internal/model"
	sqliteRepo "github.com/sakif/idle-clicker/internal/repository/sqlite"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// discardLogger keeps test output clean.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDB(t *testing.T) *sqliteRepo.DB {
	t.Helper()
	db, err := sqliteRepo.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// failingTracker lets a test make the best-score update fail, or hang
// until its context ends when stall is set.
type failingTracker struct {
	leaderboard.Tracker
	mu    sync.Mutex
	fail  error
	stall bool
}

func (f *failingTracker) Update(ctx context.Context, userID string, score int64) (bool, error) {
	f.mu.Lock()
	fail, stall := f.fail, f.stall
	f.mu.Unlock()
	if fail != nil {
		return false, fail
	}
	if stall {
		<-ctx.Done()
		return false, ctx.Err()
	}
	return f.Tracker.Update(ctx, userID, score)
}

// fakeSource is a catalog.Source whose result the test controls. Seed may
// be called from several goroutines, so every field is read under mu.
type fakeSource struct {
	mu    sync.Mutex
	items []model.Item
	err   error
	calls int
}

func (f *fakeSource) Fetch(_ context.Context) ([]model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]model.Item(nil), f.items...), nil
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var errStorage = errors.New("storage exploded")

// testEnv wires every service against one in-memory database.
type testEnv struct {
	db          *sqliteRepo.DB
	tracker     *failingTracker
	source      *fakeSource
	progression *ProgressionService
	shop        *ShopService
	auth        *AuthService
	users       *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	logger := discardLogger()
	locks := NewUserLocks()
	tracker := &failingTracker{Tracker: leaderboard.NewMemoryTracker()}
	source := &fakeSource{items: []model.Item{
		{ID: 1, Name: "Cursor", Price: 100, ClickValue: 5},
		{ID: 2, Name: "Grandma", Price: 10, MaxQuantity: 2, ClickValue: 1},
	}}

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	passwords := auth.NewPasswordServiceWithCost(bcrypt.MinCost)

	return &testEnv{
		db:          db,
		tracker:     tracker,
		source:      source,
		progression: NewProgressionService(db, db, tracker, locks, logger),
		shop:        NewShopService(db, db, db, source, locks, logger),
		auth:        NewAuthService(db, tokens, passwords, logger),
		users:       NewUserService(db, passwords, logger),
	}
}

// newPlayer registers a user and initializes their progression.
func (e *testEnv) newPlayer(t *testing.T, username string) *model.User {
	t.Helper()
	res, err := e.auth.Register(context.Background(), username, "pass1234")
	if err != nil {
		t.Fatalf("Register(%q) error = %v", username, err)
	}
	if _, err := e.progression.Initialize(context.Background(), res.User.ID); err != nil {
		t.Fatalf("Initialize(%q) error = %v", username, err)
	}
	return res.User
}

// setBalance overwrites a player's progression for a test scenario.
func (e *testEnv) setBalance(t *testing.T, userID string, clicks, multiplier int64) {
	t.Helper()
	_, err := e.db.MutateProgression(context.Background(), userID, func(p *model.Progression) error {
		p.ClickCount = clicks
		p.Multiplier = multiplier
		if clicks > p.BestScore {
			p.BestScore = clicks
		}
		return nil
	})
	if err != nil {
		t.Fatalf("setBalance: %v", err)
	}
}
