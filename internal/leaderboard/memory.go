package leaderboard

import (
	"context"
	"sync"

	"github.com/sakif/idle-clicker/internal/model"
)

var _ Tracker = (*MemoryTracker)(nil)

// MemoryTracker keeps the record in process memory. The zero value is ready
// to use.
type MemoryTracker struct {
	mu     sync.RWMutex
	record model.BestScore
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{}
}

func (t *MemoryTracker) Peek(_ context.Context) (model.BestScore, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.record, nil
}

// Update stores (userID, score) if score beats the current record.
// The read and the write happen under one lock, so two concurrent callers
// can never both win with the lower score landing last.
func (t *MemoryTracker) Update(_ context.Context, userID string, score int64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if score <= t.record.BestScore {
		return false, nil
	}
	t.record = model.BestScore{UserID: userID, BestScore: score}
	return true, nil
}
