// Package leaderboard holds the global best-score record: the single
// (userID, score) pair with the highest pre-reset click count ever submitted.
//
// Two implementations share the Tracker interface:
//   - MemoryTracker: a mutex-guarded cell, enough for one server process
//   - RedisTracker:  an optimistic WATCH/MULTI transaction, for several
//     processes sharing one record
//
// Both are compare-and-set: Update only wins when the new score is strictly
// greater than the stored one, so the record never decreases.
package leaderboard

import (
	"context"

	"github.com/sakif/idle-clicker/internal/model"
)

// Tracker is injected into the progression service. Peek returns the zero
// record (empty UserID, score 0) until the first Update wins.
type Tracker interface {
	Peek(ctx context.Context) (model.BestScore, error)
	Update(ctx context.Context, userID string, score int64) (bool, error)
}
