package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/sakif/idle-clicker/internal/model"
)

// DefaultKey is the hash holding the record. Fields: user_id, best_score.
const DefaultKey = "clicker:best-score"

// maxRetries bounds how often Update re-runs after losing a WATCH race.
const maxRetries = 10

var _ Tracker = (*RedisTracker)(nil)

// ErrTooManyRetries is returned when Update keeps losing the optimistic
// transaction to other writers.
var ErrTooManyRetries = errors.New("leaderboard: too many concurrent updates")

type RedisTracker struct {
	rdb *redis.Client
	key string
}

// NewRedisTracker uses DefaultKey when key is empty.
func NewRedisTracker(rdb *redis.Client, key string) *RedisTracker {
	if key == "" {
		key = DefaultKey
	}
	return &RedisTracker{rdb: rdb, key: key}
}

func (t *RedisTracker) Peek(ctx context.Context) (model.BestScore, error) {
	vals, err := t.rdb.HGetAll(ctx, t.key).Result()
	if err != nil {
		return model.BestScore{}, fmt.Errorf("leaderboard: reading %s: %w", t.key, err)
	}
	return decodeRecord(vals)
}

// Update watches the record key, compares, and writes inside MULTI/EXEC.
// If another client touches the key between WATCH and EXEC, Redis aborts
// the transaction with redis.TxFailedErr and we try again.
func (t *RedisTracker) Update(ctx context.Context, userID string, score int64) (bool, error) {
	for i := 0; i < maxRetries; i++ {
		won := false
		err := t.rdb.Watch(ctx, func(tx *redis.Tx) error {
			vals, err := tx.HGetAll(ctx, t.key).Result()
			if err != nil {
				return fmt.Errorf("reading record: %w", err)
			}
			current, err := decodeRecord(vals)
			if err != nil {
				return err
			}
			if score <= current.BestScore {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, t.key, "user_id", userID, "best_score", score)
				return nil
			})
			if err != nil {
				return err
			}
			won = true
			return nil
		}, t.key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("leaderboard: updating %s: %w", t.key, err)
		}
		return won, nil
	}
	return false, ErrTooManyRetries
}

func decodeRecord(vals map[string]string) (model.BestScore, error) {
	if len(vals) == 0 {
		return model.BestScore{}, nil
	}
	score, err := strconv.ParseInt(vals["best_score"], 10, 64)
	if err != nil {
		return model.BestScore{}, fmt.Errorf("leaderboard: malformed best_score %q: %w", vals["best_score"], err)
	}
	return model.BestScore{UserID: vals["user_id"], BestScore: score}, nil
}
