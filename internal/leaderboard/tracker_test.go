package leaderboard

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every test below runs against both implementations.
func trackers(t *testing.T) map[string]Tracker {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return map[string]Tracker{
		"memory": NewMemoryTracker(),
		"redis":  NewRedisTracker(rdb, ""),
	}
}

func TestPeek_EmptyReturnsZeroRecord(t *testing.T) {
	for name, tr := range trackers(t) {
		t.Run(name, func(t *testing.T) {
			rec, err := tr.Peek(context.Background())
			require.NoError(t, err)
			assert.Empty(t, rec.UserID)
			assert.Zero(t, rec.BestScore)
		})
	}
}

func TestUpdate_OnlyHigherScoreWins(t *testing.T) {
	for name, tr := range trackers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			won, err := tr.Update(ctx, "alice", 150)
			require.NoError(t, err)
			assert.True(t, won)

			won, err = tr.Update(ctx, "bob", 120)
			require.NoError(t, err)
			assert.False(t, won, "lower score must not replace the record")

			won, err = tr.Update(ctx, "bob", 150)
			require.NoError(t, err)
			assert.False(t, won, "a tie keeps the first holder")

			rec, err := tr.Peek(ctx)
			require.NoError(t, err)
			assert.Equal(t, "alice", rec.UserID)
			assert.Equal(t, int64(150), rec.BestScore)

			won, err = tr.Update(ctx, "bob", 151)
			require.NoError(t, err)
			assert.True(t, won)

			rec, err = tr.Peek(ctx)
			require.NoError(t, err)
			assert.Equal(t, "bob", rec.UserID)
			assert.Equal(t, int64(151), rec.BestScore)
		})
	}
}

func TestUpdate_ZeroScoreNeverWinsOnEmpty(t *testing.T) {
	for name, tr := range trackers(t) {
		t.Run(name, func(t *testing.T) {
			won, err := tr.Update(context.Background(), "alice", 0)
			require.NoError(t, err)
			assert.False(t, won)
		})
	}
}

func TestUpdate_ConcurrentKeepsMaximum(t *testing.T) {
	for name, tr := range trackers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const writers = 20

			var wg sync.WaitGroup
			for i := 1; i <= writers; i++ {
				wg.Add(1)
				go func(score int64) {
					defer wg.Done()
					_, err := tr.Update(ctx, fmt.Sprintf("user-%d", score), score*10)
					// losing too many races is allowed, silently lowering the record is not
					if err != nil && err != ErrTooManyRetries {
						t.Errorf("Update(%d) error = %v", score, err)
					}
				}(int64(i))
			}
			wg.Wait()

			// whatever interleaving happened, the top writer retrying once must land
			_, err := tr.Update(ctx, "user-20", 200)
			require.NoError(t, err)

			rec, err := tr.Peek(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(200), rec.BestScore)
			assert.Equal(t, "user-20", rec.UserID)
		})
	}
}

func TestRedisTracker_CustomKeyAndStoredLayout(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	tr := NewRedisTracker(rdb, "test:best")
	_, err := tr.Update(context.Background(), "carol", 42)
	require.NoError(t, err)

	assert.Equal(t, "carol", mr.HGet("test:best", "user_id"))
	assert.Equal(t, "42", mr.HGet("test:best", "best_score"))
	assert.False(t, mr.Exists(DefaultKey))
}

func TestRedisTracker_MalformedRecord(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	mr.HSet(DefaultKey, "user_id", "x", "best_score", "not-a-number")

	_, err := NewRedisTracker(rdb, "").Peek(context.Background())
	assert.Error(t, err)
}

func TestRedisTracker_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	_, err := NewRedisTracker(rdb, "").Update(context.Background(), "alice", 10)
	assert.Error(t, err)
}
