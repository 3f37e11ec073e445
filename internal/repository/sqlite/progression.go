package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/idle-clicker/internal/apperror"
	"github.com/sakif/idle-clicker/internal/model"
	"github.com/sakif/idle-clicker/internal/repository"
)

var _ repository.ProgressionRepository = (*DB)(nil)

const progressionColumns = `user_id, click_count, total_click_value, multiplier, best_score, created_at, updated_at`

func scanProgression(row rowScanner) (*model.Progression, error) {
	var p model.Progression
	err := row.Scan(&p.UserID, &p.ClickCount, &p.TotalClickValue, &p.Multiplier, &p.BestScore, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProgression inserts p unless the user already has one.
//
// ON CONFLICT DO NOTHING leaves the existing row untouched; zero rows affected
// is how we learn it was there.
func (db *DB) CreateProgression(ctx context.Context, p *model.Progression) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO progressions (`+progressionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		p.UserID,
		p.ClickCount,
		p.TotalClickValue,
		p.Multiplier,
		p.BestScore,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating progression for %s: %w", p.UserID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.Conflict("progression", p.UserID).WithCode(apperror.CodeProgressionExists)
	}
	return nil
}

func (db *DB) GetProgression(ctx context.Context, userID string) (*model.Progression, error) {
	p, err := scanProgression(db.conn.QueryRowContext(ctx,
		`SELECT `+progressionColumns+` FROM progressions WHERE user_id = ?`, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("progression", userID).WithCode(apperror.CodeProgressionNotFound)
		}
		return nil, fmt.Errorf("sqlite: getting progression %s: %w", userID, err)
	}
	return p, nil
}

// MutateProgression is the read-modify-write primitive behind Click and Reset.
// If fn fails, or anything fn triggers fails, nothing is written.
func (db *DB) MutateProgression(ctx context.Context, userID string, fn repository.MutateFunc) (*model.Progression, error) {
	var out *model.Progression

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		p, err := getProgressionTx(ctx, tx, userID, apperror.CodeProgressionNotFound)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		if err := updateProgressionTx(ctx, tx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TopBestScores ranks users by personal best. Ties share no rank; the
// earlier username alphabetically comes first.
func (db *DB) TopBestScores(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT p.user_id, u.username, p.best_score
		 FROM progressions p
		 JOIN users u ON u.id = p.user_id
		 ORDER BY p.best_score DESC, u.username ASC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing best scores: %w", err)
	}
	defer rows.Close()

	entries := make([]model.LeaderboardEntry, 0, limit)
	for rows.Next() {
		e := model.LeaderboardEntry{Rank: len(entries) + 1}
		if err := rows.Scan(&e.UserID, &e.Username, &e.BestScore); err != nil {
			return nil, fmt.Errorf("sqlite: scanning best score row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating best score rows: %w", err)
	}
	return entries, nil
}

// getProgressionTx reads inside tx. notFoundCode lets Buy report
// NO_PROGRESSION where the ledger reports PROGRESSION_NOT_FOUND.
func getProgressionTx(ctx context.Context, tx *sql.Tx, userID, notFoundCode string) (*model.Progression, error) {
	p, err := scanProgression(tx.QueryRowContext(ctx,
		`SELECT `+progressionColumns+` FROM progressions WHERE user_id = ?`, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("progression", userID).WithCode(notFoundCode)
		}
		return nil, fmt.Errorf("sqlite: getting progression %s: %w", userID, err)
	}
	return p, nil
}

func updateProgressionTx(ctx context.Context, tx *sql.Tx, p *model.Progression) error {
	p.UpdatedAt = time.Now()
	_, err := tx.ExecContext(ctx,
		`UPDATE progressions
		 SET click_count = ?, total_click_value = ?, multiplier = ?, best_score = ?, updated_at = ?
		 WHERE user_id = ?`,
		p.ClickCount,
		p.TotalClickValue,
		p.Multiplier,
		p.BestScore,
		p.UpdatedAt,
		p.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating progression %s: %w", p.UserID, err)
	}
	return nil
}
