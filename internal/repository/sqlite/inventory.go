package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/idle-clicker/internal/apperror"
	"github.com/sakif/idle-clicker/internal/model"
	"github.com/sakif/idle-clicker/internal/repository"
)

var _ repository.InventoryRepository = (*DB)(nil)

// Purchase is one transaction:
//  1. load the item (ITEM_NOT_FOUND) and the buyer's progression (NO_PROGRESSION)
//  2. read how many of the item the buyer owns
//  3. let fn check funds and caps and adjust the progression
//  4. write the progression and bump the inventory row
//  5. read back the buyer's whole inventory
//
// Any failure rolls all of it back, so clicks are never debited without the
// item being granted or the other way round.
func (db *DB) Purchase(ctx context.Context, userID string, itemID int64, fn repository.PurchaseFunc) ([]model.InventoryEntry, error) {
	var inventory []model.InventoryEntry

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		item, err := getItem(ctx, tx, itemID)
		if err != nil {
			return err
		}

		p, err := getProgressionTx(ctx, tx, userID, apperror.CodeNoProgression)
		if err != nil {
			return err
		}

		var owned int64
		err = tx.QueryRowContext(ctx,
			`SELECT quantity FROM inventories WHERE user_id = ? AND item_id = ?`,
			userID, itemID,
		).Scan(&owned)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("sqlite: reading owned quantity: %w", err)
		}

		if err := fn(p, *item, owned); err != nil {
			return err
		}

		if err := updateProgressionTx(ctx, tx, p); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO inventories (user_id, item_id, quantity) VALUES (?, ?, 1)
			 ON CONFLICT(user_id, item_id) DO UPDATE SET quantity = quantity + 1`,
			userID, itemID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating inventory: %w", err)
		}

		inventory, err = listInventory(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return inventory, nil
}

// ListInventory returns the user's entries ordered by item id. A user who
// owns nothing gets an empty slice.
func (db *DB) ListInventory(ctx context.Context, userID string) ([]model.InventoryEntry, error) {
	return listInventory(ctx, db.conn, userID)
}

type rowsQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listInventory(ctx context.Context, q rowsQuerier, userID string) ([]model.InventoryEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT user_id, item_id, quantity FROM inventories WHERE user_id = ? ORDER BY item_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing inventory for %s: %w", userID, err)
	}
	defer rows.Close()

	entries := make([]model.InventoryEntry, 0)
	for rows.Next() {
		var e model.InventoryEntry
		if err := rows.Scan(&e.UserID, &e.ItemID, &e.Quantity); err != nil {
			return nil, fmt.Errorf("sqlite: scanning inventory row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating inventory rows: %w", err)
	}
	return entries, nil
}
