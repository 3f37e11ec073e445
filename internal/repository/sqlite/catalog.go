package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/sakif/idle-clicker/internal/apperror"
	"github.com/sakif/idle-clicker/internal/model"
	"github.com/sakif/idle-clicker/internal/repository"
)

var _ repository.CatalogRepository = (*DB)(nil)

// ReplaceCatalog deletes every inventory row and item, then inserts items,
// all in one transaction. Readers see either the old catalog or the new one.
func (db *DB) ReplaceCatalog(ctx context.Context, items []model.Item) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM inventories`); err != nil {
			return fmt.Errorf("sqlite: clearing inventories: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
			return fmt.Errorf("sqlite: clearing items: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO items (id, name, price, max_quantity, click_value) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("sqlite: preparing item insert: %w", err)
		}
		defer stmt.Close()

		for _, it := range items {
			if _, err := stmt.ExecContext(ctx, it.ID, it.Name, it.Price, it.MaxQuantity, it.ClickValue); err != nil {
				return fmt.Errorf("sqlite: inserting item %d: %w", it.ID, err)
			}
		}
		return nil
	})
}

// ListItems returns every item ordered by id; an empty catalog is an empty
// slice, not an error.
func (db *DB) ListItems(ctx context.Context) ([]model.Item, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, price, max_quantity, click_value FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing items: %w", err)
	}
	defer rows.Close()

	items := make([]model.Item, 0)
	for rows.Next() {
		var it model.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Price, &it.MaxQuantity, &it.ClickValue); err != nil {
			return nil, fmt.Errorf("sqlite: scanning item row: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating item rows: %w", err)
	}
	return items, nil
}

func (db *DB) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	return getItem(ctx, db.conn, id)
}

// querier is the read surface shared by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getItem(ctx context.Context, q querier, id int64) (*model.Item, error) {
	var it model.Item
	err := q.QueryRowContext(ctx,
		`SELECT id, name, price, max_quantity, click_value FROM items WHERE id = ?`, id,
	).Scan(&it.ID, &it.Name, &it.Price, &it.MaxQuantity, &it.ClickValue)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("item", strconv.FormatInt(id, 10)).WithCode(apperror.CodeItemNotFound)
		}
		return nil, fmt.Errorf("sqlite: getting item %d: %w", id, err)
	}
	return &it, nil
}
