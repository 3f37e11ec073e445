// Package repository declares the storage contracts the services depend on.
// internal/repository/sqlite is the only implementation; service tests use
// the same SQLite code against ":memory:".
package repository

import (
	"context"

	"github.com/sakif/idle-clicker/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	// CreateUser assigns ID, timestamps and role. The first user ever stored
	// becomes admin, everyone after that a regular user.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	ListUsers(ctx context.Context, opts ListOptions) ([]model.User, error)
	ListUsersByRole(ctx context.Context, role model.Role) ([]model.User, error)
	SearchUsers(ctx context.Context, fragment string) ([]model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	// DeleteUser cascades to the user's progression and inventory.
	DeleteUser(ctx context.Context, id string) error
}

// MutateFunc edits a progression in place. Returning an error aborts the
// surrounding transaction and nothing is written.
type MutateFunc func(p *model.Progression) error

// PurchaseFunc applies the economics of one purchase given the current
// progression, the item, and how many of it the user already owns.
type PurchaseFunc func(p *model.Progression, item model.Item, owned int64) error

type ProgressionRepository interface {
	CreateProgression(ctx context.Context, p *model.Progression) error
	GetProgression(ctx context.Context, userID string) (*model.Progression, error)
	// MutateProgression loads, applies fn and stores in one transaction.
	MutateProgression(ctx context.Context, userID string, fn MutateFunc) (*model.Progression, error)
	TopBestScores(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

type CatalogRepository interface {
	// ReplaceCatalog swaps every item and clears every inventory atomically.
	ReplaceCatalog(ctx context.Context, items []model.Item) error
	ListItems(ctx context.Context) ([]model.Item, error)
	GetItem(ctx context.Context, id int64) (*model.Item, error)
}

type InventoryRepository interface {
	// Purchase runs fn against the buyer's progression inside one transaction,
	// then bumps the inventory row and returns the buyer's full inventory.
	Purchase(ctx context.Context, userID string, itemID int64, fn PurchaseFunc) ([]model.InventoryEntry, error)
	ListInventory(ctx context.Context, userID string) ([]model.InventoryEntry, error)
}
