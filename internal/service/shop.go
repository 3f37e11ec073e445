package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sakif/idle-clicker/internal/apperror"
	"github.com/sakif/idle-clicker/internal/catalog"
	"github.com/sakif/idle-clicker/internal/game"
	"github.com/sakif/idle-clicker/internal/model"
	"github.com/sakif/idle-clicker/internal/repository"
)

// ShopService owns the item catalog and the purchase engine.
//
// catalogMu is held exclusively by Seed and shared by Buy. A purchase can
// therefore never land between the "clear inventories" and "insert items"
// halves of a reseed, nor be debited against an item that is being replaced.
type ShopService struct {
	users     repository.UserRepository
	catalog   repository.CatalogRepository
	inventory repository.InventoryRepository
	source    catalog.Source
	locks     *UserLocks
	catalogMu sync.RWMutex
	logger    *slog.Logger
}

func NewShopService(
	users repository.UserRepository,
	catalogRepo repository.CatalogRepository,
	inventory repository.InventoryRepository,
	source catalog.Source,
	locks *UserLocks,
	logger *slog.Logger,
) *ShopService {
	return &ShopService{
		users:     users,
		catalog:   catalogRepo,
		inventory: inventory,
		source:    source,
		locks:     locks,
		logger:    logger,
	}
}

// Seed fetches and validates the remote catalog first, then swaps it in and
// clears every inventory in one transaction. Any failure is SEED_FAILED and
// the stored catalog is exactly what it was before.
func (s *ShopService) Seed(ctx context.Context) ([]model.Item, error) {
	items, err := s.source.Fetch(ctx)
	if err != nil {
		s.logger.Warn("catalog fetch failed", slog.String("error", err.Error()))
		return nil, apperror.SeedFailed(err)
	}

	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()

	if err := s.catalog.ReplaceCatalog(ctx, items); err != nil {
		s.logger.Error("catalog replace failed", slog.String("error", err.Error()))
		return nil, apperror.SeedFailed(err)
	}

	s.logger.Info("catalog seeded", slog.Int("items", len(items)))
	return items, nil
}

// ListItems returns the catalog ordered by id, or NO_ITEMS when empty.
func (s *ShopService) ListItems(ctx context.Context) ([]model.Item, error) {
	items, err := s.catalog.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/shop: listing items: %w", err)
	}
	if len(items) == 0 {
		return nil, &apperror.AppError{
			Err:     apperror.ErrNotFound,
			Code:    apperror.CodeNoItems,
			Message: "no items found",
		}
	}
	return items, nil
}

// Inventory lists what the user owns; possibly nothing.
func (s *ShopService) Inventory(ctx context.Context, userID string) ([]model.InventoryEntry, error) {
	entries, err := s.inventory.ListInventory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/shop: inventory of %s: %w", userID, err)
	}
	return entries, nil
}

// Buy purchases one unit of itemID for userID and returns the user's full
// inventory afterwards.
//
// Checks, in order: USER_NOT_FOUND, ITEM_NOT_FOUND, NO_PROGRESSION,
// MAX_QUANTITY_REACHED, NOT_ENOUGH_MONEY. Debit, inventory bump and click
// value credit commit together or not at all.
func (s *ShopService) Buy(ctx context.Context, userID string, itemID int64) ([]model.InventoryEntry, error) {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()

	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("service/shop: buy by %s: %w", userID, err)
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	entries, err := s.inventory.Purchase(ctx, userID, itemID, game.Purchase)
	if err != nil {
		return nil, fmt.Errorf("service/shop: buy item %d by %s: %w", itemID, userID, err)
	}

	s.logger.Info("item purchased", slog.String("userID", userID), slog.Int64("itemID", itemID))
	return entries, nil
}
