package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/idle-clicker/internal/apperror"
	"github.com/sakif/idle-clicker/internal/service"
)

// InventoryHandler serves the catalog and the purchase engine.
type InventoryHandler struct {
	shop   *service.ShopService
	logger *slog.Logger
}

func NewInventoryHandler(shop *service.ShopService, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{shop: shop, logger: logger}
}

// HandleSeed replaces the catalog from the remote source and clears every
// inventory.
//
// HTTP: POST /api/inventory/seed
// Auth: admin
func (h *InventoryHandler) HandleSeed(w http.ResponseWriter, r *http.Request) {
	items, err := h.shop.Seed(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// HTTP: GET /api/inventory/items
func (h *InventoryHandler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.shop.ListItems(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// HTTP: GET /api/inventory
func (h *InventoryHandler) HandleInventory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	entries, err := h.shop.Inventory(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleBuy buys one unit and answers with the caller's whole inventory.
//
// HTTP: POST /api/inventory/buy/{itemId}
func (h *InventoryHandler) HandleBuy(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemId"), 10, 64)
	if err != nil || itemID <= 0 {
		writeError(w, h.logger, apperror.ValidationFailed("itemId", "itemId must be a positive integer"))
		return
	}

	entries, err := h.shop.Buy(r.Context(), userID, itemID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
