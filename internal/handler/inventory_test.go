package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/idle-clicker/internal/apperror"
	"github.com/sakif/idle-clicker/internal/model"
)

func TestInventoryFlow(t *testing.T) {
	api := newTestAPI(t)
	admin := api.register(t, "admin")
	alice := api.register(t, "alice")
	serve(t, api.game.HandleInitialize, request{method: http.MethodPost, target: "/", as: &alice})

	// nothing seeded yet
	w := serve(t, api.inventory.HandleListItems, request{method: http.MethodGet, target: "/api/inventory/items"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperror.CodeNoItems, decodeBody[ErrorResponse](t, w).Code)

	w = serve(t, api.inventory.HandleSeed, request{method: http.MethodPost, target: "/api/inventory/seed", as: &admin})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decodeBody[[]model.Item](t, w), 2)

	w = serve(t, api.inventory.HandleListItems, request{method: http.MethodGet, target: "/api/inventory/items"})
	require.Equal(t, http.StatusOK, w.Code)
	items := decodeBody[[]model.Item](t, w)
	assert.Equal(t, int64(1), items[0].ID)
	assert.Equal(t, "Cursor", items[0].Name)

	// empty inventory is a list, not null
	w = serve(t, api.inventory.HandleInventory, request{method: http.MethodGet, target: "/api/inventory", as: &alice})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	buy := func(itemID string) request {
		return request{
			method: http.MethodPost,
			target: "/api/inventory/buy/" + itemID,
			as:     &alice,
			params: map[string]string{"itemId": itemID},
		}
	}

	w = serve(t, api.inventory.HandleBuy, buy("1"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperror.CodeNotEnoughMoney, decodeBody[ErrorResponse](t, w).Code)

	api.setClicks(t, alice.UserID, 500)
	w = serve(t, api.inventory.HandleBuy, buy("1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []model.InventoryEntry{{UserID: alice.UserID, ItemID: 1, Quantity: 1}},
		decodeBody[[]model.InventoryEntry](t, w))

	w = serve(t, api.game.HandleProgression, request{method: http.MethodGet, target: "/", as: &alice})
	p := decodeBody[model.Progression](t, w)
	assert.Equal(t, int64(400), p.ClickCount)
	assert.Equal(t, int64(6), p.TotalClickValue)

	// Grandma is capped at one
	w = serve(t, api.inventory.HandleBuy, buy("2"))
	require.Equal(t, http.StatusOK, w.Code)
	w = serve(t, api.inventory.HandleBuy, buy("2"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperror.CodeMaxQuantityReached, decodeBody[ErrorResponse](t, w).Code)
}

func TestHandleBuy_BadRequests(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register(t, "alice")

	tests := []struct {
		name   string
		itemID string
		status int
		code   string
	}{
		{"not a number", "abc", http.StatusBadRequest, apperror.CodeValidation},
		{"zero", "0", http.StatusBadRequest, apperror.CodeValidation},
		{"negative", "-3", http.StatusBadRequest, apperror.CodeValidation},
		{"unknown item", "77", http.StatusNotFound, apperror.CodeItemNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, api.inventory.HandleBuy, request{
				method: http.MethodPost,
				target: "/",
				as:     &alice,
				params: map[string]string{"itemId": tt.itemID},
			})
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeBody[ErrorResponse](t, w).Code)
		})
	}
}
