package model

// Item is a purchasable catalog entry.
//
// The JSON tags match the remote catalog file, so the same struct decodes the
// seed source and encodes API responses.
type Item struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	MaxQuantity int64  `json:"maxQuantity"` // 0 means unlimited
	ClickValue  int64  `json:"clickValue"`
}

// Unlimited reports whether the item has no purchase cap.
func (i Item) Unlimited() bool {
	return i.MaxQuantity == 0
}

// InventoryEntry records how many of an item a user owns.
// (UserID, ItemID) is unique; repeat purchases bump Quantity.
type InventoryEntry struct {
	UserID   string `json:"userId"`
	ItemID   int64  `json:"itemId"`
	Quantity int64  `json:"quantity"`
}
