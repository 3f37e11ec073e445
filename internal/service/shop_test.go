package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sakif/idle-clicker/internal/apperror"
	"github.com/sakif/idle-clicker/internal/catalog"
	"github.com/sakif/idle-clicker/internal/model"
)

func seed(t *testing.T, env *testEnv) {
	t.Helper()
	if _, err := env.shop.Seed(context.Background()); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
}

// =========================================================================
// SEED / LIST
// =========================================================================

func TestSeed(t *testing.T) {
	env := newTestEnv(t)

	items, err := env.shop.Seed(context.Background())
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if len(items) != 2 {
		t.Errorf("Seed() returned %d items, want 2", len(items))
	}

	listed, err := env.shop.ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(listed) != 2 || listed[0].ID != 1 || listed[1].ID != 2 {
		t.Errorf("ListItems() = %+v, want ids 1,2", listed)
	}
}

func TestSeed_ClearsInventories(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seed(t, env)
	u := env.newPlayer(t, "alice")
	env.setBalance(t, u.ID, 1000, 1)
	if _, err := env.shop.Buy(ctx, u.ID, 1); err != nil {
		t.Fatalf("Buy() error = %v", err)
	}

	seed(t, env)

	inv, _ := env.shop.Inventory(ctx, u.ID)
	if len(inv) != 0 {
		t.Errorf("inventory after reseed = %+v, want empty", inv)
	}
	// the click value bought before the reseed is kept
	p, _ := env.progression.Get(ctx, u.ID)
	if p.TotalClickValue != 6 {
		t.Errorf("TotalClickValue = %d, want 6", p.TotalClickValue)
	}
}

func TestSeed_FailureKeepsCatalog(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"unreachable", errors.New("dial tcp: connection refused")},
		{"empty", catalog.ErrEmpty},
		{"malformed", catalog.ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			seed(t, env)

			env.source.fail(tt.err)
			_, err := env.shop.Seed(ctx)

			if !errors.Is(err, apperror.ErrSeedFailed) || apperror.CodeOf(err) != apperror.CodeSeedFailed {
				t.Fatalf("Seed() error = %v, want SEED_FAILED", err)
			}
			items, _ := env.shop.ListItems(ctx)
			if len(items) != 2 {
				t.Errorf("catalog after failed seed = %+v, want previous 2 items", items)
			}
		})
	}
}

func TestSeed_PersistenceFailureIsSeedFailed(t *testing.T) {
	env := newTestEnv(t)
	// duplicate ids pass the fake source but violate the primary key
	env.source.items = []model.Item{{ID: 9, Name: "A"}, {ID: 9, Name: "B"}}

	_, err := env.shop.Seed(context.Background())

	if apperror.CodeOf(err) != apperror.CodeSeedFailed {
		t.Errorf("Seed() error = %v, want SEED_FAILED", err)
	}
}

func TestSeed_ResultDoesNotAliasSource(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	items, err := env.shop.Seed(ctx)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	items[0].Price = 1

	again, err := env.shop.Seed(ctx)
	if err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}
	if again[0].Price != 100 {
		t.Errorf("second Seed() price = %d, want 100", again[0].Price)
	}
}

func TestListItems_Empty(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.shop.ListItems(context.Background())

	if !errors.Is(err, apperror.ErrNotFound) || apperror.CodeOf(err) != apperror.CodeNoItems {
		t.Errorf("ListItems() error = %v, want NO_ITEMS", err)
	}
}

// =========================================================================
// BUY
// =========================================================================

func TestBuy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seed(t, env)
	u := env.newPlayer(t, "alice")
	env.setBalance(t, u.ID, 500, 1)

	inv, err := env.shop.Buy(ctx, u.ID, 1)
	if err != nil {
		t.Fatalf("Buy() error = %v", err)
	}
	if len(inv) != 1 || inv[0].ItemID != 1 || inv[0].Quantity != 1 {
		t.Errorf("Buy() = %+v, want [{item 1 x1}]", inv)
	}

	p, _ := env.progression.Get(ctx, u.ID)
	if p.ClickCount != 400 || p.TotalClickValue != 6 {
		t.Errorf("progression = %+v, want 400 clicks, value 6", p)
	}

	// the bought value now flows into clicks: 6 * multiplier 1
	res, _ := env.progression.Click(ctx, u.ID)
	if res.ClickCount != 406 {
		t.Errorf("Click() after Buy = %d, want 406", res.ClickCount)
	}
}

func TestBuy_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seed(t, env)

	noProg, _ := env.auth.Register(ctx, "noprog", "pass1234")
	poor := env.newPlayer(t, "poor")
	env.setBalance(t, poor.ID, 99, 1)
	capped := env.newPlayer(t, "capped")
	env.setBalance(t, capped.ID, 1000, 1)
	for i := 0; i < 2; i++ {
		if _, err := env.shop.Buy(ctx, capped.ID, 2); err != nil {
			t.Fatalf("setup Buy() error = %v", err)
		}
	}

	tests := []struct {
		name     string
		userID   string
		itemID   int64
		sentinel error
		code     string
	}{
		{"unknown user", "ghost", 1, apperror.ErrNotFound, apperror.CodeUserNotFound},
		{"unknown item", poor.ID, 42, apperror.ErrNotFound, apperror.CodeItemNotFound},
		{"no progression", noProg.User.ID, 1, apperror.ErrNotFound, apperror.CodeNoProgression},
		{"not enough money", poor.ID, 1, apperror.ErrInsufficientFunds, apperror.CodeNotEnoughMoney},
		{"max quantity", capped.ID, 2, apperror.ErrInsufficientFunds, apperror.CodeMaxQuantityReached},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.shop.Buy(ctx, tt.userID, tt.itemID)
			if !errors.Is(err, tt.sentinel) || apperror.CodeOf(err) != tt.code {
				t.Errorf("Buy() error = %v, want %s", err, tt.code)
			}
		})
	}

	p, _ := env.progression.Get(ctx, poor.ID)
	if p.ClickCount != 99 || p.TotalClickValue != 1 {
		t.Errorf("rejected purchase changed progression: %+v", p)
	}
}

func TestBuy_ConcurrentWithClicksKeepsLedgerConsistent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seed(t, env)
	u := env.newPlayer(t, "alice")
	env.setBalance(t, u.ID, 1000, 1)

	const buys, clicks = 5, 50
	var wg sync.WaitGroup
	for i := 0; i < buys; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.shop.Buy(ctx, u.ID, 1); err != nil {
				t.Errorf("Buy() error = %v", err)
			}
		}()
	}
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.progression.Click(ctx, u.ID); err != nil {
				t.Errorf("Click() error = %v", err)
			}
		}()
	}
	wg.Wait()

	p, _ := env.progression.Get(ctx, u.ID)
	inv, _ := env.shop.Inventory(ctx, u.ID)

	if len(inv) != 1 || inv[0].Quantity != buys {
		t.Fatalf("inventory = %+v, want %d of item 1", inv, buys)
	}
	if p.TotalClickValue != 1+buys*5 {
		t.Errorf("TotalClickValue = %d, want %d", p.TotalClickValue, 1+buys*5)
	}
	// every click earned between 1 and 26; every buy cost 100
	minClicks := int64(1000 - buys*100 + clicks*1)
	maxClicks := int64(1000 - buys*100 + clicks*(1+buys*5))
	if p.ClickCount < minClicks || p.ClickCount > maxClicks {
		t.Errorf("ClickCount = %d, want within [%d, %d]", p.ClickCount, minClicks, maxClicks)
	}
}

func TestBuy_DuringSeedSeesOldOrNewCatalog(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seed(t, env)
	u := env.newPlayer(t, "alice")
	env.setBalance(t, u.ID, 100000, 1)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = env.shop.Seed(ctx)
		}()
		go func() {
			defer wg.Done()
			_, err := env.shop.Buy(ctx, u.ID, 1)
			if err != nil {
				t.Errorf("Buy() during seed error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := env.source.callCount(); got != 11 {
		t.Errorf("source fetched %d times, want 11", got)
	}

	// every purchase either landed before a seed (and was cleared) or after
	inv, _ := env.shop.Inventory(ctx, u.ID)
	if len(inv) > 1 {
		t.Errorf("inventory = %+v, want at most item 1", inv)
	}
}

func TestInventory_Empty(t *testing.T) {
	env := newTestEnv(t)
	u := env.newPlayer(t, "alice")

	inv, err := env.shop.Inventory(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("Inventory() error = %v", err)
	}
	if len(inv) != 0 {
		t.Errorf("Inventory() = %+v, want empty", inv)
	}
}
