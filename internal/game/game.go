// Package game holds the progression and economy rules.
//
// Everything here is pure: functions take a *model.Progression (and maybe an
// item) and either mutate it or return an apperror. No I/O, no locking, no
// clocks. The service layer decides WHEN a rule runs and inside which
// transaction; this package only decides WHAT the rule does.
//
// Keeping the rules free of storage concerns means every invariant below can be
// tested with plain structs:
//
//	clickCount      >= 0
//	totalClickValue >= 0
//	multiplier      >= 1, changes only through Reset (+1)
//	bestScore       >= 0, never decreases
package game

import (
	"fmt"
	"math"

	"github.com/sakif/idle-clicker/internal/apperror"
	"github.com/sakif/idle-clicker/internal/model"
)

const (
	// BaseResetCost is the cost of the first reset (multiplier 1).
	BaseResetCost = 100
	// ResetGrowthFactor scales the cost of every subsequent reset.
	ResetGrowthFactor = 1.5
	// BaselineClickValue is the per-click value of a fresh progression, so a
	// player can earn before owning any item.
	BaselineClickValue = 1
)

// ResetCost returns floor(BaseResetCost * ResetGrowthFactor^(multiplier-1)).
//
// The power is computed in float64 and floored toward zero, not rounded:
// m=1→100, m=2→150, m=3→225, m=4→337, m=5→506.
// Multipliers below 1 are treated as 1. Costs beyond int64 clamp to MaxInt64,
// which no balance can ever reach, so the reset simply stays unaffordable.
func ResetCost(multiplier int64) int64 {
	if multiplier < 1 {
		multiplier = 1
	}
	cost := math.Floor(BaseResetCost * math.Pow(ResetGrowthFactor, float64(multiplier-1)))
	if cost >= math.MaxInt64 || math.IsInf(cost, 1) {
		return math.MaxInt64
	}
	return int64(cost)
}

// NewProgression returns the initial state for a user.
func NewProgression(userID string) *model.Progression {
	return &model.Progression{
		UserID:          userID,
		ClickCount:      0,
		TotalClickValue: BaselineClickValue,
		Multiplier:      1,
		BestScore:       0,
	}
}

// Click adds totalClickValue*multiplier to the balance and raises bestScore
// if the new balance beats it. Arithmetic saturates at MaxInt64.
func Click(p *model.Progression) model.ClickResult {
	gain := satMul(p.TotalClickValue, p.Multiplier)
	p.ClickCount = satAdd(p.ClickCount, gain)
	if p.ClickCount > p.BestScore {
		p.BestScore = p.ClickCount
	}
	return model.ClickResult{ClickCount: p.ClickCount, Multiplier: p.Multiplier}
}

// Reset trades the whole balance for one multiplier level.
//
// It returns the balance held just before the reset; that is the score that
// competes for the global record. On failure p is left untouched.
func Reset(p *model.Progression) (int64, error) {
	cost := ResetCost(p.Multiplier)
	if p.ClickCount < cost {
		return 0, apperror.InsufficientFunds(apperror.CodeInsufficientClicks,
			fmt.Sprintf("not enough clicks to reset: have %d, need %d", p.ClickCount, cost))
	}

	scored := p.ClickCount
	p.ClickCount = 0
	p.Multiplier++
	return scored, nil
}

// Purchase applies one unit of item to p. owned is how many the user already
// holds. It enforces the price and, when set, the item's quantity cap.
// On failure p is left untouched.
func Purchase(p *model.Progression, item model.Item, owned int64) error {
	if !item.Unlimited() && owned >= item.MaxQuantity {
		return apperror.InsufficientFunds(apperror.CodeMaxQuantityReached,
			fmt.Sprintf("item %d is limited to %d per player", item.ID, item.MaxQuantity))
	}
	if p.ClickCount < item.Price {
		return apperror.InsufficientFunds(apperror.CodeNotEnoughMoney,
			fmt.Sprintf("not enough clicks: have %d, item costs %d", p.ClickCount, item.Price))
	}

	p.ClickCount -= item.Price
	p.TotalClickValue = satAdd(p.TotalClickValue, item.ClickValue)
	return nil
}

func satAdd(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

func satMul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}
