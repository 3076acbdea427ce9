// Package lots implements FIFO lot matching and weighted-average cost basis
// for the trading ledger. Everything here is pure: callers persist the
// returned updates inside their own transaction.
package lots

import (
	"errors"

	"vstocks/internal/model"

	"github.com/shopspring/decimal"
)

var ErrInsufficientQuantity = errors.New("insufficient quantity")

// Consumption records how much of one lot a sell consumed, oldest lot first.
type Consumption struct {
	LotID        string
	BuyPrice     decimal.Decimal
	Qty          decimal.Decimal
	NewRemaining decimal.Decimal
}

type MatchResult struct {
	RealizedPnL  decimal.Decimal
	Consumptions []Consumption
}

// BuyAverage returns the position's new weighted-average price after buying
// qty at price on top of oldQty at oldAvg.
func BuyAverage(oldQty, oldAvg, qty, price decimal.Decimal) decimal.Decimal {
	total := oldQty.Add(qty)
	if !total.IsPositive() {
		return decimal.Zero
	}
	return oldQty.Mul(oldAvg).Add(qty.Mul(price)).Div(total)
}

// MatchSell walks open lots oldest first, consuming min(remaining, left) from
// each until qty is satisfied. Realized P&L for each consumed slice is
// (execPrice - lot.BuyPrice) * consumedQty. The availability check runs before
// anything is consumed; on ErrInsufficientQuantity no partial result is
// returned. The lots slice is not mutated.
func MatchSell(open []model.Lot, qty, execPrice decimal.Decimal) (MatchResult, error) {
	var res MatchResult
	var available decimal.Decimal
	for _, l := range open {
		available = available.Add(l.RemainingQty)
	}
	if available.LessThan(qty) {
		return res, ErrInsufficientQuantity
	}
	left := qty
	for _, l := range open {
		if !left.IsPositive() {
			break
		}
		if !l.RemainingQty.IsPositive() {
			continue
		}
		take := decimal.Min(l.RemainingQty, left)
		res.Consumptions = append(res.Consumptions, Consumption{
			LotID:        l.ID,
			BuyPrice:     l.BuyPrice,
			Qty:          take,
			NewRemaining: l.RemainingQty.Sub(take),
		})
		res.RealizedPnL = res.RealizedPnL.Add(execPrice.Sub(l.BuyPrice).Mul(take))
		left = left.Sub(take)
	}
	return res, nil
}

// RemainingAverage recomputes the weighted-average price of what is left after
// applying the consumptions. Lots at different prices make this differ from
// the pre-sell average, which is why the position's average is refreshed after
// every sell. Returns zero when nothing remains.
func RemainingAverage(open []model.Lot, consumed []Consumption) decimal.Decimal {
	taken := make(map[string]decimal.Decimal, len(consumed))
	for _, c := range consumed {
		taken[c.LotID] = c.Qty
	}
	var qty, value decimal.Decimal
	for _, l := range open {
		rem := l.RemainingQty.Sub(taken[l.ID])
		if !rem.IsPositive() {
			continue
		}
		qty = qty.Add(rem)
		value = value.Add(rem.Mul(l.BuyPrice))
	}
	if !qty.IsPositive() {
		return decimal.Zero
	}
	return value.Div(qty)
}

// UnrealizedPnL sums (price - lot.BuyPrice) * remaining over open lots.
func UnrealizedPnL(open []model.Lot, price decimal.Decimal) decimal.Decimal {
	var pnl decimal.Decimal
	for _, l := range open {
		if !l.RemainingQty.IsPositive() {
			continue
		}
		pnl = pnl.Add(price.Sub(l.BuyPrice).Mul(l.RemainingQty))
	}
	return pnl
}
