package accounts

import (
	"errors"

	"vstocks/internal/lots"
	"vstocks/internal/types"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientMargin = errors.New("insufficient margin")
)

// Funds is an account's cash/margin pair while an order is being applied.
type Funds struct {
	Cash       decimal.Decimal
	UsedMargin decimal.Decimal
}

// Buy debits funds for a buy and returns the margin locked (zero for CNC).
// CNC debits the full order value plus fees; MIS debits only the margin
// (orderValue / leverage) plus fees and locks that margin. Available funds are
// always just Cash: margin was already removed from cash at buy time.
func (f Funds) Buy(product types.Product, orderValue, fees, leverage decimal.Decimal) (Funds, decimal.Decimal, error) {
	switch product {
	case types.ProductMIS:
		margin := orderValue.Div(leverage)
		need := margin.Add(fees)
		if f.Cash.LessThan(need) {
			return f, decimal.Zero, ErrInsufficientMargin
		}
		f.Cash = f.Cash.Sub(need)
		f.UsedMargin = f.UsedMargin.Add(margin)
		return f, margin, nil
	default:
		need := orderValue.Add(fees)
		if f.Cash.LessThan(need) {
			return f, decimal.Zero, ErrInsufficientFunds
		}
		f.Cash = f.Cash.Sub(need)
		return f, decimal.Zero, nil
	}
}

// Sell credits proceeds and, for MIS, releases releasedMargin from UsedMargin.
func (f Funds) Sell(product types.Product, orderValue, fees, releasedMargin decimal.Decimal) Funds {
	f.Cash = f.Cash.Add(orderValue.Sub(fees))
	if product == types.ProductMIS {
		f.UsedMargin = f.UsedMargin.Sub(releasedMargin)
		if f.UsedMargin.IsNegative() {
			f.UsedMargin = decimal.Zero
		}
	}
	return f
}

// ReleasedMargin computes the margin released by a MIS sell: each consumed
// slice releases at its lot's original buy price over leverage, never at the
// execution price.
func ReleasedMargin(consumed []lots.Consumption, leverage decimal.Decimal) decimal.Decimal {
	var released decimal.Decimal
	for _, c := range consumed {
		released = released.Add(c.BuyPrice.Mul(c.Qty).Div(leverage))
	}
	return released
}
