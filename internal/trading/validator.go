package trading

import (
	"fmt"

	"vstocks/internal/model"
	"vstocks/internal/types"

	"github.com/shopspring/decimal"
)

// MaxOrderQty is the system-wide per-order quantity ceiling.
var MaxOrderQty = decimal.NewFromInt(10000)

const (
	ViolationQty     = "qty"
	ViolationSide    = "side"
	ViolationProduct = "product"
	ViolationPrice   = "price"
)

// ValidateOrder checks order shape against the instrument's trading rules.
// It is pure: all violations are collected and returned, none short-circuit.
func ValidateOrder(in model.Instrument, side types.Side, product types.Product, qty decimal.Decimal, price decimal.Decimal, limitPrice *decimal.Decimal) []ValidationError {
	var out []ValidationError

	if !qty.IsPositive() || !qty.IsInteger() {
		out = append(out, ValidationError{Kind: ViolationQty, Message: "qty must be a positive whole number"})
	} else {
		if qty.GreaterThan(MaxOrderQty) {
			out = append(out, ValidationError{Kind: ViolationQty, Message: fmt.Sprintf("qty exceeds the per-order limit of %s", MaxOrderQty)})
		}
		if in.LotSize.GreaterThan(decimal.NewFromInt(1)) && !qty.Mod(in.LotSize).IsZero() {
			out = append(out, ValidationError{Kind: ViolationQty, Message: fmt.Sprintf("qty must be a multiple of lot size %s", in.LotSize)})
		}
	}

	switch side {
	case types.SideBuy:
		if !in.BuyAllowed {
			out = append(out, ValidationError{Kind: ViolationSide, Message: "buying is disabled for this instrument"})
		}
	case types.SideSell:
		if !in.SellAllowed {
			out = append(out, ValidationError{Kind: ViolationSide, Message: "selling is disabled for this instrument"})
		}
	default:
		out = append(out, ValidationError{Kind: ViolationSide, Message: "side must be buy or sell"})
	}

	if !product.Valid() {
		out = append(out, ValidationError{Kind: ViolationProduct, Message: "product must be cnc or mis"})
	} else if product == types.ProductMIS && !in.Leverage.GreaterThan(decimal.NewFromInt(1)) {
		out = append(out, ValidationError{Kind: ViolationProduct, Message: "intraday is not available for this instrument"})
	}

	if !price.IsPositive() {
		out = append(out, ValidationError{Kind: ViolationPrice, Message: "price must be positive"})
	}
	if limitPrice != nil {
		if !limitPrice.IsPositive() {
			out = append(out, ValidationError{Kind: ViolationPrice, Message: "limit price must be positive"})
		} else if in.TickSize.IsPositive() && !limitPrice.Mod(in.TickSize).IsZero() {
			out = append(out, ValidationError{Kind: ViolationPrice, Message: fmt.Sprintf("limit price must be a multiple of tick size %s", in.TickSize)})
		}
	}

	return out
}
