package trading

import (
	"vstocks/internal/types"

	"github.com/shopspring/decimal"
)

// Brokerage schedule: rate on order value per product, plus a flat charge on
// derivatives orders.
var (
	feeRateMIS         = decimal.RequireFromString("0.0005")
	feeRateCNC         = decimal.RequireFromString("0.001")
	flatFeeDerivatives = decimal.NewFromInt(20)
)

// Fees computes the charge for one order of the given value.
func Fees(segment types.Segment, product types.Product, orderValue decimal.Decimal) decimal.Decimal {
	rate := feeRateCNC
	if product == types.ProductMIS {
		rate = feeRateMIS
	}
	fees := orderValue.Mul(rate)
	if segment == types.SegmentDerivatives {
		fees = fees.Add(flatFeeDerivatives)
	}
	return fees
}
