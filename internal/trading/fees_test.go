package trading

import (
	"testing"

	"vstocks/internal/types"

	"github.com/stretchr/testify/require"
)

func TestFeesCashSegment(t *testing.T) {
	require.True(t, d("0.5").Equal(Fees(types.SegmentCash, types.ProductCNC, d("500"))))
	require.True(t, d("0.25").Equal(Fees(types.SegmentCash, types.ProductMIS, d("500"))))
}

func TestFeesDerivativesFlatFee(t *testing.T) {
	require.True(t, d("20.5").Equal(Fees(types.SegmentDerivatives, types.ProductCNC, d("500"))))
	require.True(t, d("20.25").Equal(Fees(types.SegmentDerivatives, types.ProductMIS, d("500"))))
}

// Walks the sample day from the product notes: a cash account of 1000 buys 5
// shares at 100 delivery style, then sells them all at 110.
func TestCashRoundTrip(t *testing.T) {
	price := d("100")
	qty := d("5")
	orderValue := price.Mul(qty)

	buyFees := Fees(types.SegmentCash, types.ProductCNC, orderValue)
	require.True(t, d("0.5").Equal(buyFees))
	cash := d("1000").Sub(orderValue).Sub(buyFees)
	require.True(t, d("499.5").Equal(cash))

	sellValue := d("110").Mul(qty)
	sellFees := Fees(types.SegmentCash, types.ProductCNC, sellValue)
	require.True(t, d("0.55").Equal(sellFees))
	cash = cash.Add(sellValue).Sub(sellFees)
	require.True(t, d("1048.95").Equal(cash))
}
