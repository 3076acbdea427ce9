package trading

import (
	"testing"

	"vstocks/internal/model"
	"vstocks/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func equity() model.Instrument {
	return model.Instrument{
		ID:          "in-1",
		Exchange:    "NSE",
		Symbol:      "RELIANCE",
		Kind:        types.InstrumentEquity,
		Segment:     types.SegmentCash,
		LotSize:     d("1"),
		TickSize:    d("0.05"),
		Leverage:    d("5"),
		BuyAllowed:  true,
		SellAllowed: true,
	}
}

func future() model.Instrument {
	in := equity()
	in.Symbol = "NIFTY26SEPFUT"
	in.Kind = types.InstrumentFuture
	in.Segment = types.SegmentDerivatives
	in.LotSize = d("50")
	return in
}

func kinds(vs []ValidationError) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Kind)
	}
	return out
}

func TestValidateOrderOK(t *testing.T) {
	vs := ValidateOrder(equity(), types.SideBuy, types.ProductCNC, d("10"), d("100"), nil)
	require.Empty(t, vs)
}

func TestValidateOrderQty(t *testing.T) {
	in := equity()

	vs := ValidateOrder(in, types.SideBuy, types.ProductCNC, d("0"), d("100"), nil)
	require.Equal(t, []string{ViolationQty}, kinds(vs))

	vs = ValidateOrder(in, types.SideBuy, types.ProductCNC, d("2.5"), d("100"), nil)
	require.Equal(t, []string{ViolationQty}, kinds(vs))

	vs = ValidateOrder(in, types.SideBuy, types.ProductCNC, d("10001"), d("100"), nil)
	require.Equal(t, []string{ViolationQty}, kinds(vs))
}

func TestValidateOrderLotSize(t *testing.T) {
	in := future()

	vs := ValidateOrder(in, types.SideBuy, types.ProductMIS, d("75"), d("100"), nil)
	require.Equal(t, []string{ViolationQty}, kinds(vs))

	vs = ValidateOrder(in, types.SideBuy, types.ProductMIS, d("100"), d("100"), nil)
	require.Empty(t, vs)
}

func TestValidateOrderSideFlags(t *testing.T) {
	in := equity()
	in.SellAllowed = false

	vs := ValidateOrder(in, types.SideSell, types.ProductCNC, d("1"), d("100"), nil)
	require.Equal(t, []string{ViolationSide}, kinds(vs))

	vs = ValidateOrder(in, types.Side("short"), types.ProductCNC, d("1"), d("100"), nil)
	require.Equal(t, []string{ViolationSide}, kinds(vs))
}

func TestValidateOrderProduct(t *testing.T) {
	in := equity()
	in.Leverage = d("1")

	vs := ValidateOrder(in, types.SideBuy, types.ProductMIS, d("1"), d("100"), nil)
	require.Equal(t, []string{ViolationProduct}, kinds(vs))

	vs = ValidateOrder(in, types.SideBuy, types.Product("nrml"), d("1"), d("100"), nil)
	require.Equal(t, []string{ViolationProduct}, kinds(vs))
}

func TestValidateOrderLimitTickSize(t *testing.T) {
	in := equity()
	lp := d("100.02")

	vs := ValidateOrder(in, types.SideBuy, types.ProductCNC, d("1"), d("100"), &lp)
	require.Equal(t, []string{ViolationPrice}, kinds(vs))

	lp = d("100.05")
	vs = ValidateOrder(in, types.SideBuy, types.ProductCNC, d("1"), d("100"), &lp)
	require.Empty(t, vs)
}

func TestValidateOrderCollectsAllViolations(t *testing.T) {
	in := equity()
	in.BuyAllowed = false
	lp := d("-5")

	vs := ValidateOrder(in, types.SideBuy, types.Product("x"), d("-1"), d("0"), &lp)
	require.ElementsMatch(t,
		[]string{ViolationQty, ViolationSide, ViolationProduct, ViolationPrice, ViolationPrice},
		kinds(vs))
}
