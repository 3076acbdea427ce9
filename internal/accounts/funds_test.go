package accounts

import (
	"testing"

	"vstocks/internal/lots"
	"vstocks/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBuyCNC(t *testing.T) {
	f := Funds{Cash: d("1000")}

	out, margin, err := f.Buy(types.ProductCNC, d("500"), d("0.5"), d("1"))
	require.NoError(t, err)
	assert.True(t, d("499.5").Equal(out.Cash))
	assert.True(t, out.UsedMargin.IsZero())
	assert.True(t, margin.IsZero())
}

func TestBuyCNCInsufficient(t *testing.T) {
	f := Funds{Cash: d("500")}

	_, _, err := f.Buy(types.ProductCNC, d("500"), d("0.5"), d("1"))
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestBuyMISLocksMargin(t *testing.T) {
	// 10 units of a 5x instrument at 100: margin = 1000/5 = 200
	f := Funds{Cash: d("1000")}

	out, margin, err := f.Buy(types.ProductMIS, d("1000"), d("0.5"), d("5"))
	require.NoError(t, err)
	assert.True(t, d("200").Equal(margin))
	assert.True(t, d("799.5").Equal(out.Cash))
	assert.True(t, d("200").Equal(out.UsedMargin))
}

func TestBuyMISInsufficient(t *testing.T) {
	f := Funds{Cash: d("200")}

	_, _, err := f.Buy(types.ProductMIS, d("1000"), d("0.5"), d("5"))
	require.ErrorIs(t, err, ErrInsufficientMargin)
	require.NotErrorIs(t, err, ErrInsufficientFunds)
}

func TestSellCNC(t *testing.T) {
	f := Funds{Cash: d("499.5")}

	out := f.Sell(types.ProductCNC, d("550"), d("0.55"), decimal.Zero)
	assert.True(t, d("1048.95").Equal(out.Cash))
}

func TestSellMISReleasesBuyTimeMargin(t *testing.T) {
	f := Funds{Cash: d("799.5"), UsedMargin: d("200")}

	// margin releases at the lots' original buy price regardless of exec price
	consumed := []lots.Consumption{{BuyPrice: d("100"), Qty: d("10")}}
	released := ReleasedMargin(consumed, d("5"))
	assert.True(t, d("200").Equal(released))

	out := f.Sell(types.ProductMIS, d("1300"), d("0.65"), released)
	assert.True(t, out.UsedMargin.IsZero())
	assert.True(t, d("799.5").Add(d("1299.35")).Equal(out.Cash))
}

func TestReleasedMarginPerLot(t *testing.T) {
	consumed := []lots.Consumption{
		{BuyPrice: d("100"), Qty: d("10")},
		{BuyPrice: d("120"), Qty: d("5")},
	}
	// 1000/5 + 600/5 = 320
	assert.True(t, d("320").Equal(ReleasedMargin(consumed, d("5"))))
}

func TestRefValidate(t *testing.T) {
	require.NoError(t, MainRef("u1").Validate())
	require.NoError(t, EventRef("u1", "e1").Validate())
	require.Error(t, MainRef("").Validate())
	require.Error(t, Ref{UserID: "u1", Kind: types.AccountEvent}.Validate())
	require.Error(t, Ref{UserID: "u1", Kind: "demo"}.Validate())
}
