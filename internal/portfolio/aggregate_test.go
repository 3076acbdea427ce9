package portfolio

import (
	"testing"

	"vstocks/internal/model"
	"vstocks/internal/trading"
	"vstocks/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func holding(qty, avg, realized string, lotSpecs ...[2]string) trading.PositionWithLots {
	pw := trading.PositionWithLots{
		Position: model.Position{
			ID:          "pos-1",
			Product:     types.ProductCNC,
			Qty:         d(qty),
			AvgPrice:    d(avg),
			RealizedPnL: d(realized),
			IsOpen:      true,
		},
	}
	for _, spec := range lotSpecs {
		pw.Lots = append(pw.Lots, model.Lot{
			TotalQty:     d(spec[0]),
			RemainingQty: d(spec[0]),
			BuyPrice:     d(spec[1]),
		})
	}
	return pw
}

func TestBuildView(t *testing.T) {
	pw := holding("10", "100", "25", [2]string{"10", "100"})

	v := buildView(pw, "TCS", d("110"), false)
	require.Equal(t, "TCS", v.Symbol)
	require.False(t, v.PriceStale)
	require.True(t, d("1000").Equal(v.InvestedValue))
	require.True(t, d("1100").Equal(v.CurrentValue))
	require.True(t, d("100").Equal(v.UnrealizedPnL))
	require.True(t, d("125").Equal(v.TotalPnL))
}

func TestBuildViewFallsBackToAveragePrice(t *testing.T) {
	pw := holding("10", "100", "0", [2]string{"10", "100"})

	v := buildView(pw, "TCS", decimal.Zero, true)
	require.True(t, v.PriceStale)
	require.True(t, d("100").Equal(v.Price))
	require.True(t, v.UnrealizedPnL.IsZero())
	require.True(t, d("1000").Equal(v.CurrentValue))
}

func TestBuildViewMixedLots(t *testing.T) {
	pw := holding("15", "113.3333", "0", [2]string{"10", "100"}, [2]string{"5", "140"})

	v := buildView(pw, "INFY", d("120"), false)
	// (120-100)*10 + (120-140)*5
	require.True(t, d("100").Equal(v.UnrealizedPnL))
}

func TestBuildSummaryRollup(t *testing.T) {
	acct := model.Account{Cash: d("5000"), UsedMargin: d("1000")}
	views := []PositionView{
		{InvestedValue: d("1000"), CurrentValue: d("1100"), UnrealizedPnL: d("100"), TotalPnL: d("100"), Position: model.Position{RealizedPnL: d("0")}},
		{InvestedValue: d("2000"), CurrentValue: d("1900"), UnrealizedPnL: d("-100"), TotalPnL: d("-50"), Position: model.Position{RealizedPnL: d("50")}},
	}

	s := buildSummary(acct, views, d("320"), d("14.5"))
	require.True(t, d("3000").Equal(s.InvestedValue))
	require.True(t, d("3000").Equal(s.CurrentValue))
	require.True(t, s.UnrealizedPnL.IsZero())
	require.True(t, d("50").Equal(s.RealizedPnLOpen))
	require.True(t, d("320").Equal(s.RealizedPnLAllTime))
	require.True(t, d("14.5").Equal(s.TotalFees))
	// cash + used margin + holdings
	require.True(t, d("9000").Equal(s.PortfolioValue))
	require.Equal(t, 1, s.ProfitablePositions)
	require.Equal(t, 1, s.LosingPositions)
}

func TestBuildSummaryEmptyAccount(t *testing.T) {
	acct := model.Account{Cash: d("100000")}

	s := buildSummary(acct, nil, decimal.Zero, decimal.Zero)
	require.True(t, d("100000").Equal(s.PortfolioValue))
	require.Zero(t, s.ProfitablePositions)
	require.Zero(t, s.LosingPositions)
}
