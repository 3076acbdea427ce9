package portfolio

import (
	"vstocks/internal/lots"
	"vstocks/internal/model"
	"vstocks/internal/trading"

	"github.com/shopspring/decimal"
)

// PositionView is one open position priced for display.
type PositionView struct {
	Position      model.Position  `json:"position"`
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	PriceStale    bool            `json:"price_stale"`
	InvestedValue decimal.Decimal `json:"invested_value"`
	CurrentValue  decimal.Decimal `json:"current_value"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	TotalPnL      decimal.Decimal `json:"total_pnl"`
}

// Summary is the account-level rollup. RealizedPnLAllTime spans every
// position ever held; RealizedPnLOpen covers only the open ones shown in
// Positions.
type Summary struct {
	Cash                decimal.Decimal `json:"cash"`
	UsedMargin          decimal.Decimal `json:"used_margin"`
	InvestedValue       decimal.Decimal `json:"invested_value"`
	CurrentValue        decimal.Decimal `json:"current_value"`
	UnrealizedPnL       decimal.Decimal `json:"unrealized_pnl"`
	RealizedPnLOpen     decimal.Decimal `json:"realized_pnl_open"`
	RealizedPnLAllTime  decimal.Decimal `json:"realized_pnl_all_time"`
	TotalFees           decimal.Decimal `json:"total_fees"`
	PortfolioValue      decimal.Decimal `json:"portfolio_value"`
	ProfitablePositions int             `json:"profitable_positions"`
	LosingPositions     int             `json:"losing_positions"`
	Positions           []PositionView  `json:"positions"`
}

// buildView prices one position. When the live price is missing the position
// is valued at its own average price, which pins unrealized P&L near zero
// rather than dropping the position from the report.
func buildView(pw trading.PositionWithLots, symbol string, price decimal.Decimal, stale bool) PositionView {
	p := pw.Position
	if stale {
		price = p.AvgPrice
	}
	unrealized := lots.UnrealizedPnL(pw.Lots, price)
	return PositionView{
		Position:      p,
		Symbol:        symbol,
		Price:         price,
		PriceStale:    stale,
		InvestedValue: p.AvgPrice.Mul(p.Qty),
		CurrentValue:  price.Mul(p.Qty),
		UnrealizedPnL: unrealized,
		TotalPnL:      p.RealizedPnL.Add(unrealized),
	}
}

// buildSummary rolls the priced views up into account totals.
func buildSummary(acct model.Account, views []PositionView, realizedAllTime, totalFees decimal.Decimal) Summary {
	s := Summary{
		Cash:               acct.Cash,
		UsedMargin:         acct.UsedMargin,
		InvestedValue:      decimal.Zero,
		CurrentValue:       decimal.Zero,
		UnrealizedPnL:      decimal.Zero,
		RealizedPnLOpen:    decimal.Zero,
		RealizedPnLAllTime: realizedAllTime,
		TotalFees:          totalFees,
		Positions:          views,
	}
	for _, v := range views {
		s.InvestedValue = s.InvestedValue.Add(v.InvestedValue)
		s.CurrentValue = s.CurrentValue.Add(v.CurrentValue)
		s.UnrealizedPnL = s.UnrealizedPnL.Add(v.UnrealizedPnL)
		s.RealizedPnLOpen = s.RealizedPnLOpen.Add(v.Position.RealizedPnL)
		switch {
		case v.TotalPnL.IsPositive():
			s.ProfitablePositions++
		case v.TotalPnL.IsNegative():
			s.LosingPositions++
		}
	}
	s.PortfolioValue = acct.Cash.Add(acct.UsedMargin).Add(s.CurrentValue)
	return s
}
