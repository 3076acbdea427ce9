package model

import (
	"time"

	"vstocks/internal/types"

	"github.com/shopspring/decimal"
)

// Instrument is immutable reference data synced from the exchange feed.
type Instrument struct {
	ID          string               `json:"id"`
	Exchange    string               `json:"exchange"`
	Symbol      string               `json:"symbol"`
	Kind        types.InstrumentKind `json:"kind"`
	Segment     types.Segment        `json:"segment"`
	LotSize     decimal.Decimal      `json:"lot_size"`
	TickSize    decimal.Decimal      `json:"tick_size"`
	Leverage    decimal.Decimal      `json:"leverage"`
	BuyAllowed  bool                 `json:"buy_allowed"`
	SellAllowed bool                 `json:"sell_allowed"`
	Expiry      *time.Time           `json:"expiry,omitempty"`
	Strike      *decimal.Decimal     `json:"strike,omitempty"`
}

type Account struct {
	ID         string            `json:"id"`
	Kind       types.AccountKind `json:"kind"`
	UserID     string            `json:"user_id"`
	EventID    *string           `json:"event_id,omitempty"`
	Cash       decimal.Decimal   `json:"cash"`
	UsedMargin decimal.Decimal   `json:"used_margin"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Position is the open/closed holding for one (account, instrument, product)
// triple. A closed position is immutable history; a later buy on the same
// triple opens a fresh row.
type Position struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"account_id"`
	InstrumentID string          `json:"instrument_id"`
	Product      types.Product   `json:"product"`
	Qty          decimal.Decimal `json:"qty"`
	AvgPrice     decimal.Decimal `json:"avg_price"`
	RealizedPnL  decimal.Decimal `json:"realized_pnl"`
	IsOpen       bool            `json:"is_open"`
	SquareOffAt  *time.Time      `json:"square_off_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	ClosedAt     *time.Time      `json:"closed_at,omitempty"`
}

// Lot is one buy fill. RemainingQty is only ever decremented; exhausted lots
// are kept for audit.
type Lot struct {
	ID           string          `json:"id"`
	PositionID   string          `json:"position_id"`
	TotalQty     decimal.Decimal `json:"total_qty"`
	RemainingQty decimal.Decimal `json:"remaining_qty"`
	BuyPrice     decimal.Decimal `json:"buy_price"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Transaction is the append-only record of one executed order.
type Transaction struct {
	ID           string           `json:"id"`
	AccountID    string           `json:"account_id"`
	PositionID   string           `json:"position_id"`
	InstrumentID string           `json:"instrument_id"`
	Side         types.Side       `json:"side"`
	Product      types.Product    `json:"product"`
	Qty          decimal.Decimal  `json:"qty"`
	Price        decimal.Decimal  `json:"price"`
	LimitPrice   *decimal.Decimal `json:"limit_price,omitempty"`
	Fees         decimal.Decimal  `json:"fees"`
	RealizedPnL  *decimal.Decimal `json:"realized_pnl,omitempty"`
	Forced       bool             `json:"forced"`
	ClientRef    string           `json:"client_ref,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}
