package trading

import (
	"context"
	"errors"
	"time"

	"vstocks/internal/lots"
	"vstocks/internal/model"
	"vstocks/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const positionColumns = "id, account_id, instrument_id, product, qty, avg_price, realized_pnl, is_open, square_off_at, created_at, closed_at"

func scanPosition(row pgx.Row) (model.Position, error) {
	var p model.Position
	var product string
	err := row.Scan(&p.ID, &p.AccountID, &p.InstrumentID, &product, &p.Qty, &p.AvgPrice,
		&p.RealizedPnL, &p.IsOpen, &p.SquareOffAt, &p.CreatedAt, &p.ClosedAt)
	if err != nil {
		return p, err
	}
	p.Product = types.Product(product)
	return p, nil
}

// GetOpenPositionForUpdate row-locks the open position for the (account,
// instrument, product) triple. pgx.ErrNoRows is passed through for the caller
// to interpret (create on buy, PositionNotFound on sell).
func (s *Store) GetOpenPositionForUpdate(ctx context.Context, tx pgx.Tx, accountID, instrumentID string, product types.Product) (model.Position, error) {
	return scanPosition(tx.QueryRow(ctx,
		"select "+positionColumns+" from positions where account_id = $1 and instrument_id = $2 and product = $3 and is_open for update",
		accountID, instrumentID, string(product)))
}

func (s *Store) GetPositionForUpdate(ctx context.Context, tx pgx.Tx, positionID string) (model.Position, error) {
	return scanPosition(tx.QueryRow(ctx,
		"select "+positionColumns+" from positions where id = $1 for update", positionID))
}

// GetPosition is the non-locking read used before a square-off attempt to
// resolve the instrument and price without holding the row.
func (s *Store) GetPosition(ctx context.Context, positionID string) (model.Position, error) {
	return scanPosition(s.pool.QueryRow(ctx,
		"select "+positionColumns+" from positions where id = $1", positionID))
}

func (s *Store) CreatePosition(ctx context.Context, tx pgx.Tx, accountID, instrumentID string, product types.Product) (model.Position, error) {
	return scanPosition(tx.QueryRow(ctx,
		"insert into positions (account_id, instrument_id, product, qty, avg_price, realized_pnl, is_open, created_at) values ($1, $2, $3, 0, 0, 0, true, $4) returning "+positionColumns,
		accountID, instrumentID, string(product), time.Now().UTC()))
}

func (s *Store) UpdatePosition(ctx context.Context, tx pgx.Tx, p model.Position) error {
	_, err := tx.Exec(ctx,
		"update positions set qty = $1, avg_price = $2, realized_pnl = $3, is_open = $4, closed_at = $5 where id = $6",
		p.Qty, p.AvgPrice, p.RealizedPnL, p.IsOpen, p.ClosedAt, p.ID)
	return err
}

func (s *Store) InsertLot(ctx context.Context, tx pgx.Tx, positionID string, qty, price decimal.Decimal) (string, error) {
	var id string
	err := tx.QueryRow(ctx,
		"insert into lots (position_id, total_qty, remaining_qty, buy_price, created_at) values ($1, $2, $2, $3, $4) returning id",
		positionID, qty, price, time.Now().UTC()).Scan(&id)
	return id, err
}

// OpenLotsForUpdate loads the position's unconsumed lots oldest first, locked
// for the duration of the transaction. FIFO order is created_at with id as
// the tiebreak for fills landing in the same instant.
func (s *Store) OpenLotsForUpdate(ctx context.Context, tx pgx.Tx, positionID string) ([]model.Lot, error) {
	rows, err := tx.Query(ctx,
		"select id, position_id, total_qty, remaining_qty, buy_price, created_at from lots where position_id = $1 and remaining_qty > 0 order by created_at asc, id asc for update",
		positionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Lot
	for rows.Next() {
		var l model.Lot
		if err := rows.Scan(&l.ID, &l.PositionID, &l.TotalQty, &l.RemainingQty, &l.BuyPrice, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ApplyConsumptions decrements matched lots. Exhausted lots are kept at
// remaining_qty = 0 for audit.
func (s *Store) ApplyConsumptions(ctx context.Context, tx pgx.Tx, consumed []lots.Consumption) error {
	for _, c := range consumed {
		if _, err := tx.Exec(ctx, "update lots set remaining_qty = $1 where id = $2", c.NewRemaining, c.LotID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) InsertTransaction(ctx context.Context, tx pgx.Tx, t model.Transaction) (string, error) {
	var id string
	err := tx.QueryRow(ctx,
		"insert into transactions (account_id, position_id, instrument_id, side, product, qty, price, limit_price, fees, realized_pnl, forced, client_ref, created_at) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13) returning id",
		t.AccountID, t.PositionID, t.InstrumentID, string(t.Side), string(t.Product), t.Qty, t.Price,
		t.LimitPrice, t.Fees, t.RealizedPnL, t.Forced, t.ClientRef, time.Now().UTC()).Scan(&id)
	return id, err
}

// PositionWithLots pairs an open position with its unconsumed lots.
type PositionWithLots struct {
	Position model.Position `json:"position"`
	Lots     []model.Lot    `json:"lots"`
}

// ListOpenPositions returns the account's open positions with their
// non-exhausted lots, optionally filtered by product.
func (s *Store) ListOpenPositions(ctx context.Context, accountID string, product types.Product) ([]PositionWithLots, error) {
	rows, err := s.pool.Query(ctx,
		"select "+positionColumns+" from positions where account_id = $1 and is_open and ($2 = '' or product = $2) order by created_at asc",
		accountID, string(product))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PositionWithLots
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, PositionWithLots{Position: p})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		lotRows, err := s.pool.Query(ctx,
			"select id, position_id, total_qty, remaining_qty, buy_price, created_at from lots where position_id = $1 and remaining_qty > 0 order by created_at asc, id asc",
			out[i].Position.ID)
		if err != nil {
			return nil, err
		}
		for lotRows.Next() {
			var l model.Lot
			if err := lotRows.Scan(&l.ID, &l.PositionID, &l.TotalQty, &l.RemainingQty, &l.BuyPrice, &l.CreatedAt); err != nil {
				lotRows.Close()
				return nil, err
			}
			out[i].Lots = append(out[i].Lots, l)
		}
		lotRows.Close()
		if err := lotRows.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// RealizedTotals returns the account's all-time realized P&L (open and closed
// positions) and total fees ever paid.
func (s *Store) RealizedTotals(ctx context.Context, accountID string) (realized, fees decimal.Decimal, err error) {
	err = s.pool.QueryRow(ctx,
		"select coalesce((select sum(realized_pnl) from positions where account_id = $1), 0), coalesce((select sum(fees) from transactions where account_id = $1), 0)",
		accountID).Scan(&realized, &fees)
	return realized, fees, err
}

// ListTransactions pages the account's transaction ledger, newest first.
func (s *Store) ListTransactions(ctx context.Context, accountID string, before *time.Time, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := s.pool.Query(ctx,
		"select id, account_id, position_id, instrument_id, side, product, qty, price, limit_price, fees, realized_pnl, forced, client_ref, created_at from transactions where account_id = $1 and ($2::timestamptz is null or created_at < $2) order by created_at desc, id desc limit $3",
		accountID, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var side, product string
		if err := rows.Scan(&t.ID, &t.AccountID, &t.PositionID, &t.InstrumentID, &side, &product,
			&t.Qty, &t.Price, &t.LimitPrice, &t.Fees, &t.RealizedPnL, &t.Forced, &t.ClientRef, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Side = types.Side(side)
		t.Product = types.Product(product)
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetSquareOffAt records when the scheduler must close an intraday position.
// Runs outside the order transaction: registration is best-effort.
func (s *Store) SetSquareOffAt(ctx context.Context, positionID string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		"update positions set square_off_at = $1 where id = $2 and is_open", at.UTC(), positionID)
	return err
}

// SquareOffCandidate is one open intraday position the sweep may need to
// close. SquareOffAt is nil when the registration write was lost.
type SquareOffCandidate struct {
	PositionID  string
	SquareOffAt *time.Time
	CreatedAt   time.Time
}

// SquareOffCandidates returns open MIS positions that are due (or whose
// registration is missing) as of now.
func (s *Store) SquareOffCandidates(ctx context.Context, now time.Time) ([]SquareOffCandidate, error) {
	rows, err := s.pool.Query(ctx,
		"select id, square_off_at, created_at from positions where product = 'mis' and is_open and (square_off_at is null or square_off_at <= $1) order by created_at asc",
		now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SquareOffCandidate
	for rows.Next() {
		var c SquareOffCandidate
		if err := rows.Scan(&c.PositionID, &c.SquareOffAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ErrNoRows reports whether err is the store's not-found condition.
func ErrNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
