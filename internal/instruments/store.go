package instruments

import (
	"context"
	"errors"

	"vstocks/internal/model"
	"vstocks/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("instrument not found")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const instrumentColumns = "id, exchange, symbol, kind, segment, lot_size, tick_size, leverage, buy_allowed, sell_allowed, expiry, strike"

func scanInstrument(row pgx.Row) (model.Instrument, error) {
	var in model.Instrument
	var kind, segment string
	err := row.Scan(&in.ID, &in.Exchange, &in.Symbol, &kind, &segment, &in.LotSize,
		&in.TickSize, &in.Leverage, &in.BuyAllowed, &in.SellAllowed, &in.Expiry, &in.Strike)
	if err != nil {
		return in, err
	}
	in.Kind = types.InstrumentKind(kind)
	in.Segment = types.Segment(segment)
	return in, nil
}

func (s *Store) GetBySymbol(ctx context.Context, exchange, symbol string) (model.Instrument, error) {
	in, err := scanInstrument(s.pool.QueryRow(ctx,
		"select "+instrumentColumns+" from instruments where exchange = $1 and symbol = $2",
		exchange, symbol))
	if errors.Is(err, pgx.ErrNoRows) {
		return in, ErrNotFound
	}
	return in, err
}

func (s *Store) GetByID(ctx context.Context, id string) (model.Instrument, error) {
	in, err := scanInstrument(s.pool.QueryRow(ctx,
		"select "+instrumentColumns+" from instruments where id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return in, ErrNotFound
	}
	return in, err
}

// ListTradable returns the instruments the quote publisher streams.
func (s *Store) ListTradable(ctx context.Context) ([]model.Instrument, error) {
	rows, err := s.pool.Query(ctx,
		"select "+instrumentColumns+" from instruments where buy_allowed or sell_allowed order by exchange, symbol")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Instrument
	for rows.Next() {
		in, err := scanInstrument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}
