//go:build integration

package trading

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"vstocks/internal/accounts"
	"vstocks/internal/db"
	"vstocks/internal/instruments"
	"vstocks/internal/metrics"
	"vstocks/internal/model"
	"vstocks/internal/types"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// These tests need a Postgres with the db/migrations schema applied:
//
//	TEST_DB_DSN=postgres://... go test -tags integration ./internal/trading

type staticPrice struct {
	p decimal.Decimal
}

func (s staticPrice) LastPrice(context.Context, model.Instrument) (decimal.Decimal, error) {
	return s.p, nil
}

func testService(t *testing.T) (*Service, *pgxpool.Pool, *metrics.Metrics) {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, "truncate transactions, lots, positions, accounts, instruments cascade")
	require.NoError(t, err)
	_, err = pool.Exec(ctx,
		"insert into instruments (exchange, symbol, kind, segment, lot_size, tick_size, leverage) values ('NSE', 'RELIANCE', 'equity', 'cash', 1, 0.05, 5)")
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)
	met := metrics.New()
	svc := NewService(pool, NewStore(pool), instruments.NewStore(pool),
		staticPrice{p: d("100")}, accounts.NewService(pool, d("100000")),
		met, logrus.NewEntry(log))
	return svc, pool, met
}

func TestForceSquareOffIdempotent(t *testing.T) {
	svc, pool, met := testService(t)
	ctx := context.Background()

	res, err := svc.PlaceOrder(ctx, OrderInput{
		Ref:      accounts.MainRef("u1"),
		Exchange: "NSE",
		Symbol:   "RELIANCE",
		Side:     types.SideBuy,
		Product:  types.ProductMIS,
		Qty:      d("10"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.ForceSquareOff(ctx, res.PositionID))

	var isOpen bool
	var cashAfter decimal.Decimal
	require.NoError(t, pool.QueryRow(ctx, "select is_open from positions where id = $1", res.PositionID).Scan(&isOpen))
	require.False(t, isOpen)
	require.NoError(t, pool.QueryRow(ctx, "select cash from accounts where user_id = 'u1'").Scan(&cashAfter))
	var txnCount int
	require.NoError(t, pool.QueryRow(ctx, "select count(*) from transactions").Scan(&txnCount))
	require.Equal(t, 2, txnCount)

	// closing again must not touch the books
	require.NoError(t, svc.ForceSquareOff(ctx, res.PositionID))

	var cashAgain decimal.Decimal
	require.NoError(t, pool.QueryRow(ctx, "select cash from accounts where user_id = 'u1'").Scan(&cashAgain))
	require.True(t, cashAfter.Equal(cashAgain))
	require.NoError(t, pool.QueryRow(ctx, "select count(*) from transactions").Scan(&txnCount))
	require.Equal(t, 2, txnCount)

	require.Equal(t, 1.0, testutil.ToFloat64(met.SquareOffsTotal.WithLabelValues("closed")))
	require.Equal(t, 1.0, testutil.ToFloat64(met.SquareOffsTotal.WithLabelValues("noop")))
}

func TestConcurrentBuysSerialize(t *testing.T) {
	svc, pool, _ := testService(t)
	ctx := context.Background()

	place := func(qty string) error {
		var err error
		for range 10 {
			_, err = svc.PlaceOrder(ctx, OrderInput{
				Ref:      accounts.MainRef("u1"),
				Exchange: "NSE",
				Symbol:   "RELIANCE",
				Side:     types.SideBuy,
				Product:  types.ProductCNC,
				Qty:      d(qty),
			})
			if !errors.Is(err, ErrConcurrencyConflict) {
				return err
			}
		}
		return err
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, qty := range []string{"10", "20"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = place(qty)
		}()
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	var openCount int
	var qty, avg decimal.Decimal
	require.NoError(t, pool.QueryRow(ctx, "select count(*) from positions where is_open").Scan(&openCount))
	require.Equal(t, 1, openCount)
	require.NoError(t, pool.QueryRow(ctx, "select qty, avg_price from positions where is_open").Scan(&qty, &avg))
	require.True(t, d("30").Equal(qty))
	require.True(t, d("100").Equal(avg))

	// both debits landed exactly once: 100000 - 1001 - 2002
	var cash decimal.Decimal
	require.NoError(t, pool.QueryRow(ctx, "select cash from accounts where user_id = 'u1'").Scan(&cash))
	require.True(t, d("96997").Equal(cash))
}
