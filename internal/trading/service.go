package trading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vstocks/internal/accounts"
	"vstocks/internal/instruments"
	"vstocks/internal/lots"
	"vstocks/internal/metrics"
	"vstocks/internal/model"
	"vstocks/internal/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PriceSource yields the current traded price for an instrument. In
// production this is the price cache backed by the quote gateway.
type PriceSource interface {
	LastPrice(ctx context.Context, in model.Instrument) (decimal.Decimal, error)
}

// Registrar is notified after a committed intraday buy so the position gets a
// square-off deadline. Registration is best-effort; the recovery sweep picks
// up anything the registrar missed.
type Registrar interface {
	Register(positionID string, openedAt time.Time)
}

type Service struct {
	pool        *pgxpool.Pool
	store       *Store
	instruments *instruments.Store
	prices      PriceSource
	accounts    *accounts.Service
	met         *metrics.Metrics
	log         *logrus.Entry

	registrar Registrar
}

func NewService(pool *pgxpool.Pool, store *Store, instr *instruments.Store, prices PriceSource, accts *accounts.Service, met *metrics.Metrics, log *logrus.Entry) *Service {
	return &Service{
		pool:        pool,
		store:       store,
		instruments: instr,
		prices:      prices,
		accounts:    accts,
		met:         met,
		log:         log,
	}
}

// SetRegistrar wires the square-off scheduler in after construction. The
// scheduler itself calls back into ForceSquareOff.
func (s *Service) SetRegistrar(r Registrar) {
	s.registrar = r
}

type OrderInput struct {
	Ref        accounts.Ref
	Exchange   string
	Symbol     string
	Side       types.Side
	Product    types.Product
	Qty        decimal.Decimal
	LimitPrice *decimal.Decimal
	ClientRef  string
}

type OrderResult struct {
	TransactionID string           `json:"transactionId"`
	PositionID    string           `json:"positionId"`
	ExecutedPrice decimal.Decimal  `json:"executedPrice"`
	ExecutedQty   decimal.Decimal  `json:"executedQty"`
	Fees          decimal.Decimal  `json:"fees"`
	RealizedPnL   *decimal.Decimal `json:"realizedPnl,omitempty"`
}

// PlaceOrder runs the full pipeline: resolve instrument, price, validate,
// fee, then one serializable transaction covering account, position, lots and
// the ledger row. A failure at any step leaves the books untouched.
func (s *Service) PlaceOrder(ctx context.Context, in OrderInput) (OrderResult, error) {
	started := time.Now()
	res, err := s.placeOrder(ctx, in)
	s.met.OrderDuration.Observe(time.Since(started).Seconds())
	s.met.OrdersTotal.WithLabelValues(string(in.Side), string(in.Product), orderStatus(err)).Inc()
	return res, err
}

func (s *Service) placeOrder(ctx context.Context, in OrderInput) (OrderResult, error) {
	if err := in.Ref.Validate(); err != nil {
		return OrderResult{}, err
	}

	inst, err := s.instruments.GetBySymbol(ctx, in.Exchange, in.Symbol)
	if err != nil {
		if errors.Is(err, instruments.ErrNotFound) {
			return OrderResult{}, ErrInstrumentNotFound
		}
		return OrderResult{}, &ExecutionError{cause: err}
	}
	if inst.Kind == types.InstrumentIndex {
		return OrderResult{}, ErrInstrumentNotTradable
	}

	price, err := s.prices.LastPrice(ctx, inst)
	if err != nil {
		return OrderResult{}, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	if violations := ValidateOrder(inst, in.Side, in.Product, in.Qty, price, in.LimitPrice); len(violations) > 0 {
		return OrderResult{}, &InvalidOrderError{Violations: violations}
	}

	orderValue := price.Mul(in.Qty)
	fees := Fees(inst.Segment, in.Product, orderValue)
	clientRef := in.ClientRef
	if clientRef == "" {
		clientRef = uuid.NewString()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return OrderResult{}, &ExecutionError{cause: err}
	}
	defer tx.Rollback(ctx)

	acct, err := s.accounts.EnsureForUpdate(ctx, tx, in.Ref)
	if err != nil {
		return OrderResult{}, err
	}

	var res OrderResult
	switch in.Side {
	case types.SideBuy:
		res, err = s.executeBuy(ctx, tx, acct, inst, in, price, orderValue, fees, clientRef)
	case types.SideSell:
		var pos model.Position
		pos, err = s.store.GetOpenPositionForUpdate(ctx, tx, acct.ID, inst.ID, in.Product)
		if err != nil {
			if ErrNoRows(err) {
				return OrderResult{}, ErrPositionNotFound
			}
			return OrderResult{}, txError(err)
		}
		res, err = s.executeSell(ctx, tx, acct, inst, pos, in.Qty, price, orderValue, fees, in.LimitPrice, clientRef, false)
	}
	if err != nil {
		return OrderResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return OrderResult{}, txError(err)
	}

	if in.Side == types.SideBuy && in.Product == types.ProductMIS && s.registrar != nil {
		go s.registrar.Register(res.PositionID, time.Now())
	}

	s.log.WithFields(logrus.Fields{
		"account":  acct.ID,
		"symbol":   inst.Symbol,
		"side":     in.Side,
		"product":  in.Product,
		"qty":      in.Qty,
		"price":    price,
		"fees":     fees,
		"position": res.PositionID,
	}).Info("order executed")
	return res, nil
}

func (s *Service) executeBuy(ctx context.Context, tx pgx.Tx, acct model.Account, inst model.Instrument, in OrderInput, price, orderValue, fees decimal.Decimal, clientRef string) (OrderResult, error) {
	pos, err := s.store.GetOpenPositionForUpdate(ctx, tx, acct.ID, inst.ID, in.Product)
	if err != nil {
		if !ErrNoRows(err) {
			return OrderResult{}, txError(err)
		}
		pos, err = s.store.CreatePosition(ctx, tx, acct.ID, inst.ID, in.Product)
		if err != nil {
			return OrderResult{}, txError(err)
		}
	}

	funds := accounts.Funds{Cash: acct.Cash, UsedMargin: acct.UsedMargin}
	funds, _, err = funds.Buy(in.Product, orderValue, fees, inst.Leverage)
	if err != nil {
		return OrderResult{}, err
	}

	pos.AvgPrice = lots.BuyAverage(pos.Qty, pos.AvgPrice, in.Qty, price)
	pos.Qty = pos.Qty.Add(in.Qty)

	if _, err := s.store.InsertLot(ctx, tx, pos.ID, in.Qty, price); err != nil {
		return OrderResult{}, txError(err)
	}
	if err := s.store.UpdatePosition(ctx, tx, pos); err != nil {
		return OrderResult{}, txError(err)
	}
	if err := s.accounts.UpdateFunds(ctx, tx, acct.ID, funds); err != nil {
		return OrderResult{}, txError(err)
	}
	txnID, err := s.store.InsertTransaction(ctx, tx, model.Transaction{
		AccountID:    acct.ID,
		PositionID:   pos.ID,
		InstrumentID: inst.ID,
		Side:         types.SideBuy,
		Product:      in.Product,
		Qty:          in.Qty,
		Price:        price,
		LimitPrice:   in.LimitPrice,
		Fees:         fees,
		ClientRef:    clientRef,
	})
	if err != nil {
		return OrderResult{}, txError(err)
	}

	return OrderResult{
		TransactionID: txnID,
		PositionID:    pos.ID,
		ExecutedPrice: price,
		ExecutedQty:   in.Qty,
		Fees:          fees,
	}, nil
}

// executeSell is shared by user sells and forced square-offs. The caller
// holds row locks on both the account and the position.
func (s *Service) executeSell(ctx context.Context, tx pgx.Tx, acct model.Account, inst model.Instrument, pos model.Position, qty, price, orderValue, fees decimal.Decimal, limitPrice *decimal.Decimal, clientRef string, forced bool) (OrderResult, error) {
	open, err := s.store.OpenLotsForUpdate(ctx, tx, pos.ID)
	if err != nil {
		return OrderResult{}, txError(err)
	}

	match, err := lots.MatchSell(open, qty, price)
	if err != nil {
		return OrderResult{}, err
	}

	funds := accounts.Funds{Cash: acct.Cash, UsedMargin: acct.UsedMargin}
	released := decimal.Zero
	if pos.Product == types.ProductMIS {
		released = accounts.ReleasedMargin(match.Consumptions, inst.Leverage)
	}
	funds = funds.Sell(pos.Product, orderValue, fees, released)

	pos.Qty = pos.Qty.Sub(qty)
	pos.AvgPrice = lots.RemainingAverage(open, match.Consumptions)
	pos.RealizedPnL = pos.RealizedPnL.Add(match.RealizedPnL)
	if pos.Qty.IsZero() {
		now := time.Now().UTC()
		pos.IsOpen = false
		pos.ClosedAt = &now
	}

	if err := s.store.ApplyConsumptions(ctx, tx, match.Consumptions); err != nil {
		return OrderResult{}, txError(err)
	}
	if err := s.store.UpdatePosition(ctx, tx, pos); err != nil {
		return OrderResult{}, txError(err)
	}
	if err := s.accounts.UpdateFunds(ctx, tx, acct.ID, funds); err != nil {
		return OrderResult{}, txError(err)
	}
	realized := match.RealizedPnL
	txnID, err := s.store.InsertTransaction(ctx, tx, model.Transaction{
		AccountID:    acct.ID,
		PositionID:   pos.ID,
		InstrumentID: inst.ID,
		Side:         types.SideSell,
		Product:      pos.Product,
		Qty:          qty,
		Price:        price,
		LimitPrice:   limitPrice,
		Fees:         fees,
		RealizedPnL:  &realized,
		Forced:       forced,
		ClientRef:    clientRef,
	})
	if err != nil {
		return OrderResult{}, txError(err)
	}

	return OrderResult{
		TransactionID: txnID,
		PositionID:    pos.ID,
		ExecutedPrice: price,
		ExecutedQty:   qty,
		Fees:          fees,
		RealizedPnL:   &realized,
	}, nil
}

// ForceSquareOff closes an intraday position at the current market price by
// reusing the sell path. Closing an already-closed position is a no-op, so
// sweep retries are safe.
func (s *Service) ForceSquareOff(ctx context.Context, positionID string) error {
	pos, err := s.store.GetPosition(ctx, positionID)
	if err != nil {
		if ErrNoRows(err) {
			s.met.SquareOffsTotal.WithLabelValues("failed").Inc()
			return ErrPositionNotFound
		}
		s.met.SquareOffsTotal.WithLabelValues("failed").Inc()
		return &ExecutionError{cause: err}
	}
	if !pos.IsOpen {
		s.met.SquareOffsTotal.WithLabelValues("noop").Inc()
		return nil
	}
	if pos.Product != types.ProductMIS {
		s.met.SquareOffsTotal.WithLabelValues("failed").Inc()
		return ErrNotSquareOffEligible
	}

	inst, err := s.instruments.GetByID(ctx, pos.InstrumentID)
	if err != nil {
		s.met.SquareOffsTotal.WithLabelValues("failed").Inc()
		return &ExecutionError{cause: err}
	}
	price, err := s.prices.LastPrice(ctx, inst)
	if err != nil {
		s.met.SquareOffsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	accountID := pos.AccountID
	alreadyClosed := false
	err = func() error {
		tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return &ExecutionError{cause: err}
		}
		defer tx.Rollback(ctx)

		// Same lock order as placeOrder: account row before position row.
		acct, err := s.accounts.GetForUpdate(ctx, tx, accountID)
		if err != nil {
			return err
		}
		pos, err = s.store.GetPositionForUpdate(ctx, tx, positionID)
		if err != nil {
			return txError(err)
		}
		if !pos.IsOpen {
			alreadyClosed = true
			return nil
		}

		orderValue := price.Mul(pos.Qty)
		fees := Fees(inst.Segment, pos.Product, orderValue)
		if _, err := s.executeSell(ctx, tx, acct, inst, pos, pos.Qty, price, orderValue, fees, nil, uuid.NewString(), true); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return txError(err)
		}
		return nil
	}()
	if err != nil {
		s.met.SquareOffsTotal.WithLabelValues("failed").Inc()
		return err
	}
	if alreadyClosed {
		s.met.SquareOffsTotal.WithLabelValues("noop").Inc()
		return nil
	}

	s.met.SquareOffsTotal.WithLabelValues("closed").Inc()
	s.log.WithFields(logrus.Fields{"position": positionID, "price": price}).Info("intraday position squared off")
	return nil
}

// Positions returns the account's open positions and their lots, optionally
// filtered by product.
func (s *Service) Positions(ctx context.Context, ref accounts.Ref, product types.Product) ([]PositionWithLots, error) {
	acct, err := s.accounts.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if acct.ID == "" {
		return nil, nil
	}
	return s.store.ListOpenPositions(ctx, acct.ID, product)
}

// Transactions pages the account's ledger, newest first.
func (s *Service) Transactions(ctx context.Context, ref accounts.Ref, before *time.Time, limit int) ([]model.Transaction, error) {
	acct, err := s.accounts.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if acct.ID == "" {
		return nil, nil
	}
	return s.store.ListTransactions(ctx, acct.ID, before, limit)
}

// txError maps a storage failure to the engine's error taxonomy. Postgres
// serialization failures and deadlock aborts both surface as a retryable
// conflict.
func txError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return ErrConcurrencyConflict
	}
	return &ExecutionError{cause: err}
}

func orderStatus(err error) string {
	switch {
	case err == nil:
		return "committed"
	case errors.Is(err, ErrConcurrencyConflict):
		return "conflict"
	case isRejection(err):
		return "rejected"
	default:
		return "failed"
	}
}

func isRejection(err error) bool {
	var invalid *InvalidOrderError
	if errors.As(err, &invalid) {
		return true
	}
	return errors.Is(err, accounts.ErrInsufficientFunds) ||
		errors.Is(err, accounts.ErrInsufficientMargin) ||
		errors.Is(err, lots.ErrInsufficientQuantity) ||
		errors.Is(err, ErrPositionNotFound) ||
		errors.Is(err, ErrInstrumentNotFound) ||
		errors.Is(err, ErrInstrumentNotTradable)
}
