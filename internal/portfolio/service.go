package portfolio

import (
	"context"
	"sync"

	"vstocks/internal/accounts"
	"vstocks/internal/instruments"
	"vstocks/internal/model"
	"vstocks/internal/trading"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// priceFanout caps concurrent quote fetches per portfolio request.
const priceFanout = 8

type Service struct {
	accounts    *accounts.Service
	store       *trading.Store
	instruments *instruments.Store
	prices      trading.PriceSource
	log         *logrus.Entry
}

func NewService(accts *accounts.Service, store *trading.Store, instr *instruments.Store, prices trading.PriceSource, log *logrus.Entry) *Service {
	return &Service{accounts: accts, store: store, instruments: instr, prices: prices, log: log}
}

// Portfolio prices every open position concurrently and rolls the account up
// per the display contract. A single failed quote falls back to that
// position's average price instead of failing the whole call.
func (s *Service) Portfolio(ctx context.Context, ref accounts.Ref) (Summary, error) {
	acct, err := s.accounts.Get(ctx, ref)
	if err != nil {
		return Summary{}, err
	}
	if acct.ID == "" {
		return buildSummary(acct, nil, decimal.Zero, decimal.Zero), nil
	}

	positions, err := s.store.ListOpenPositions(ctx, acct.ID, "")
	if err != nil {
		return Summary{}, err
	}
	realized, fees, err := s.store.RealizedTotals(ctx, acct.ID)
	if err != nil {
		return Summary{}, err
	}

	instrumentIDs := make(map[string]struct{}, len(positions))
	for _, p := range positions {
		instrumentIDs[p.Position.InstrumentID] = struct{}{}
	}

	type priced struct {
		inst  model.Instrument
		price decimal.Decimal
		ok    bool
	}
	var mu sync.Mutex
	pricedByID := make(map[string]priced, len(instrumentIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(priceFanout)
	for id := range instrumentIDs {
		id := id
		g.Go(func() error {
			inst, err := s.instruments.GetByID(gctx, id)
			if err != nil {
				return err
			}
			price, err := s.prices.LastPrice(gctx, inst)
			if err != nil {
				s.log.WithField("symbol", inst.Symbol).WithError(err).Warn("price fetch failed, valuing at average price")
				mu.Lock()
				pricedByID[id] = priced{inst: inst}
				mu.Unlock()
				return nil
			}
			mu.Lock()
			pricedByID[id] = priced{inst: inst, price: price, ok: true}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	views := make([]PositionView, 0, len(positions))
	for _, p := range positions {
		pr := pricedByID[p.Position.InstrumentID]
		views = append(views, buildView(p, pr.inst.Symbol, pr.price, !pr.ok))
	}
	return buildSummary(acct, views, realized, fees), nil
}
