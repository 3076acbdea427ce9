package quotestream

import (
	"context"
	"sync"
	"time"

	"vstocks/internal/instruments"
	"vstocks/internal/markethours"
	"vstocks/internal/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PriceSource matches the price cache.
type PriceSource interface {
	LastPrice(ctx context.Context, in model.Instrument) (decimal.Decimal, error)
}

type quotePayload struct {
	Exchange string `json:"exchange"`
	Symbol   string `json:"symbol"`
	Price    string `json:"price"`
	TS       int64  `json:"ts"`
}

// Publisher periodically prices every tradable instrument and pushes the
// quotes onto the bus. It goes quiet outside market hours.
type Publisher struct {
	bus      *Bus
	store    *instruments.Store
	prices   PriceSource
	interval time.Duration
	log      *logrus.Entry

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewPublisher(bus *Bus, store *instruments.Store, prices PriceSource, interval time.Duration, log *logrus.Entry) *Publisher {
	return &Publisher{
		bus:      bus,
		store:    store,
		prices:   prices,
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (p *Publisher) Start() {
	go p.run()
}

func (p *Publisher) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
	<-p.done
}

func (p *Publisher) run() {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if markethours.IsMarketOpen(time.Now()) {
				p.publishAll()
			}
		case <-p.stop:
			return
		}
	}
}

func (p *Publisher) publishAll() {
	ctx, cancel := context.WithTimeout(context.Background(), p.interval)
	defer cancel()

	tradable, err := p.store.ListTradable(ctx)
	if err != nil {
		p.log.WithError(err).Warn("quote publish skipped, instrument list failed")
		return
	}
	now := time.Now().UnixMilli()
	for _, in := range tradable {
		price, err := p.prices.LastPrice(ctx, in)
		if err != nil {
			continue
		}
		p.bus.Publish(Event{Type: "quote", Data: quotePayload{
			Exchange: in.Exchange,
			Symbol:   in.Symbol,
			Price:    price.String(),
			TS:       now,
		}})
	}
}
