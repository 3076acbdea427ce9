// Package pricecache memoizes live-price lookups for a short TTL so that a
// burst of lookups during one aggregation pass hits the provider once per
// instrument. The cache is an explicitly constructed object with a start/stop
// lifecycle; nothing here is process-global.
package pricecache

import (
	"context"
	"sync"
	"time"

	"vstocks/internal/metrics"
	"vstocks/internal/model"

	"github.com/shopspring/decimal"
)

// Source is the un-cached price provider.
type Source interface {
	LastPrice(ctx context.Context, in model.Instrument) (decimal.Decimal, error)
}

type entry struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

type Cache struct {
	src Source
	ttl time.Duration
	met *metrics.Metrics
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]entry

	stopOnce sync.Once
	stop     chan struct{}
}

func New(src Source, ttl time.Duration, met *metrics.Metrics) *Cache {
	return &Cache{
		src:     src,
		ttl:     ttl,
		met:     met,
		now:     time.Now,
		entries: make(map[string]entry),
		stop:    make(chan struct{}),
	}
}

// Start launches the janitor that evicts stale entries. Stop ends it.
func (c *Cache) Start() {
	go c.janitor()
}

func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) janitor() {
	ticker := time.NewTicker(10 * c.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			cutoff := c.now().Add(-c.ttl)
			c.mu.Lock()
			for k, e := range c.entries {
				if e.fetchedAt.Before(cutoff) {
					delete(c.entries, k)
				}
			}
			c.mu.Unlock()
		}
	}
}

// LastPrice returns the instrument's last traded price, served from cache
// when fresher than the TTL. Staleness inside the TTL window is accepted.
func (c *Cache) LastPrice(ctx context.Context, in model.Instrument) (decimal.Decimal, error) {
	key := in.ID
	now := c.now()
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && now.Sub(e.fetchedAt) < c.ttl {
		if c.met != nil {
			c.met.PriceCacheHits.Inc()
		}
		return e.price, nil
	}
	if c.met != nil {
		c.met.PriceCacheMiss.Inc()
	}
	start := time.Now()
	price, err := c.src.LastPrice(ctx, in)
	if c.met != nil {
		c.met.QuoteFetchDur.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return decimal.Zero, err
	}
	c.mu.Lock()
	c.entries[key] = entry{price: price, fetchedAt: now}
	c.mu.Unlock()
	return price, nil
}
