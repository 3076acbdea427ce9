package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the trading engine.
type Metrics struct {
	registry *prometheus.Registry

	OrdersTotal     *prometheus.CounterVec // labels: side, product, status
	OrderDuration   prometheus.Histogram
	SquareOffsTotal *prometheus.CounterVec // labels: result=closed|noop|failed
	SweepRuns       prometheus.Counter
	PriceCacheHits  prometheus.Counter
	PriceCacheMiss  prometheus.Counter
	QuoteFetchDur   prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vstocks_orders_total",
			Help: "Orders processed by side, product and outcome",
		}, []string{"side", "product", "status"}),
		OrderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vstocks_order_duration_seconds",
			Help:    "End-to-end order execution latency",
			Buckets: prometheus.DefBuckets,
		}),
		SquareOffsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vstocks_square_offs_total",
			Help: "Forced square-off attempts by result",
		}, []string{"result"}),
		SweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vstocks_square_off_sweeps_total",
			Help: "Recovery sweep runs",
		}),
		PriceCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vstocks_price_cache_hits_total",
			Help: "Price lookups served from cache",
		}),
		PriceCacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vstocks_price_cache_misses_total",
			Help: "Price lookups that went to the provider",
		}),
		QuoteFetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vstocks_quote_fetch_duration_seconds",
			Help:    "Latency of live price fetches from the provider",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
	}
	m.registry.MustRegister(
		m.OrdersTotal, m.OrderDuration, m.SquareOffsTotal, m.SweepRuns,
		m.PriceCacheHits, m.PriceCacheMiss, m.QuoteFetchDur,
	)
	return m
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
