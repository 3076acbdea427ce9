package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vstocks/internal/accounts"
	"vstocks/internal/config"
	"vstocks/internal/db"
	"vstocks/internal/health"
	"vstocks/internal/httpserver"
	"vstocks/internal/instruments"
	"vstocks/internal/metrics"
	"vstocks/internal/portfolio"
	"vstocks/internal/pricecache"
	"vstocks/internal/quotestream"
	"vstocks/internal/squareoff"
	"vstocks/internal/trading"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	openingBalance, err := decimal.NewFromString(cfg.OpeningBalance)
	if err != nil {
		log.Fatalf("invalid OPENING_BALANCE: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	met := metrics.New()

	instrumentStore := instruments.NewStore(pool)
	quotes := instruments.NewQuoteClient(cfg.QuoteAPIURL, cfg.QuoteTimeout)
	prices := pricecache.New(quotes, cfg.PriceTTL, met)
	prices.Start()
	defer prices.Stop()

	accountSvc := accounts.NewService(pool, openingBalance)
	tradingStore := trading.NewStore(pool)
	tradingSvc := trading.NewService(pool, tradingStore, instrumentStore, prices, accountSvc, met, logrus.NewEntry(log).WithField("component", "trading"))
	scheduler := squareoff.New(tradingSvc, tradingStore, met, logrus.NewEntry(log).WithField("component", "squareoff"), cfg.SweepInterval)
	tradingSvc.SetRegistrar(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	portfolioSvc := portfolio.NewService(accountSvc, tradingStore, instrumentStore, prices, logrus.NewEntry(log).WithField("component", "portfolio"))

	bus := quotestream.NewBus()
	publisher := quotestream.NewPublisher(bus, instrumentStore, prices, cfg.PriceTTL, logrus.NewEntry(log).WithField("component", "quotestream"))
	publisher.Start()
	defer publisher.Stop()
	wsHandler := quotestream.NewWSHandler(bus, func(token string) (string, error) {
		return httpserver.ParseToken(token, cfg.JWTIssuer, cfg.JWTSecret)
	}, cfg.WebSocketOrigin)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		TradingHandler:     trading.NewHandler(tradingSvc),
		PortfolioHandler:   portfolio.NewHandler(portfolioSvc),
		InstrumentsHandler: instruments.NewHandler(instrumentStore),
		AccountsHandler:    accounts.NewHandler(accountSvc),
		HealthHandler:      health.NewHandler(pool, time.Now()),
		MetricsHandler:     met.Handler(),
		WSHandler:          wsHandler,
		JWTIssuer:          cfg.JWTIssuer,
		JWTSecret:          cfg.JWTSecret,
		InternalToken:      cfg.InternalToken,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	log.WithField("addr", cfg.HTTPAddr).Info("server listening")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
