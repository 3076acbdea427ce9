package httpserver

import (
	"net/http"

	"vstocks/internal/accounts"
	"vstocks/internal/health"
	"vstocks/internal/httputil"
	"vstocks/internal/instruments"
	"vstocks/internal/portfolio"
	"vstocks/internal/trading"

	"github.com/go-chi/chi/v5"
)

type RouterDeps struct {
	TradingHandler     *trading.Handler
	PortfolioHandler   *portfolio.Handler
	InstrumentsHandler *instruments.Handler
	AccountsHandler    *accounts.Handler
	HealthHandler      *health.Handler
	MetricsHandler     http.Handler
	WSHandler          http.Handler
	JWTIssuer          string
	JWTSecret          string
	InternalToken      string
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS middleware for development
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = "*"
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Event-ID")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Use(SecurityHeaders)
	r.Use(RateLimitMiddleware)

	r.Get("/health", d.HealthHandler.Health)
	r.Handle("/metrics", d.MetricsHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/market/ws", d.WSHandler.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.JWTIssuer, d.JWTSecret))
			r.Post("/orders", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.TradingHandler.PlaceOrder(w, r, userID)
			})
			r.Get("/positions", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.TradingHandler.Positions(w, r, userID)
			})
			r.Get("/transactions", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.TradingHandler.Transactions(w, r, userID)
			})
			r.Get("/portfolio", func(w http.ResponseWriter, r *http.Request) {
				userID, ok := UserID(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.PortfolioHandler.Get(w, r, userID)
			})
			r.Get("/instruments/{symbol}", func(w http.ResponseWriter, r *http.Request) {
				d.InstrumentsHandler.Get(w, r, chi.URLParam(r, "symbol"))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(InternalAuth(d.InternalToken))
			r.Post("/internal/square-off/{positionID}", func(w http.ResponseWriter, r *http.Request) {
				d.TradingHandler.SquareOff(w, r, chi.URLParam(r, "positionID"))
			})
			r.Post("/internal/events/accounts", d.AccountsHandler.CreateEventAccount)
		})
	})

	return r
}
