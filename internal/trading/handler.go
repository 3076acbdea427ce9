package trading

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vstocks/internal/accounts"
	"vstocks/internal/httputil"
	"vstocks/internal/lots"
	"vstocks/internal/types"

	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// accountRef builds the account reference for the request. The main account
// is the default; an X-Event-ID header switches to that event's account.
func accountRef(r *http.Request, userID string) accounts.Ref {
	if eventID := strings.TrimSpace(r.Header.Get("X-Event-ID")); eventID != "" {
		return accounts.EventRef(userID, eventID)
	}
	return accounts.MainRef(userID)
}

type placeOrderRequest struct {
	Exchange   string `json:"exchange"`
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	Product    string `json:"product"`
	Qty        string `json:"qty"`
	LimitPrice string `json:"limit_price"`
	ClientRef  string `json:"client_ref"`
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request, userID string) {
	var req placeOrderRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "symbol is required"})
		return
	}
	exchange := strings.ToUpper(strings.TrimSpace(req.Exchange))
	if exchange == "" {
		exchange = "NSE"
	}
	qty, err := decimal.NewFromString(req.Qty)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid qty"})
		return
	}
	var limitPrice *decimal.Decimal
	if req.LimitPrice != "" {
		p, err := decimal.NewFromString(req.LimitPrice)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid limit_price"})
			return
		}
		limitPrice = &p
	}

	res, err := h.svc.PlaceOrder(r.Context(), OrderInput{
		Ref:        accountRef(r, userID),
		Exchange:   exchange,
		Symbol:     symbol,
		Side:       types.Side(strings.ToLower(req.Side)),
		Product:    types.Product(strings.ToLower(req.Product)),
		Qty:        qty,
		LimitPrice: limitPrice,
		ClientRef:  strings.TrimSpace(req.ClientRef),
	})
	if err != nil {
		writeOrderError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) Positions(w http.ResponseWriter, r *http.Request, userID string) {
	product := types.Product(strings.ToLower(r.URL.Query().Get("product")))
	if product != "" && !product.Valid() {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "product must be cnc or mis"})
		return
	}
	positions, err := h.svc.Positions(r.Context(), accountRef(r, userID), product)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	if positions == nil {
		positions = []PositionWithLots{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"positions": positions})
}

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request, userID string) {
	var before *time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "before must be RFC 3339"})
			return
		}
		before = &t
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	txns, err := h.svc.Transactions(r.Context(), accountRef(r, userID), before, limit)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

// SquareOff serves the internal endpoint the scheduler and ops tooling use to
// force-close an intraday position.
func (h *Handler) SquareOff(w http.ResponseWriter, r *http.Request, positionID string) {
	if err := h.svc.ForceSquareOff(r.Context(), positionID); err != nil {
		writeOrderError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeOrderError(w http.ResponseWriter, err error) {
	var invalid *InvalidOrderError
	if errors.As(err, &invalid) {
		reasons := make([]any, 0, len(invalid.Violations))
		for _, v := range invalid.Violations {
			reasons = append(reasons, v)
		}
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, httputil.ErrorResponse{Error: "order rejected", Reasons: reasons})
		return
	}
	switch {
	case errors.Is(err, ErrInstrumentNotFound), errors.Is(err, ErrPositionNotFound), errors.Is(err, accounts.ErrAccountNotFound):
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrInstrumentNotTradable), errors.Is(err, ErrNotSquareOffEligible),
		errors.Is(err, accounts.ErrInsufficientFunds), errors.Is(err, accounts.ErrInsufficientMargin),
		errors.Is(err, lots.ErrInsufficientQuantity):
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, httputil.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrPriceUnavailable):
		httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{Error: "live price unavailable, try again"})
	case errors.Is(err, ErrConcurrencyConflict):
		httputil.WriteJSON(w, http.StatusConflict, httputil.ErrorResponse{Error: "conflicting order in flight, retry"})
	default:
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
	}
}
