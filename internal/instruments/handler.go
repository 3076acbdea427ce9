package instruments

import (
	"net/http"
	"strings"

	"vstocks/internal/httputil"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request, symbol string) {
	exchange := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("exchange")))
	if exchange == "" {
		exchange = "NSE"
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "symbol is required"})
		return
	}
	in, err := h.store.GetBySymbol(r.Context(), exchange, symbol)
	if err != nil {
		if err == ErrNotFound {
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "instrument not found"})
			return
		}
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "failed to load instrument"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, in)
}
