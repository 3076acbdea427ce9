package accounts

import (
	"errors"
	"net/http"
	"strings"

	"vstocks/internal/httputil"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createEventAccountRequest struct {
	UserID  string `json:"user_id"`
	EventID string `json:"event_id"`
	Balance string `json:"balance"`
}

// CreateEventAccount serves the internal endpoint the events service calls
// when a user registers for an event.
func (h *Handler) CreateEventAccount(w http.ResponseWriter, r *http.Request) {
	var req createEventAccountRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	balance, err := decimal.NewFromString(strings.TrimSpace(req.Balance))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid balance"})
		return
	}
	acct, err := h.svc.CreateEventAccount(r.Context(), strings.TrimSpace(req.UserID), strings.TrimSpace(req.EventID), balance)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			httputil.WriteJSON(w, http.StatusConflict, httputil.ErrorResponse{Error: "account already exists for this event"})
			return
		}
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, acct)
}
