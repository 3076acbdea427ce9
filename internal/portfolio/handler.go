package portfolio

import (
	"errors"
	"net/http"
	"strings"

	"vstocks/internal/accounts"
	"vstocks/internal/httputil"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request, userID string) {
	ref := accounts.MainRef(userID)
	if eventID := strings.TrimSpace(r.Header.Get("X-Event-ID")); eventID != "" {
		ref = accounts.EventRef(userID, eventID)
	}
	summary, err := h.svc.Portfolio(r.Context(), ref)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: err.Error()})
			return
		}
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}
