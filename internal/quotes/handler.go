package quotes

import (
	"errors"
	"net/http"
	"strings"

	"retrocede/internal/httputil"
)

type Handler struct {
	provider Provider
	WS       *QuoteWS
}

func NewHandler(provider Provider, ws *QuoteWS) *Handler {
	return &Handler{provider: provider, WS: ws}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "symbol is required"})
		return
	}
	quote, err := h.provider.Current(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, ErrNoData) {
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: ErrNoData.Error()})
			return
		}
		httputil.WriteJSON(w, http.StatusBadGateway, httputil.ErrorResponse{Error: "quote unavailable"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, quote)
}
