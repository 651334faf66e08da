package orders

import (
	"errors"
	"net/http"
	"strconv"

	"retrocede/internal/httputil"
	"retrocede/internal/ledger"
	"retrocede/internal/portfolio"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type placeOrderRequest struct {
	Symbol   string `json:"symbol"`
	Quantity string `json:"quantity"`
	Price    string `json:"price"`
	Side     string `json:"side"`
}

func (h *Handler) Place(w http.ResponseWriter, r *http.Request, userID string) {
	var req placeOrderRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	side := portfolio.Side(req.Side)
	raw := portfolio.RawOrder{Symbol: req.Symbol, Quantity: req.Quantity, Price: req.Price}

	receipt, err := h.svc.Execute(r.Context(), userID, side, raw)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, receipt)
}

func writeOrderError(w http.ResponseWriter, err error) {
	var shares *portfolio.InsufficientSharesError
	var storage *portfolio.StorageError
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "account not found"})
	case errors.Is(err, portfolio.ErrInsufficientFunds),
		errors.Is(err, portfolio.ErrNoSuchPosition),
		errors.As(err, &shares):
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, httputil.ErrorResponse{Error: err.Error()})
	case errors.Is(err, portfolio.ErrQuoteUnavailable):
		httputil.WriteJSON(w, http.StatusBadGateway, httputil.ErrorResponse{Error: err.Error()})
	case portfolio.IsRejection(err):
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
	case errors.As(err, &storage):
		httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{Error: "order could not be processed"})
	default:
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
	}
}

func (h *Handler) Portfolio(w http.ResponseWriter, r *http.Request, userID string) {
	view, err := h.svc.Portfolio(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "account not found"})
			return
		}
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request, userID string) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}
	records, err := h.svc.History(r.Context(), userID, limit)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "account not found"})
			return
		}
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"transactions": records})
}
