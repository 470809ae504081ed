package sessions

import (
	"errors"
	"net/http"

	"papertrader/internal/auth"
	"papertrader/internal/engine"
	"papertrader/internal/httputil"
	"papertrader/internal/model"
	"papertrader/internal/types"

	"github.com/shopspring/decimal"
)

type Handler struct {
	mgr  *Manager
	auth *auth.Service
}

func NewHandler(mgr *Manager, authSvc *auth.Service) *Handler {
	return &Handler{mgr: mgr, auth: authSvc}
}

type createSessionRequest struct {
	StartingCash string `json:"starting_cash"`
	Category     string `json:"category"`
	Leverage     int    `json:"leverage"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	cash := decimal.Zero
	if req.StartingCash != "" {
		c, err := decimal.NewFromString(req.StartingCash)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid starting_cash"})
			return
		}
		cash = c
	}
	category := types.InstrumentCategory(req.Category)
	if req.Category == "" {
		category = types.CategorySpot
	}

	s, err := h.mgr.Create(cash, category, req.Leverage)
	if err != nil {
		writeError(w, err)
		return
	}
	token, err := h.auth.SignToken(s.ID)
	if err != nil {
		h.mgr.Teardown(s.ID)
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "failed to issue token"})
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{
		"session_id": s.ID,
		"token":      token,
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, s *Session) {
	h.mgr.Teardown(s.ID)
	w.WriteHeader(http.StatusNoContent)
}

type placeOrderRequest struct {
	Side       string `json:"side"`
	Type       string `json:"type"`
	Qty        string `json:"qty"`
	LimitPrice string `json:"limit_price"`
	Category   string `json:"category"` // defaults to the session's category
	Leverage   int    `json:"leverage"` // defaults to the session's leverage
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request, s *Session) {
	var req placeOrderRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	qty, err := decimal.NewFromString(req.Qty)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid qty"})
		return
	}
	limitPrice := decimal.Zero
	if req.LimitPrice != "" {
		p, err := decimal.NewFromString(req.LimitPrice)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid limit_price"})
			return
		}
		limitPrice = p
	}

	category := s.Category
	if req.Category != "" {
		category = types.InstrumentCategory(req.Category)
	}
	leverage := s.Leverage
	if req.Leverage != 0 {
		leverage = req.Leverage
	}

	rec, err := s.Exec.Submit(model.OrderRequest{
		Side:       types.OrderSide(req.Side),
		Type:       types.OrderType(req.Type),
		Quantity:   qty,
		LimitPrice: limitPrice,
		Category:   category,
		Leverage:   leverage,
		Origin:     types.OriginManual,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handler) Account(w http.ResponseWriter, r *http.Request, s *Session) {
	httputil.WriteJSON(w, http.StatusOK, s.Ledger.Snapshot())
}

func (h *Handler) Trades(w http.ResponseWriter, r *http.Request, s *Session) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"trades": s.Ledger.Trades()})
}

type riskRequest struct {
	StopLossPct     string `json:"stop_loss_pct"`
	TakeProfitPct   string `json:"take_profit_pct"`
	MaxLossPct      string `json:"max_loss_pct"`
	PositionSizePct string `json:"position_size_pct"`
}

func (h *Handler) ConfigureRisk(w http.ResponseWriter, r *http.Request, s *Session) {
	var req riskRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	rs := s.Trader.Risk()
	if err := applyPct(&rs.StopLossPct, req.StopLossPct); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid stop_loss_pct"})
		return
	}
	if err := applyPct(&rs.TakeProfitPct, req.TakeProfitPct); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid take_profit_pct"})
		return
	}
	if err := applyPct(&rs.MaxLossPct, req.MaxLossPct); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid max_loss_pct"})
		return
	}
	if err := applyPct(&rs.PositionSizePct, req.PositionSizePct); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid position_size_pct"})
		return
	}
	if err := s.Trader.SetRisk(rs); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rs)
}

type strategyRequest struct {
	Strategy string `json:"strategy"`
}

func (h *Handler) SetStrategy(w http.ResponseWriter, r *http.Request, s *Session) {
	var req strategyRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if err := s.Generator.SetStrategy(types.StrategyID(req.Strategy)); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"strategy": req.Strategy})
}

func (h *Handler) StartAutoTrader(w http.ResponseWriter, r *http.Request, s *Session) {
	if err := s.Trader.Start(s.Context()); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"state": string(s.Trader.State())})
}

func (h *Handler) StopAutoTrader(w http.ResponseWriter, r *http.Request, s *Session) {
	s.Trader.Stop()
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"state": string(s.Trader.State())})
}

func applyPct(dst *decimal.Decimal, raw string) error {
	if raw == "" {
		return nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// writeError maps the engine taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, engine.ErrInsufficientFunds),
		errors.Is(err, engine.ErrInsufficientMargin),
		errors.Is(err, engine.ErrInsufficientHoldings):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrInvalidStateTransition):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrNoMarketPrice):
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, httputil.ErrorResponse{Error: err.Error()})
}
