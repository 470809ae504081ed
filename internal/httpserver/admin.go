package httpserver

import (
	"net/http"

	"papertrader/internal/httputil"
	"papertrader/internal/marketdata"
)

// AdminHandler exposes the synthetic feed's dynamics. These endpoints sit
// behind the admin token middleware.
type AdminHandler struct {
	feed *marketdata.Feed
}

func NewAdminHandler(feed *marketdata.Feed) *AdminHandler {
	return &AdminHandler{feed: feed}
}

type feedDynamicsRequest struct {
	Volatility float64 `json:"volatility"`
	Drift      float64 `json:"drift"`
}

func (h *AdminHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	vol, drift := h.feed.Dynamics()
	httputil.WriteJSON(w, http.StatusOK, feedDynamicsRequest{Volatility: vol, Drift: drift})
}

func (h *AdminHandler) SetFeed(w http.ResponseWriter, r *http.Request) {
	var req feedDynamicsRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	h.feed.SetDynamics(req.Volatility, req.Drift)
	vol, drift := h.feed.Dynamics()
	httputil.WriteJSON(w, http.StatusOK, feedDynamicsRequest{Volatility: vol, Drift: drift})
}
