package server

import (
	"net/http"
	"strings"

	"github.com/rachitbansal/nivesh/internal/common"
	"github.com/rachitbansal/nivesh/internal/detail"
	"github.com/rachitbansal/nivesh/internal/models"
)

// handleHealth responds to GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"uptime":  s.app.StartupTime.String(),
		"polling": s.app.Poller.Running(),
	})
}

// handleVersion responds to GET /api/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleSuggestions responds to GET /api/suggestions?q= with up to 10
// ticker suggestions.
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		WriteJSON(w, http.StatusOK, map[string][]models.Suggestion{"suggestions": {}})
		return
	}

	suggestions, err := s.app.Portfolio.Suggest(r.Context(), query)
	if err != nil {
		WriteTypedError(w, err)
		return
	}
	if len(suggestions) > 10 {
		suggestions = suggestions[:10]
	}
	WriteJSON(w, http.StatusOK, map[string][]models.Suggestion{"suggestions": suggestions})
}

// handleStockPrice responds to GET /api/stock-price?company= with a
// normalized quote.
func (s *Server) handleStockPrice(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	company := strings.TrimSpace(r.URL.Query().Get("company"))
	if company == "" {
		WriteError(w, http.StatusBadRequest, "Company name is required")
		return
	}

	price, err := s.app.Portfolio.Quote(r.Context(), company)
	if err != nil {
		WriteTypedError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, price)
}

// handleStockRatios responds to GET /api/stock-ratios/{ticker} with the
// grouped ratio set, served from the same-day cache when fresh.
func (s *Server) handleStockRatios(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ticker := strings.ToUpper(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/stock-ratios/"), "/"))
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker is required")
		return
	}

	groups, err := s.app.Detail.GroupedRatios(r.Context(), ticker)
	if err != nil {
		WriteTypedError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ticker": ticker,
		"groups": groups,
	})
}

// handleQuarterlyResults responds to GET /api/quarterly-results/{ticker}
// with the quarterly results table, served from the same-day cache when
// fresh.
func (s *Server) handleQuarterlyResults(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ticker := strings.ToUpper(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/quarterly-results/"), "/"))
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker is required")
		return
	}

	results, err := s.app.Detail.Quarterly(r.Context(), ticker)
	if err != nil {
		WriteTypedError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":    ticker,
		"quarterly": results,
	})
}

// handleHoldings routes GET (list + metrics) and POST (buy) on
// /api/holdings.
func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		views, metrics := s.app.Portfolio.Holdings(r.Context())
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"holdings":    views,
			"metrics":     metrics,
			"market_open": s.app.Poller.MarketOpen(),
		})
	case http.MethodPost:
		var req models.BuyRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		holding, message, err := s.app.Portfolio.Buy(r.Context(), req)
		if err != nil {
			WriteTypedError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, map[string]interface{}{
			"message": message,
			"holding": holding,
		})
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// routeHolding dispatches /api/holdings/{id} and
// /api/holdings/{id}/detail|ratios.
func (s *Server) routeHolding(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/holdings/"), "/")
	parts := strings.SplitN(rest, "/", 2)
	holdingID := parts[0]
	if holdingID == "" {
		WriteError(w, http.StatusBadRequest, "Holding id is required")
		return
	}

	if len(parts) == 2 {
		switch parts[1] {
		case "detail":
			s.handleHoldingDetail(w, r, holdingID)
		case "ratios":
			s.handleHoldingRatiosRetry(w, r, holdingID)
		default:
			WriteError(w, http.StatusNotFound, "Unknown holding resource")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		view, err := s.app.Portfolio.Holding(r.Context(), holdingID)
		if err != nil {
			WriteTypedError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, view)
	case http.MethodPatch:
		var req models.SellRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		message, err := s.app.Portfolio.Sell(r.Context(), holdingID, req)
		if err != nil {
			WriteTypedError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"message": message})
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPatch)
	}
}

// detailResponse serializes a progressive-load state. The ratios error is
// carried as a string scoped to the ratios sub-view.
type detailResponse struct {
	Stage     string              `json:"stage"`
	Holding   *models.HoldingView `json:"holding,omitempty"`
	Ratios    []models.RatioGroup `json:"ratios,omitempty"`
	RatiosErr string              `json:"ratios_error,omitempty"`
}

// handleHoldingDetail responds to GET /api/holdings/{id}/detail: it runs
// the identity stage synchronously, kicks the ratios stage, and returns
// the current progressive-load state.
func (s *Server) handleHoldingDetail(w http.ResponseWriter, r *http.Request, holdingID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	state, err := s.app.Detail.Load(r.Context(), holdingID)
	if err != nil {
		WriteTypedError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toDetailResponse(state))
}

// handleHoldingRatiosRetry responds to POST /api/holdings/{id}/ratios:
// standalone retry of the ratios stage. GET returns the current state.
func (s *Server) handleHoldingRatiosRetry(w http.ResponseWriter, r *http.Request, holdingID string) {
	switch r.Method {
	case http.MethodGet:
		WriteJSON(w, http.StatusOK, toDetailResponse(s.app.Detail.State(holdingID)))
	case http.MethodPost:
		state, err := s.app.Detail.RetryRatios(r.Context(), holdingID)
		if err != nil {
			WriteTypedError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, toDetailResponse(state))
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func toDetailResponse(state detail.State) detailResponse {
	resp := detailResponse{
		Stage:   string(state.Stage),
		Holding: state.Holding,
		Ratios:  state.Ratios,
	}
	if state.RatiosErr != nil {
		resp.RatiosErr = state.RatiosErr.Error()
	}
	return resp
}

// handlePollerStatus responds to GET /api/poller with on/off state and the
// live market-open indicator.
func (s *Server) handlePollerStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{
		"running":     s.app.Poller.Running(),
		"market_open": s.app.Poller.MarketOpen(),
	})
}

// handlePollerStart responds to POST /api/poller/start. Idempotent.
func (s *Server) handlePollerStart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	s.app.Poller.Start()
	WriteJSON(w, http.StatusOK, map[string]bool{"running": true})
}

// handlePollerStop responds to POST /api/poller/stop. Idempotent.
func (s *Server) handlePollerStop(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	s.app.Poller.Stop()
	WriteJSON(w, http.StatusOK, map[string]bool{"running": false})
}

// handlePollerRefresh responds to POST /api/poller/refresh: a synchronous
// one-shot price refresh, not gated on market hours.
func (s *Server) handlePollerRefresh(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	s.app.Poller.RefreshNow(r.Context())
	WriteJSON(w, http.StatusOK, map[string]bool{
		"refreshed":   true,
		"market_open": s.app.Poller.MarketOpen(),
	})
}
