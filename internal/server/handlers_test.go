package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rachitbansal/nivesh/internal/app"
	"github.com/rachitbansal/nivesh/internal/common"
	"github.com/rachitbansal/nivesh/internal/detail"
	"github.com/rachitbansal/nivesh/internal/models"
	"github.com/rachitbansal/nivesh/internal/poller"
	"github.com/rachitbansal/nivesh/internal/services/portfolio"
)

// fakeMarketClient serves canned upstream responses.
type fakeMarketClient struct {
	quotes      map[string]*models.StockPrice
	suggestions []models.Suggestion
	ratios      models.RatioSet
	ratiosErr   error
	quarterly   *models.QuarterlyResults
}

func (f *fakeMarketClient) GetQuote(ctx context.Context, symbol string, exchange models.Exchange) (*models.StockPrice, error) {
	if q, ok := f.quotes[symbol]; ok {
		return q, nil
	}
	return nil, common.NewNotFoundError("ticker", symbol)
}

func (f *fakeMarketClient) GetSuggestions(ctx context.Context, query string) ([]models.Suggestion, error) {
	return f.suggestions, nil
}

func (f *fakeMarketClient) GetRatios(ctx context.Context, ticker string) (models.RatioSet, error) {
	if f.ratiosErr != nil {
		return nil, f.ratiosErr
	}
	return f.ratios, nil
}

func (f *fakeMarketClient) GetQuarterly(ctx context.Context, ticker string) (*models.QuarterlyResults, error) {
	if f.quarterly == nil {
		return nil, common.NewNotFoundError("quarterly results", ticker)
	}
	return f.quarterly, nil
}

func newTestServer(client *fakeMarketClient) *Server {
	if client == nil {
		client = &fakeMarketClient{}
	}
	logger := common.NewSilentLogger()
	portfolioService := portfolio.NewService(client, logger)
	detailLoader := detail.NewLoader(portfolioService, client, logger)
	marketPoller := poller.New(
		portfolioService.Ledger().Symbols,
		portfolioService.FetchSnapshots,
		portfolioService.ApplySnapshots,
		poller.WithLogger(logger),
	)

	a := &app.App{
		Config:      common.NewDefaultConfig(),
		Logger:      logger,
		Client:      client,
		Portfolio:   portfolioService,
		Detail:      detailLoader,
		Poller:      marketPoller,
		StartupTime: time.Now(),
	}
	return NewServer(a)
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func buyPayload(ticker string, qty int, price float64) models.BuyRequest {
	return models.BuyRequest{
		Ticker:   ticker,
		Quantity: qty,
		Price:    price,
		Date:     "2025-06-01",
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(nil)

	rec := doRequest(t, s, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decodeBody(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["polling"])
}

func TestBuyAndListHoldings(t *testing.T) {
	s := newTestServer(nil)

	rec := doRequest(t, s, http.MethodPost, "/api/holdings", buyPayload("tcs", 10, 3450.50))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Message string         `json:"message"`
		Holding models.Holding `json:"holding"`
	}
	decodeBody(t, rec, &created)
	assert.Equal(t, "Holding added successfully", created.Message)
	assert.Equal(t, "TCS", created.Holding.Symbol)

	rec = doRequest(t, s, http.MethodGet, "/api/holdings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Holdings []models.HoldingView    `json:"holdings"`
		Metrics  models.PortfolioMetrics `json:"metrics"`
	}
	decodeBody(t, rec, &list)
	require.Len(t, list.Holdings, 1)
	assert.Equal(t, 3450.5, list.Holdings[0].AvgPrice)
	assert.Equal(t, 34505.0, list.Metrics.TotalInvested)
}

func TestBuyRawStringPayload(t *testing.T) {
	s := newTestServer(nil)

	// Numeric fields arrive as formatted strings; the API accepts them.
	rec := doRequest(t, s, http.MethodPost, "/api/holdings", map[string]interface{}{
		"ticker":   "reliance",
		"quantity": "5",
		"price":    "₹1,450.50",
		"date":     "2025-06-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Holding models.Holding `json:"holding"`
	}
	decodeBody(t, rec, &created)
	assert.Equal(t, 5, created.Holding.Quantity)
	assert.Equal(t, 1450.5, created.Holding.AvgPrice)
}

func TestBuyValidationError(t *testing.T) {
	s := newTestServer(nil)

	rec := doRequest(t, s, http.MethodPost, "/api/holdings", buyPayload("tcs", 0, 100))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	decodeBody(t, rec, &body)
	assert.Contains(t, body.Error, "quantity")
}

func TestSellFlow(t *testing.T) {
	s := newTestServer(nil)

	rec := doRequest(t, s, http.MethodPost, "/api/holdings", buyPayload("tcs", 20, 100))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Holding models.Holding `json:"holding"`
	}
	decodeBody(t, rec, &created)

	rec = doRequest(t, s, http.MethodPatch, "/api/holdings/"+created.Holding.ID,
		map[string]interface{}{"sellQuantity": "5"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sold map[string]string
	decodeBody(t, rec, &sold)
	assert.Equal(t, "Sold 5 shares, 15 remaining", sold["message"])

	// Overselling is rejected without changing state.
	rec = doRequest(t, s, http.MethodPatch, "/api/holdings/"+created.Holding.ID,
		map[string]interface{}{"sellQuantity": 100})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/holdings/"+created.Holding.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view models.HoldingView
	decodeBody(t, rec, &view)
	assert.Equal(t, 15, view.Quantity)
}

func TestSellUnknownHolding(t *testing.T) {
	s := newTestServer(nil)

	rec := doRequest(t, s, http.MethodPatch, "/api/holdings/no-such-id",
		map[string]interface{}{"sellQuantity": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSuggestionsEndpoint(t *testing.T) {
	s := newTestServer(&fakeMarketClient{suggestions: []models.Suggestion{
		{Ticker: "tcs", DisplayTicker: "TCS", CompanyName: "Tata Consultancy Services"},
	}})

	rec := doRequest(t, s, http.MethodGet, "/api/suggestions?q=tat", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Suggestions []models.Suggestion `json:"suggestions"`
	}
	decodeBody(t, rec, &body)
	require.Len(t, body.Suggestions, 1)
	assert.Equal(t, "TCS", body.Suggestions[0].DisplayTicker)

	// Empty query short-circuits to an empty list.
	rec = doRequest(t, s, http.MethodGet, "/api/suggestions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &body)
	assert.Empty(t, body.Suggestions)
}

func TestStockPriceEndpoint(t *testing.T) {
	s := newTestServer(&fakeMarketClient{quotes: map[string]*models.StockPrice{
		"TCS": {Symbol: "TCS", Name: "Tata Consultancy Services", Price: 3450.5, PreviousClose: 3440},
	}})

	rec := doRequest(t, s, http.MethodGet, "/api/stock-price?company=tcs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var price models.StockPrice
	decodeBody(t, rec, &price)
	assert.Equal(t, 3450.5, price.Price)

	rec = doRequest(t, s, http.MethodGet, "/api/stock-price", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/stock-price?company=nosuch", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStockRatiosEndpoint(t *testing.T) {
	s := newTestServer(&fakeMarketClient{ratios: models.RatioSet{
		"ROE": {FullValue: "45.2 %", NumberValue: "45.2", Unit: "%"},
	}})

	rec := doRequest(t, s, http.MethodGet, "/api/stock-ratios/tcs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Ticker string              `json:"ticker"`
		Groups []models.RatioGroup `json:"groups"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, "TCS", body.Ticker)
	require.Len(t, body.Groups, 1)
	assert.Equal(t, models.CategoryProfitability, body.Groups[0].Category)

	rec = doRequest(t, s, http.MethodGet, "/api/stock-ratios/", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHoldingDetailEndpoint(t *testing.T) {
	s := newTestServer(&fakeMarketClient{ratios: models.RatioSet{
		"ROE": {FullValue: "45.2 %"},
	}})

	rec := doRequest(t, s, http.MethodPost, "/api/holdings", buyPayload("tcs", 10, 100))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Holding models.Holding `json:"holding"`
	}
	decodeBody(t, rec, &created)

	rec = doRequest(t, s, http.MethodGet, "/api/holdings/"+created.Holding.ID+"/detail", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var state struct {
		Stage   string              `json:"stage"`
		Holding *models.HoldingView `json:"holding"`
	}
	decodeBody(t, rec, &state)
	require.NotNil(t, state.Holding)
	assert.Equal(t, "TCS", state.Holding.Symbol)
	assert.NotEqual(t, "idle", state.Stage)

	// Detail for an unknown holding is a clean 404, and its ratios state
	// stays idle.
	rec = doRequest(t, s, http.MethodGet, "/api/holdings/no-such-id/detail", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/holdings/no-such-id/ratios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &state)
	assert.Equal(t, "idle", state.Stage)
}

func TestPollerControlEndpoints(t *testing.T) {
	s := newTestServer(nil)

	rec := doRequest(t, s, http.MethodGet, "/api/poller", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]bool
	decodeBody(t, rec, &status)
	assert.False(t, status["running"])

	rec = doRequest(t, s, http.MethodPost, "/api/poller/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/poller", nil)
	decodeBody(t, rec, &status)
	assert.True(t, status["running"])

	rec = doRequest(t, s, http.MethodPost, "/api/poller/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/poller", nil)
	decodeBody(t, rec, &status)
	assert.False(t, status["running"])
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(nil)

	rec := doRequest(t, s, http.MethodDelete, "/api/holdings", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/poller/start", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflights(t *testing.T) {
	s := newTestServer(nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/holdings", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestInvalidJSONBody(t *testing.T) {
	s := newTestServer(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/holdings", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPollerRefreshEndpoint(t *testing.T) {
	client := &fakeMarketClient{quotes: map[string]*models.StockPrice{
		"TCS": {Symbol: "TCS", Name: "Tata Consultancy", Price: 3500, PreviousClose: 3480},
	}}
	s := newTestServer(client)

	rec := doRequest(t, s, http.MethodPost, "/api/holdings", buyPayload("tcs", 10, 3450.50))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Prices moved upstream; a forced refresh must pick them up without
	// the background poller running.
	client.quotes["TCS"] = &models.StockPrice{Symbol: "TCS", Name: "Tata Consultancy", Price: 3600, PreviousClose: 3500}

	rec = doRequest(t, s, http.MethodPost, "/api/poller/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]bool
	decodeBody(t, rec, &status)
	assert.True(t, status["refreshed"])

	rec = doRequest(t, s, http.MethodGet, "/api/holdings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Holdings []models.HoldingView `json:"holdings"`
	}
	decodeBody(t, rec, &list)
	require.Len(t, list.Holdings, 1)
	assert.Equal(t, 3600.0, list.Holdings[0].MarketPrice)
	assert.Equal(t, 3500.0, list.Holdings[0].PreviousClose)

	rec = doRequest(t, s, http.MethodGet, "/api/poller/refresh", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestQuarterlyResultsEndpoint(t *testing.T) {
	s := newTestServer(&fakeMarketClient{quarterly: &models.QuarterlyResults{
		Quarters: []string{"Mar 2025", "Jun 2025"},
		Rows:     []models.QuarterlyRow{{Label: "Sales", Values: []string{"1,200", "1,350"}}},
	}})

	rec := doRequest(t, s, http.MethodGet, "/api/quarterly-results/tcs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Ticker    string                  `json:"ticker"`
		Quarterly models.QuarterlyResults `json:"quarterly"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, "TCS", body.Ticker)
	require.Len(t, body.Quarterly.Quarters, 2)
	require.Len(t, body.Quarterly.Rows, 1)
	assert.Equal(t, "Sales", body.Quarterly.Rows[0].Label)

	rec = doRequest(t, s, http.MethodGet, "/api/quarterly-results/", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuarterlyResultsNotFound(t *testing.T) {
	s := newTestServer(nil)

	rec := doRequest(t, s, http.MethodGet, "/api/quarterly-results/nosuch", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
