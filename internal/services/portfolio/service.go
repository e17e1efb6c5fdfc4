// Package portfolio ties the holding ledger, market snapshot store, and
// valuation calculator together behind one service. It is the entry point
// for raw buy/sell payloads and the single owner of snapshot state.
package portfolio

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rachitbansal/nivesh/internal/common"
	"github.com/rachitbansal/nivesh/internal/interfaces"
	"github.com/rachitbansal/nivesh/internal/ledger"
	"github.com/rachitbansal/nivesh/internal/models"
	"github.com/rachitbansal/nivesh/internal/normalize"
	"github.com/rachitbansal/nivesh/internal/valuation"
)

// Service implements interfaces.PortfolioService
type Service struct {
	ledger *ledger.Ledger
	client interfaces.MarketDataClient
	logger *common.Logger

	mu        sync.RWMutex
	snapshots map[string]models.MarketSnapshot
	now       func() time.Time
}

// NewService creates a new portfolio service around an empty ledger
func NewService(client interfaces.MarketDataClient, logger *common.Logger) *Service {
	return &Service{
		ledger:    ledger.New(),
		client:    client,
		logger:    logger,
		snapshots: make(map[string]models.MarketSnapshot),
		now:       time.Now,
	}
}

// Ledger exposes the underlying ledger for wiring (poller symbol source)
func (s *Service) Ledger() *ledger.Ledger {
	return s.ledger
}

// Buy normalizes a raw buy payload and applies it to the ledger.
func (s *Service) Buy(ctx context.Context, req models.BuyRequest) (*models.Holding, string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if symbol == "" {
		symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	}
	if symbol == "" {
		return nil, "", common.NewValidationError("ticker", "is required")
	}

	price := normalize.ParseAmount(req.Price)
	if price <= 0 {
		price = normalize.ParseAmount(req.BuyPrice)
	}
	quantity := normalize.ParseQuantity(req.Quantity)

	exchange := models.Exchange(strings.ToUpper(strings.TrimSpace(req.Exchange)))
	if exchange != models.ExchangeNSE && exchange != models.ExchangeBSE {
		exchange = models.InferExchange(symbol)
	}

	existing := s.findBySymbol(symbol, exchange)

	identity := ledger.Identity{
		Symbol:   symbol,
		Name:     strings.TrimSpace(req.Name),
		Exchange: exchange,
	}
	purchase := models.Purchase{
		Date:     strings.TrimSpace(req.Date),
		Quantity: quantity,
		Price:    price,
	}

	h, err := s.ledger.AddPurchase(identity, purchase)
	if err != nil {
		return nil, "", err
	}

	// Seed last-known prices from the payload so a holding has usable
	// valuation data before the first poll completes.
	marketPrice := normalize.ParseAmount(req.MarketPrice)
	previousClose := normalize.ParseAmount(req.PreviousClose)
	s.ledger.UpdatePrices(symbol, marketPrice, previousClose)

	s.logger.Info().
		Str("symbol", symbol).
		Str("exchange", string(exchange)).
		Int("quantity", quantity).
		Float64("price", price).
		Msg("Purchase applied")

	message := "Holding added successfully"
	if existing {
		message = "Existing holding updated"
	}

	h, _ = s.ledger.Get(h.ID)
	return h, message, nil
}

// Sell normalizes a raw sell payload and reduces the holding. The message
// mirrors the original API: remaining share count, or full removal.
func (s *Service) Sell(ctx context.Context, holdingID string, req models.SellRequest) (string, error) {
	sellQuantity := normalize.ParseQuantity(req.SellQuantity)

	remaining, removed, err := s.ledger.Sell(holdingID, sellQuantity)
	if err != nil {
		return "", err
	}

	s.logger.Info().
		Str("holding", holdingID).
		Int("quantity", sellQuantity).
		Bool("removed", removed).
		Msg("Shares sold")

	if removed {
		return "Holding fully sold and removed", nil
	}
	return fmt.Sprintf("Sold %d shares, %d remaining", sellQuantity, remaining.Quantity), nil
}

// Holdings returns every holding with metrics plus the aggregate portfolio
// metrics, all recomputed from current ledger state and snapshots.
func (s *Service) Holdings(ctx context.Context) ([]models.HoldingView, models.PortfolioMetrics) {
	holdings := s.ledger.List()
	snapshots := s.Snapshots()

	views := make([]models.HoldingView, 0, len(holdings))
	for _, h := range holdings {
		var snap *models.MarketSnapshot
		if sn, ok := snapshots[h.Symbol]; ok {
			snap = &sn
		}
		views = append(views, models.HoldingView{
			Holding: *h,
			Metrics: valuation.ComputeHolding(h, snap),
		})
	}

	return views, valuation.ComputePortfolio(holdings, snapshots)
}

// Holding resolves one holding with metrics by id
func (s *Service) Holding(ctx context.Context, holdingID string) (*models.HoldingView, error) {
	h, err := s.ledger.Get(holdingID)
	if err != nil {
		return nil, err
	}

	snapshots := s.Snapshots()
	var snap *models.MarketSnapshot
	if sn, ok := snapshots[h.Symbol]; ok {
		snap = &sn
	}

	return &models.HoldingView{
		Holding: *h,
		Metrics: valuation.ComputeHolding(h, snap),
	}, nil
}

// Quote looks up a normalized quote via the upstream service
func (s *Service) Quote(ctx context.Context, symbol string) (*models.StockPrice, error) {
	symbol = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(symbol), " ", ""))
	if symbol == "" {
		return nil, common.NewValidationError("symbol", "is required")
	}
	return s.client.GetQuote(ctx, symbol, models.InferExchange(symbol))
}

// Suggest returns ticker suggestions for a partial query
func (s *Service) Suggest(ctx context.Context, query string) ([]models.Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	return s.client.GetSuggestions(ctx, query)
}

// FetchSnapshots performs one refresh for the given symbols. It is the
// poller's fetch function: all-or-nothing, so one failed symbol fails the
// whole tick and the previous snapshot set stays current.
func (s *Service) FetchSnapshots(ctx context.Context, symbols []string) (map[string]models.MarketSnapshot, error) {
	fresh := make(map[string]models.MarketSnapshot, len(symbols))
	for _, symbol := range symbols {
		quote, err := s.client.GetQuote(ctx, symbol, models.InferExchange(symbol))
		if err != nil {
			return nil, fmt.Errorf("quote %s: %w", symbol, err)
		}
		fresh[symbol] = models.MarketSnapshot{
			Symbol:        symbol,
			Name:          quote.Name,
			MarketPrice:   quote.Price,
			PreviousClose: quote.PreviousClose,
			FetchedAt:     s.now(),
		}
	}
	return fresh, nil
}

// ApplySnapshots replaces the snapshot collection wholesale and refreshes
// the holdings' last-known prices. Readers never observe a partial set.
func (s *Service) ApplySnapshots(snapshots map[string]models.MarketSnapshot) {
	s.mu.Lock()
	s.snapshots = snapshots
	s.mu.Unlock()

	for symbol, snap := range snapshots {
		s.ledger.UpdatePrices(symbol, snap.MarketPrice, snap.PreviousClose)
	}
}

// Snapshots returns a copy of the current snapshot collection
func (s *Service) Snapshots() map[string]models.MarketSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.MarketSnapshot, len(s.snapshots))
	for k, v := range s.snapshots {
		out[k] = v
	}
	return out
}

func (s *Service) findBySymbol(symbol string, exchange models.Exchange) bool {
	for _, h := range s.ledger.List() {
		if h.Symbol == symbol && h.Exchange == exchange {
			return true
		}
	}
	return false
}
