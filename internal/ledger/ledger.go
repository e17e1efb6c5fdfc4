// Package ledger owns the authoritative in-memory set of holdings and
// their transaction history. All mutation goes through the Ledger's own
// operations; callers only ever see copies of holdings.
package ledger

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rachitbansal/nivesh/internal/common"
	"github.com/rachitbansal/nivesh/internal/models"
)

// Identity describes the holding a purchase applies to. Matching is by ID
// when set, otherwise by symbol+exchange. Exchange is inferred from the
// symbol shape when absent.
type Identity struct {
	ID       string
	Symbol   string
	Name     string
	Exchange models.Exchange
}

// Ledger is the single owner of holding state for one session. It is safe
// for concurrent use; external callers serialize through its operations.
type Ledger struct {
	mu       sync.Mutex
	holdings []*models.Holding // insertion order
	byID     map[string]*models.Holding
	now      func() time.Time
}

// New creates an empty ledger
func New() *Ledger {
	return &Ledger{
		byID: make(map[string]*models.Holding),
		now:  time.Now,
	}
}

// AddPurchase applies a buy. An existing holding (matched by id, or by
// symbol+exchange) gets the purchase appended, its quantity increased, and
// its average price recomputed as the quantity-weighted running average.
// Otherwise a new holding is created. The purchase is validated before any
// state changes.
func (l *Ledger) AddPurchase(id Identity, p models.Purchase) (*models.Holding, error) {
	if p.Quantity <= 0 {
		return nil, common.NewValidationError("quantity", "must be > 0")
	}
	if p.Price <= 0 {
		return nil, common.NewValidationError("price", "must be > 0")
	}
	if strings.TrimSpace(p.Date) == "" {
		return nil, common.NewValidationError("date", "is required")
	}

	symbol := strings.ToUpper(strings.TrimSpace(id.Symbol))
	if id.ID == "" && symbol == "" {
		return nil, common.NewValidationError("symbol", "is required")
	}

	exchange := id.Exchange
	if exchange == "" {
		exchange = models.InferExchange(symbol)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	h := l.lookup(id.ID, symbol, exchange)
	if h == nil {
		h = &models.Holding{
			ID:        uuid.New().String(),
			Symbol:    symbol,
			Ticker:    strings.ToLower(symbol),
			Name:      id.Name,
			Exchange:  exchange,
			Quantity:  p.Quantity,
			AvgPrice:  p.Price,
			Purchases: []models.Purchase{p},
			CreatedAt: l.now(),
		}
		if h.Name == "" {
			h.Name = symbol
		}
		l.holdings = append(l.holdings, h)
		l.byID[h.ID] = h
		return h.Clone(), nil
	}

	oldQty := float64(h.Quantity)
	newQty := float64(p.Quantity)
	h.AvgPrice = (h.AvgPrice*oldQty + p.Price*newQty) / (oldQty + newQty)
	h.Quantity += p.Quantity
	h.Purchases = append(h.Purchases, p)
	return h.Clone(), nil
}

// Sell reduces a holding's quantity. Average price and purchase history are
// left untouched; cost basis is never revalued downward. When quantity
// reaches zero the holding is removed entirely (terminal state: re-buying
// the same symbol creates a new identity) and removed is true.
func (l *Ledger) Sell(holdingID string, sellQuantity int) (remaining *models.Holding, removed bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.byID[holdingID]
	if !ok {
		return nil, false, common.NewNotFoundError("holding", holdingID)
	}
	if sellQuantity < 1 {
		return nil, false, common.NewValidationError("sellQuantity", "must be >= 1")
	}
	if sellQuantity > h.Quantity {
		return nil, false, common.NewValidationError("sellQuantity", "exceeds held quantity")
	}

	h.Quantity -= sellQuantity
	if h.Quantity == 0 {
		l.remove(holdingID)
		return nil, true, nil
	}
	return h.Clone(), false, nil
}

// Get returns a copy of the holding with the given id
func (l *Ledger) Get(holdingID string) (*models.Holding, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.byID[holdingID]
	if !ok {
		return nil, common.NewNotFoundError("holding", holdingID)
	}
	return h.Clone(), nil
}

// List returns copies of all holdings in insertion order
func (l *Ledger) List() []*models.Holding {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*models.Holding, 0, len(l.holdings))
	for _, h := range l.holdings {
		out = append(out, h.Clone())
	}
	return out
}

// Symbols returns the distinct tracked symbols in insertion order
func (l *Ledger) Symbols() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]bool, len(l.holdings))
	out := make([]string, 0, len(l.holdings))
	for _, h := range l.holdings {
		if !seen[h.Symbol] {
			seen[h.Symbol] = true
			out = append(out, h.Symbol)
		}
	}
	return out
}

// UpdatePrices refreshes the last-known market price fields on every
// holding in the given symbol's position. Zero values are skipped so a
// sparse snapshot never wipes known prices.
func (l *Ledger) UpdatePrices(symbol string, marketPrice, previousClose float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, h := range l.holdings {
		if h.Symbol != symbol {
			continue
		}
		if marketPrice > 0 {
			h.MarketPrice = marketPrice
		}
		if previousClose > 0 {
			h.PreviousClose = previousClose
		}
	}
}

// lookup finds a holding by id first, then by symbol+exchange. Caller
// holds the mutex.
func (l *Ledger) lookup(id, symbol string, exchange models.Exchange) *models.Holding {
	if id != "" {
		if h, ok := l.byID[id]; ok {
			return h
		}
	}
	for _, h := range l.holdings {
		if h.Symbol == symbol && h.Exchange == exchange {
			return h
		}
	}
	return nil
}

// remove deletes a holding, preserving insertion order of the rest. Caller
// holds the mutex.
func (l *Ledger) remove(holdingID string) {
	delete(l.byID, holdingID)
	for i, h := range l.holdings {
		if h.ID == holdingID {
			l.holdings = append(l.holdings[:i], l.holdings[i+1:]...)
			return
		}
	}
}
