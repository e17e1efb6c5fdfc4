package interfaces

import (
	"context"

	"github.com/rachitbansal/nivesh/internal/models"
)

// PortfolioService owns holdings state and valuation for one session.
type PortfolioService interface {
	// Buy applies a raw buy payload to the ledger after normalization.
	// Returns the resulting holding and a user-facing message.
	Buy(ctx context.Context, req models.BuyRequest) (*models.Holding, string, error)

	// Sell reduces a holding by the raw sellQuantity payload. Returns a
	// user-facing message describing the remaining position.
	Sell(ctx context.Context, holdingID string, req models.SellRequest) (string, error)

	// Holdings returns all holdings with per-holding metrics plus the
	// aggregate portfolio metrics, recomputed in full.
	Holdings(ctx context.Context) ([]models.HoldingView, models.PortfolioMetrics)

	// Holding resolves a single holding with metrics by id.
	Holding(ctx context.Context, holdingID string) (*models.HoldingView, error)

	// Quote looks up a normalized quote for a symbol via the upstream
	// service.
	Quote(ctx context.Context, symbol string) (*models.StockPrice, error)

	// Suggest returns ticker suggestions for a partial query.
	Suggest(ctx context.Context, query string) ([]models.Suggestion, error)
}
