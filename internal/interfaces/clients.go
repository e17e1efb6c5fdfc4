// Package interfaces defines service contracts for Nivesh
package interfaces

import (
	"context"

	"github.com/rachitbansal/nivesh/internal/models"
)

// MarketDataClient provides access to the upstream market-data service.
// It is an opaque request/response API reachable by symbol; payload shapes
// are loosely typed and normalized at the client boundary.
type MarketDataClient interface {
	// GetQuote retrieves the current price, previous close, and display
	// name for a symbol.
	GetQuote(ctx context.Context, symbol string, exchange models.Exchange) (*models.StockPrice, error)

	// GetSuggestions retrieves ticker suggestions for a partial query
	// (minimum length 1), in upstream ranking order.
	GetSuggestions(ctx context.Context, query string) ([]models.Suggestion, error)

	// GetRatios retrieves the financial ratio set for a ticker. The set
	// may be sparse or entirely absent.
	GetRatios(ctx context.Context, ticker string) (models.RatioSet, error)

	// GetQuarterly retrieves the quarterly results table for a ticker.
	GetQuarterly(ctx context.Context, ticker string) (*models.QuarterlyResults, error)
}
