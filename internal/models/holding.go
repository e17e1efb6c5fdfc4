// Package models defines data structures for Nivesh
package models

import (
	"time"
)

// Exchange identifies the stock exchange a symbol trades on
type Exchange string

const (
	ExchangeNSE Exchange = "NSE"
	ExchangeBSE Exchange = "BSE"
)

// InferExchange derives the exchange from the symbol shape: purely-numeric
// scrip codes are BSE, everything else is NSE.
func InferExchange(symbol string) Exchange {
	if symbol == "" {
		return ExchangeNSE
	}
	for _, r := range symbol {
		if r < '0' || r > '9' {
			return ExchangeNSE
		}
	}
	return ExchangeBSE
}

// Purchase records a single buy transaction. Sells never append purchases;
// they only reduce the holding's quantity.
type Purchase struct {
	Date     string  `json:"date"` // YYYY-MM-DD, advisory only
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Holding represents a tracked position in one symbol.
// Quantity always equals the net of applied buys and sells; a holding that
// reaches zero quantity is removed from the ledger entirely.
type Holding struct {
	ID            string     `json:"id"`
	Symbol        string     `json:"symbol"`
	Ticker        string     `json:"ticker"`
	Name          string     `json:"name"`
	Exchange      Exchange   `json:"exchange"`
	Quantity      int        `json:"quantity"`
	AvgPrice      float64    `json:"avgPrice"`
	MarketPrice   float64    `json:"marketPrice"`   // last known, refreshed on snapshot apply
	PreviousClose float64    `json:"previousClose"` // last known, refreshed on snapshot apply
	Purchases     []Purchase `json:"purchases"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Clone returns a deep copy so callers can never mutate ledger state directly.
func (h *Holding) Clone() *Holding {
	c := *h
	c.Purchases = make([]Purchase, len(h.Purchases))
	copy(c.Purchases, h.Purchases)
	return &c
}

// HoldingMetrics holds per-holding valuation figures derived from ledger
// state and the current market snapshot. Never stored.
type HoldingMetrics struct {
	TotalInvestment     float64 `json:"total_investment"`
	CurrentValue        float64 `json:"current_value"`
	Returns             float64 `json:"returns"`
	ReturnsPercent      float64 `json:"returns_percent"`
	OneDayChange        float64 `json:"one_day_change"`
	OneDayChangePercent float64 `json:"one_day_change_percent"`
}

// PortfolioMetrics aggregates valuation across the full holding set.
// Recomputed wholesale on every read; never stored.
type PortfolioMetrics struct {
	TotalInvested            float64 `json:"total_invested"`
	TotalCurrent             float64 `json:"total_current"`
	TotalReturns             float64 `json:"total_returns"`
	TotalReturnsPercent      float64 `json:"total_returns_percent"`
	TotalOneDayChange        float64 `json:"total_one_day_change"`
	TotalOneDayChangePercent float64 `json:"total_one_day_change_percent"`
}

// HoldingView pairs a holding with its computed metrics for presentation.
type HoldingView struct {
	Holding
	Metrics HoldingMetrics `json:"metrics"`
}
