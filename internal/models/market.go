package models

import "time"

// MarketSnapshot is the most recently fetched market price state for a
// symbol. Produced exclusively by the market poller and replaced wholesale
// on each successful refresh; never persisted.
type MarketSnapshot struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	MarketPrice   float64   `json:"market_price"`
	PreviousClose float64   `json:"previous_close"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// StockPrice is the normalized quote exposed to the presentation layer.
type StockPrice struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	PreviousClose float64 `json:"previous_close"`
}

// Suggestion is one entry of the ticker search suggestions.
type Suggestion struct {
	Ticker        string `json:"ticker"`
	DisplayTicker string `json:"display_ticker"`
	CompanyName   string `json:"company_name"`
}

// BuyRequest is the raw buy mutation payload. Field presence is not
// guaranteed and numeric fields arrive as strings, numbers, or currency
// text; everything passes through the normalizer before it reaches the
// ledger.
type BuyRequest struct {
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	Ticker        string `json:"ticker"`
	Price         any    `json:"price"`
	BuyPrice      any    `json:"buyPrice"`
	MarketPrice   any    `json:"marketPrice"`
	PreviousClose any    `json:"previousClose"`
	Quantity      any    `json:"quantity"`
	Exchange      string `json:"exchange"`
	Date          string `json:"date"`
}

// SellRequest is the raw sell mutation payload against a holding id.
type SellRequest struct {
	SellQuantity any `json:"sellQuantity"`
}
