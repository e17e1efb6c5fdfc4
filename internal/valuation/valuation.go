// Package valuation derives per-holding and aggregate portfolio metrics
// from ledger state and market snapshots. Every function here is pure:
// same inputs, bit-for-bit same outputs, no hidden state or clock.
package valuation

import (
	"github.com/rachitbansal/nivesh/internal/models"
)

// resolvePrices picks the snapshot prices when present, falling back to the
// holding's last known values.
func resolvePrices(h *models.Holding, snap *models.MarketSnapshot) (marketPrice, previousClose float64) {
	marketPrice = h.MarketPrice
	previousClose = h.PreviousClose
	if snap != nil {
		if snap.MarketPrice > 0 {
			marketPrice = snap.MarketPrice
		}
		if snap.PreviousClose > 0 {
			previousClose = snap.PreviousClose
		}
	}
	return marketPrice, previousClose
}

// ComputeHolding derives valuation metrics for a single holding. Percent
// fields are zero-guarded: a zero investment or previous close yields 0,
// never a division error.
func ComputeHolding(h *models.Holding, snap *models.MarketSnapshot) models.HoldingMetrics {
	marketPrice, previousClose := resolvePrices(h, snap)
	qty := float64(h.Quantity)

	m := models.HoldingMetrics{
		TotalInvestment: h.AvgPrice * qty,
		CurrentValue:    marketPrice * qty,
		OneDayChange:    (marketPrice - previousClose) * qty,
	}
	m.Returns = m.CurrentValue - m.TotalInvestment
	if m.TotalInvestment > 0 {
		m.ReturnsPercent = m.Returns / m.TotalInvestment * 100
	}
	if previousClose > 0 {
		m.OneDayChangePercent = (marketPrice - previousClose) / previousClose * 100
	}
	return m
}

// ComputePortfolio sums invested, current, and previous-close value across
// all holdings, then derives the aggregate delta/percent pairs with the
// same zero-guard rule as ComputeHolding. O(holdings) full recomputation,
// cheap enough to run on every read.
func ComputePortfolio(holdings []*models.Holding, snapshots map[string]models.MarketSnapshot) models.PortfolioMetrics {
	var invested, current, previous float64

	for _, h := range holdings {
		snap := snapshotFor(h, snapshots)
		marketPrice, previousClose := resolvePrices(h, snap)
		qty := float64(h.Quantity)

		invested += h.AvgPrice * qty
		current += marketPrice * qty
		previous += previousClose * qty
	}

	m := models.PortfolioMetrics{
		TotalInvested:     invested,
		TotalCurrent:      current,
		TotalReturns:      current - invested,
		TotalOneDayChange: current - previous,
	}
	if invested > 0 {
		m.TotalReturnsPercent = m.TotalReturns / invested * 100
	}
	if previous > 0 {
		m.TotalOneDayChangePercent = m.TotalOneDayChange / previous * 100
	}
	return m
}

func snapshotFor(h *models.Holding, snapshots map[string]models.MarketSnapshot) *models.MarketSnapshot {
	if snapshots == nil {
		return nil
	}
	if s, ok := snapshots[h.Symbol]; ok {
		return &s
	}
	return nil
}
