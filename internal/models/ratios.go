package models

import "sort"

// RatioValue is one financial ratio as reported by the upstream service:
// the bare number, its unit, and the full display representation.
type RatioValue struct {
	FullValue   string `json:"full_value"`
	NumberValue string `json:"number_value"`
	Unit        string `json:"unit"`
}

// RatioSet is a sparse mapping from ratio label to value, associated with
// a holding by ticker. May be absent or partially populated.
type RatioSet map[string]RatioValue

// RatioCategory names one of the four fixed ratio groups.
type RatioCategory string

const (
	CategoryValuation       RatioCategory = "valuation"
	CategoryProfitability   RatioCategory = "profitability"
	CategoryFinancialHealth RatioCategory = "financial_health"
	CategoryOther           RatioCategory = "other"
)

// RatioEntry is a labeled ratio within a group.
type RatioEntry struct {
	Label string     `json:"label"`
	Value RatioValue `json:"value"`
}

// RatioGroup is a rendered category with its entries. Categories with zero
// entries are omitted from output, not shown empty.
type RatioGroup struct {
	Category RatioCategory `json:"category"`
	Entries  []RatioEntry  `json:"entries"`
}

// Static label membership tables. Any label not listed falls into "other".
var (
	valuationLabels = []string{
		"Market Cap",
		"Current Price",
		"High / Low",
		"Stock P/E",
		"Book Value",
		"Price to book value",
		"EV/EBITDA",
	}
	profitabilityLabels = []string{
		"ROCE",
		"ROE",
		"OPM",
		"NPM",
		"Dividend Yield",
		"Profit growth",
		"Sales growth",
	}
	financialHealthLabels = []string{
		"Debt",
		"Debt to equity",
		"Current ratio",
		"Quick ratio",
		"Interest Coverage",
		"Reserves",
	}
)

func categoryFor(label string) RatioCategory {
	for _, l := range valuationLabels {
		if l == label {
			return CategoryValuation
		}
	}
	for _, l := range profitabilityLabels {
		if l == label {
			return CategoryProfitability
		}
	}
	for _, l := range financialHealthLabels {
		if l == label {
			return CategoryFinancialHealth
		}
	}
	return CategoryOther
}

// GroupRatios partitions a RatioSet into the four fixed categories by
// static label membership. Within a category, entries follow the table
// order above; "other" entries keep no particular order guarantee beyond
// being deterministic for a given set.
func GroupRatios(set RatioSet) []RatioGroup {
	if len(set) == 0 {
		return nil
	}

	ordered := func(labels []string, cat RatioCategory) *RatioGroup {
		var entries []RatioEntry
		for _, l := range labels {
			if v, ok := set[l]; ok {
				entries = append(entries, RatioEntry{Label: l, Value: v})
			}
		}
		if len(entries) == 0 {
			return nil
		}
		return &RatioGroup{Category: cat, Entries: entries}
	}

	var groups []RatioGroup
	if g := ordered(valuationLabels, CategoryValuation); g != nil {
		groups = append(groups, *g)
	}
	if g := ordered(profitabilityLabels, CategoryProfitability); g != nil {
		groups = append(groups, *g)
	}
	if g := ordered(financialHealthLabels, CategoryFinancialHealth); g != nil {
		groups = append(groups, *g)
	}

	// Remaining labels fall into "other", sorted for determinism.
	var other []string
	for label := range set {
		if categoryFor(label) == CategoryOther {
			other = append(other, label)
		}
	}
	if len(other) > 0 {
		sort.Strings(other)
		g := RatioGroup{Category: CategoryOther}
		for _, l := range other {
			g.Entries = append(g.Entries, RatioEntry{Label: l, Value: set[l]})
		}
		groups = append(groups, g)
	}

	return groups
}
