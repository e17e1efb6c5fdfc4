package normalize

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		raw      any
		expected float64
	}{
		{"nil", nil, 0},
		{"float64", 410.65, 410.65},
		{"float32", float32(2.5), 2.5},
		{"int", 150, 150},
		{"int64", int64(2500), 2500},
		{"json.Number", json.Number("99.9"), 99.9},
		{"plain string", "410.65", 410.65},
		{"rupee symbol", "₹410.65", 410.65},
		{"thousands separators", "1,23,456.78", 123456.78},
		{"currency prefix", "Rs. 2,500", 2500},
		{"percent suffix", "12.5%", 12.5},
		{"negative string", "-3.2", -3.2},
		{"negative with symbol", "-₹1,000", -1000},
		{"whitespace", "  250.00  ", 250},
		{"empty string", "", 0},
		{"not a number", "N/A", 0},
		{"only symbols", "₹,--", 0},
		{"nan", math.NaN(), 0},
		{"positive infinity", math.Inf(1), 0},
		{"negative infinity", math.Inf(-1), 0},
		{"bool fallback", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAmount(tt.raw)
			if got != tt.expected {
				t.Errorf("ParseAmount(%v) = %v, want %v", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name     string
		raw      any
		expected int
	}{
		{"int", 10, 10},
		{"int64", int64(25), 25},
		{"float truncates", 10.9, 10},
		{"string", "15", 15},
		{"string with commas", "1,000", 1000},
		{"negative", "-5", -5},
		{"garbage", "abc", 0},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseQuantity(tt.raw)
			if got != tt.expected {
				t.Errorf("ParseQuantity(%v) = %d, want %d", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestFlexFloatUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected float64
	}{
		{"number", `{"value": 410.65}`, 410.65},
		{"numeric string", `{"value": "410.65"}`, 410.65},
		{"formatted string", `{"value": "₹1,234.50"}`, 1234.5},
		{"not applicable", `{"value": "N/A"}`, 0},
		{"null", `{"value": null}`, 0},
		{"object", `{"value": {"nested": 1}}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				Value FlexFloat `json:"value"`
			}
			if err := json.Unmarshal([]byte(tt.payload), &out); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if out.Value.Float64() != tt.expected {
				t.Errorf("FlexFloat = %v, want %v", out.Value.Float64(), tt.expected)
			}
		})
	}
}
