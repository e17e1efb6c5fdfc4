package poller

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MarketWindow is the daily open/close gate for polling, expressed in
// minutes since midnight in a fixed exchange timezone. The window is
// inclusive at both ends.
type MarketWindow struct {
	openMinutes  int
	closeMinutes int
	loc          *time.Location
}

// DefaultWindow is the NSE/BSE trading window, 09:00-15:30 IST.
func DefaultWindow() MarketWindow {
	w, _ := NewMarketWindow("09:00", "15:30", "Asia/Kolkata")
	return w
}

// NewMarketWindow builds a window from "HH:MM" open/close times and an
// IANA timezone name. An unknown timezone falls back to fixed IST so a
// minimal container without tzdata still gates correctly.
func NewMarketWindow(open, close, timezone string) (MarketWindow, error) {
	openMin, err := parseClock(open)
	if err != nil {
		return MarketWindow{}, fmt.Errorf("market open: %w", err)
	}
	closeMin, err := parseClock(close)
	if err != nil {
		return MarketWindow{}, fmt.Errorf("market close: %w", err)
	}
	if closeMin < openMin {
		return MarketWindow{}, fmt.Errorf("market close %s before open %s", close, open)
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.FixedZone("IST", int(5*time.Hour.Seconds()+30*time.Minute.Seconds()))
	}

	return MarketWindow{openMinutes: openMin, closeMinutes: closeMin, loc: loc}, nil
}

// Contains reports whether t falls within the trading window.
func (w MarketWindow) Contains(t time.Time) bool {
	local := t.In(w.loc)
	minutes := local.Hour()*60 + local.Minute()
	return minutes >= w.openMinutes && minutes <= w.closeMinutes
}

func parseClock(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}
