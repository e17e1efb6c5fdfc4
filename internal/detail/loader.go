// Package detail drives the progressive load of a holding's detail view:
// a fast identity stage that unblocks rendering immediately, then a slower
// ratios stage that loads asynchronously and fails independently without
// invalidating the identity data.
package detail

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rachitbansal/nivesh/internal/common"
	"github.com/rachitbansal/nivesh/internal/interfaces"
	"github.com/rachitbansal/nivesh/internal/models"
)

// Stage names a state of the two-stage load sequence.
type Stage string

const (
	StageIdle            Stage = "idle"
	StageIdentityLoading Stage = "identity_loading"
	StageIdentityLoaded  Stage = "identity_loaded"
	StageRatiosLoading   Stage = "ratios_loading"
	StageRatiosLoaded    Stage = "ratios_loaded"
	StageRatiosFailed    Stage = "ratios_failed"
)

// State is the observable load state for one holding's detail view.
// Holding is populated from the identity stage onward; Ratios and
// RatiosErr belong exclusively to the ratios stage.
type State struct {
	Stage     Stage
	Holding   *models.HoldingView
	Ratios    []models.RatioGroup
	RatiosErr error
}

type cachedRatios struct {
	groups []models.RatioGroup
	date   string // YYYY-MM-DD of fetch; served without refetch same day
}

type cachedQuarterly struct {
	results *models.QuarterlyResults
	date    string
}

// Loader runs the two-stage fetch. At most one ratios fetch is in flight
// per holding; a retry while one is running is coalesced.
type Loader struct {
	portfolio interfaces.PortfolioService
	client    interfaces.MarketDataClient
	logger    *common.Logger
	now       func() time.Time

	mu        sync.Mutex
	states    map[string]*State
	inflight  map[string]bool
	cache     map[string]cachedRatios // keyed by lowercase ticker
	quarterly map[string]cachedQuarterly
}

// NewLoader creates a progressive loader
func NewLoader(portfolio interfaces.PortfolioService, client interfaces.MarketDataClient, logger *common.Logger) *Loader {
	return &Loader{
		portfolio: portfolio,
		client:    client,
		logger:    logger,
		now:       time.Now,
		states:    make(map[string]*State),
		inflight:  make(map[string]bool),
		cache:     make(map[string]cachedRatios),
		quarterly: make(map[string]cachedQuarterly),
	}
}

// setStage creates or updates the state entry for a holding, setting the
// given stage and ratios error (nil clears a prior error).
func (l *Loader) setStage(holdingID string, stage Stage, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.states[holdingID]
	if !ok {
		st = &State{}
		l.states[holdingID] = st
	}
	st.Stage = stage
	st.RatiosErr = err
}

// Load runs the identity stage synchronously and, on success, starts the
// ratios stage in the background. The returned state lets the caller
// render immediately. A failed identity stage returns NotFoundError and
// the ratios stage never starts.
func (l *Loader) Load(ctx context.Context, holdingID string) (State, error) {
	l.setStage(holdingID, StageIdentityLoading, nil)

	hv, err := l.portfolio.Holding(ctx, holdingID)
	if err != nil {
		l.mu.Lock()
		delete(l.states, holdingID)
		l.mu.Unlock()
		return State{Stage: StageIdle}, err
	}

	l.mu.Lock()
	st := &State{Stage: StageIdentityLoaded, Holding: hv}
	l.states[holdingID] = st
	l.mu.Unlock()

	l.startRatios(ctx, holdingID, hv.Ticker)
	return l.State(holdingID), nil
}

// RetryRatios re-runs the ratios stage only. The identity stage must have
// completed for this holding; retries while a fetch is in flight are
// coalesced into the running one.
func (l *Loader) RetryRatios(ctx context.Context, holdingID string) (State, error) {
	l.mu.Lock()
	st, ok := l.states[holdingID]
	if !ok || st.Holding == nil {
		l.mu.Unlock()
		return State{Stage: StageIdle}, common.NewNotFoundError("holding detail", holdingID)
	}
	ticker := st.Holding.Ticker
	l.mu.Unlock()

	l.startRatios(ctx, holdingID, ticker)
	return l.State(holdingID), nil
}

// State returns a copy of the current load state for a holding
func (l *Loader) State(holdingID string) State {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.states[holdingID]
	if !ok {
		return State{Stage: StageIdle}
	}
	out := *st
	return out
}

// startRatios transitions to RatiosLoading and fetches in the background,
// single-flighted per holding.
func (l *Loader) startRatios(ctx context.Context, holdingID, ticker string) {
	l.mu.Lock()
	if l.inflight[holdingID] {
		l.mu.Unlock()
		return
	}
	l.inflight[holdingID] = true
	if st, ok := l.states[holdingID]; ok {
		st.Stage = StageRatiosLoading
		st.RatiosErr = nil
	}
	l.mu.Unlock()

	// The fetch outlives the triggering request.
	go l.fetchRatios(context.WithoutCancel(ctx), holdingID, ticker)
}

func (l *Loader) fetchRatios(ctx context.Context, holdingID, ticker string) {
	groups, err := l.GroupedRatios(ctx, ticker)

	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.inflight, holdingID)

	st, ok := l.states[holdingID]
	if !ok {
		return
	}

	// A ratios failure is isolated: identity data stays rendered and the
	// error is scoped to the ratios sub-view with standalone retry.
	if err != nil {
		st.Stage = StageRatiosFailed
		st.RatiosErr = common.NewPartialDataError("ratios", err)
		l.logger.Warn().Err(err).Str("ticker", ticker).Msg("Ratios stage failed")
		return
	}

	st.Stage = StageRatiosLoaded
	st.Ratios = groups
	st.RatiosErr = nil
}

// GroupedRatios fetches and groups the ratio set for a ticker, serving a
// same-day cached copy when available. Tickers are folded to lowercase
// here so case-variant lookups share one cache entry.
func (l *Loader) GroupedRatios(ctx context.Context, ticker string) ([]models.RatioGroup, error) {
	ticker = strings.ToLower(strings.TrimSpace(ticker))
	today := l.now().Format("2006-01-02")

	l.mu.Lock()
	if c, ok := l.cache[ticker]; ok && c.date == today {
		groups := c.groups
		l.mu.Unlock()
		l.logger.Debug().Str("ticker", ticker).Msg("Serving cached ratios")
		return groups, nil
	}
	l.mu.Unlock()

	set, err := l.client.GetRatios(ctx, ticker)
	if err != nil {
		return nil, err
	}
	groups := models.GroupRatios(set)

	l.mu.Lock()
	l.cache[ticker] = cachedRatios{groups: groups, date: today}
	l.mu.Unlock()

	return groups, nil
}

// Quarterly fetches the quarterly results table for a ticker with the same
// same-day caching and lowercase folding as GroupedRatios.
func (l *Loader) Quarterly(ctx context.Context, ticker string) (*models.QuarterlyResults, error) {
	ticker = strings.ToLower(strings.TrimSpace(ticker))
	today := l.now().Format("2006-01-02")

	l.mu.Lock()
	if c, ok := l.quarterly[ticker]; ok && c.date == today {
		results := c.results
		l.mu.Unlock()
		l.logger.Debug().Str("ticker", ticker).Msg("Serving cached quarterly results")
		return results, nil
	}
	l.mu.Unlock()

	results, err := l.client.GetQuarterly(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if results.Empty() {
		return nil, common.NewNotFoundError("quarterly results", ticker)
	}

	l.mu.Lock()
	l.quarterly[ticker] = cachedQuarterly{results: results, date: today}
	l.mu.Unlock()

	return results, nil
}
