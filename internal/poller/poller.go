// Package poller drives the periodic market snapshot refresh. Each tick is
// gated on market hours, fetches quotes for the full tracked symbol set,
// and hands the result to an apply callback that replaces the snapshot
// collection wholesale. A failed refresh is reported but never stops the
// loop, and a stale response (one overtaken by a later tick) is dropped.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rachitbansal/nivesh/internal/common"
	"github.com/rachitbansal/nivesh/internal/models"
)

// FetchFunc performs one refresh for the given symbols.
type FetchFunc func(ctx context.Context, symbols []string) (map[string]models.MarketSnapshot, error)

// Poller periodically refreshes market snapshots while the market is open.
type Poller struct {
	symbols  func() []string
	fetch    FetchFunc
	apply    func(map[string]models.MarketSnapshot)
	onError  func(error)
	interval time.Duration
	window   MarketWindow
	now      func() time.Time
	logger   *common.Logger

	mu          sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
	seq         uint64 // last tick sequence issued
	lastApplied uint64 // highest sequence whose response was applied
	stopGen     uint64 // bumped on Stop; refreshes started before a Stop never apply

	// applyMu serializes the staleness re-check with the apply call
	// itself, so an older response can never land after a newer one.
	applyMu sync.Mutex
}

// Option configures the poller
type Option func(*Poller)

// WithClock injects the time source used for market-hours gating
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// WithInterval sets the polling period
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithWindow sets the market-hours gate
func WithWindow(w MarketWindow) Option {
	return func(p *Poller) { p.window = w }
}

// WithErrorHandler sets the callback invoked on refresh failures
func WithErrorHandler(fn func(error)) Option {
	return func(p *Poller) { p.onError = fn }
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

// New creates a poller. symbols supplies the tracked symbol set per tick,
// fetch performs the refresh, apply atomically replaces the snapshot
// collection with a successful result.
func New(symbols func() []string, fetch FetchFunc, apply func(map[string]models.MarketSnapshot), opts ...Option) *Poller {
	p := &Poller{
		symbols:  symbols,
		fetch:    fetch,
		apply:    apply,
		onError:  func(error) {},
		interval: 30 * time.Second,
		window:   DefaultWindow(),
		now:      time.Now,
		logger:   common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins the polling loop. Starting an already-running poller is a
// no-op; there is never more than one timer.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(ctx, p.done)
	p.logger.Info().Dur("interval", p.interval).Msg("Market poller started")
}

// Stop halts the polling loop and discards the effect of any in-flight
// refresh. Stopping an already-stopped poller is a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.cancel == nil {
		p.mu.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.done = nil
	p.stopGen++
	p.mu.Unlock()

	cancel()
	<-done

	// Wait out any refresh already past its generation check, so no
	// apply runs once Stop has returned.
	p.applyMu.Lock()
	p.applyMu.Unlock() //nolint:staticcheck // barrier, not a critical section

	p.logger.Info().Msg("Market poller stopped")
}

// Running reports whether the polling loop is active
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// MarketOpen reports whether the current time falls inside the trading
// window.
func (p *Poller) MarketOpen() bool {
	return p.window.Contains(p.now())
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick runs one gated refresh. The fetch runs in its own goroutine so a
// slow upstream never blocks the timer; responses carry the tick sequence
// and only the newest one seen is applied.
func (p *Poller) tick(ctx context.Context) {
	if !p.window.Contains(p.now()) {
		p.logger.Debug().Msg("Market closed, skipping poll tick")
		return
	}

	symbols := p.symbols()
	if len(symbols) == 0 {
		return
	}

	p.mu.Lock()
	p.seq++
	seq, gen := p.seq, p.stopGen
	p.mu.Unlock()

	go p.refresh(ctx, seq, gen, symbols)
}

func (p *Poller) refresh(ctx context.Context, seq, gen uint64, symbols []string) {
	start := time.Now()

	snapshots, err := p.fetch(ctx, symbols)
	if err != nil {
		// Previous snapshots stay in place; polling continues.
		p.logger.Warn().Err(err).Int("symbols", len(symbols)).Msg("Market refresh failed")
		p.onError(common.NewTransientFetchError("market refresh", err))
		return
	}

	// The check and the apply must be one atomic step: releasing the
	// lock between them would let an older response finish its apply
	// after a newer one.
	p.applyMu.Lock()
	defer p.applyMu.Unlock()

	p.mu.Lock()
	stale := seq <= p.lastApplied
	cancelled := gen != p.stopGen
	if !stale && !cancelled {
		p.lastApplied = seq
	}
	p.mu.Unlock()

	if cancelled {
		return
	}
	if stale {
		p.logger.Debug().Uint64("seq", seq).Msg("Dropping stale market refresh")
		return
	}

	p.apply(snapshots)
	p.logger.Info().
		Int("symbols", len(symbols)).
		Dur("elapsed", time.Since(start)).
		Msg("Market refresh complete")
}

// RefreshNow forces an immediate ungated refresh, sequence-numbered like a
// timer tick. Used by the HTTP layer when the user explicitly asks for
// fresh prices.
func (p *Poller) RefreshNow(ctx context.Context) {
	symbols := p.symbols()
	if len(symbols) == 0 {
		return
	}

	p.mu.Lock()
	p.seq++
	seq, gen := p.seq, p.stopGen
	p.mu.Unlock()

	p.refresh(ctx, seq, gen, symbols)
}
