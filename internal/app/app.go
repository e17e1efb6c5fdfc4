// Package app wires configuration, clients, services, and the market
// poller into one application core shared by the server binary and tests.
package app

import (
	"fmt"
	"os"
	"time"

	"github.com/rachitbansal/nivesh/internal/clients/bharat"
	"github.com/rachitbansal/nivesh/internal/common"
	"github.com/rachitbansal/nivesh/internal/detail"
	"github.com/rachitbansal/nivesh/internal/interfaces"
	"github.com/rachitbansal/nivesh/internal/poller"
	"github.com/rachitbansal/nivesh/internal/services/portfolio"
)

// App holds all initialized services and clients.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Client      interfaces.MarketDataClient
	Portfolio   *portfolio.Service
	Detail      *detail.Loader
	Poller      *poller.Poller
	StartupTime time.Time
}

// NewApp initializes the application from a config path. configPath may be
// empty, in which case NIVESH_CONFIG and then ./nivesh.toml are tried.
func NewApp(configPath string) (*App, error) {
	if configPath == "" {
		configPath = os.Getenv("NIVESH_CONFIG")
	}
	if configPath == "" {
		configPath = "nivesh.toml"
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLogger(config.Logging.Level)

	client := bharat.NewClient(
		bharat.WithBaseURL(config.Client.BaseURL),
		bharat.WithRateLimit(config.Client.RateLimit),
		bharat.WithTimeout(config.Client.GetTimeout()),
		bharat.WithLogger(logger),
	)

	portfolioService := portfolio.NewService(client, logger)
	detailLoader := detail.NewLoader(portfolioService, client, logger)

	window, err := poller.NewMarketWindow(
		config.Poller.MarketOpen,
		config.Poller.MarketClose,
		config.Poller.Timezone,
	)
	if err != nil {
		return nil, fmt.Errorf("invalid market window: %w", err)
	}

	marketPoller := poller.New(
		portfolioService.Ledger().Symbols,
		portfolioService.FetchSnapshots,
		portfolioService.ApplySnapshots,
		poller.WithInterval(config.Poller.GetInterval()),
		poller.WithWindow(window),
		poller.WithLogger(logger),
		poller.WithErrorHandler(func(err error) {
			logger.Warn().Err(err).Msg("Market poll failed, previous snapshots retained")
		}),
	)

	return &App{
		Config:      config,
		Logger:      logger,
		Client:      client,
		Portfolio:   portfolioService,
		Detail:      detailLoader,
		Poller:      marketPoller,
		StartupTime: time.Now(),
	}, nil
}

// StartPoller begins background market polling. Safe to call twice.
func (a *App) StartPoller() {
	a.Poller.Start()
}

// Close stops background work.
func (a *App) Close() {
	a.Poller.Stop()
}
