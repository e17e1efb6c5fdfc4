// Package server exposes the portfolio engine over a REST API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rachitbansal/nivesh/internal/app"
)

// Server wraps the HTTP server and application reference.
type Server struct {
	app    *app.App
	server *http.Server
}

// NewServer creates a new HTTP REST API server.
func NewServer(a *app.App) *Server {
	s := &Server{app: a}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	handler := applyMiddleware(mux, a.Logger)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server (blocking).
func (s *Server) Start() error {
	s.app.Logger.Info().
		Str("addr", s.server.Addr).
		Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Market data
	mux.HandleFunc("/api/suggestions", s.handleSuggestions)
	mux.HandleFunc("/api/stock-price", s.handleStockPrice)
	mux.HandleFunc("/api/stock-ratios/", s.handleStockRatios)
	mux.HandleFunc("/api/quarterly-results/", s.handleQuarterlyResults)

	// Holdings
	mux.HandleFunc("/api/holdings", s.handleHoldings)
	mux.HandleFunc("/api/holdings/", s.routeHolding)

	// Poller control
	mux.HandleFunc("/api/poller", s.handlePollerStatus)
	mux.HandleFunc("/api/poller/start", s.handlePollerStart)
	mux.HandleFunc("/api/poller/stop", s.handlePollerStop)
	mux.HandleFunc("/api/poller/refresh", s.handlePollerRefresh)
}
