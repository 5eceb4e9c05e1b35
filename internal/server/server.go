// Package server exposes the scanner pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/cloud-scanner-aws/internal/model"
	"github.com/rshade/cloud-scanner-aws/internal/scanner"
	"github.com/rshade/cloud-scanner-aws/internal/summary"
)

// ShutdownTimeout bounds graceful shutdown once the run context is done.
const ShutdownTimeout = 10 * time.Second

// maxBodyBytes caps the size of an uploaded inventory.
const maxBodyBytes = 10 << 20

// Pipeline is the part of the scanner served over HTTP.
type Pipeline interface {
	Inventory(ctx context.Context, region string, tagFilter []string, includeBlockStorage bool) (model.Inventory, error)
	Estimate(ctx context.Context, req scanner.EstimateRequest) (model.EstimatedInventory, error)
	EstimateInventory(ctx context.Context, inv model.Inventory, useDurationHours float64, verbose bool) (model.EstimatedInventory, error)
	Summary(ctx context.Context, req scanner.EstimateRequest) (summary.ImpactsSummary, error)
}

// Server serves the inventory, impacts and metrics endpoints.
type Server struct {
	pipeline    Pipeline
	version     string
	boaviztaURL string
	logger      zerolog.Logger
}

// New creates a Server. version and boaviztaURL are shown on the index page.
func New(pipeline Pipeline, version, boaviztaURL string, logger zerolog.Logger) *Server {
	return &Server{
		pipeline:    pipeline,
		version:     version,
		boaviztaURL: boaviztaURL,
		logger:      logger.With().Str("component", "server").Logger(),
	}
}

// Handler returns the routed handler wrapped in the request-id and access-log
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /inventory", s.handleInventory)
	mux.HandleFunc("GET /impacts", s.handleImpacts)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("POST /impacts-from-arbitrary-inventory", s.handleArbitraryInventory)
	return s.withRequestID(mux)
}

// Run listens on addr and serves until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownDone := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		shutdownDone <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().
		Str("addr", ln.Addr().String()).
		Str("version", s.version).
		Str("boavizta_url", s.boaviztaURL).
		Msg("starting server")

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	if err := <-shutdownDone; err != nil {
		s.logger.Error().Err(err).Msg("shutdown failed")
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info().Msg("server stopped")
	return nil
}
