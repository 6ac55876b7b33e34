// SPDX-License-Identifier: MIT

// Package api provides the HTTP surface of the censor service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/censord/internal/censor"
	"github.com/ManuGH/censord/internal/config"
	"github.com/ManuGH/censord/internal/dataset"
	"github.com/ManuGH/censord/internal/health"
	"github.com/ManuGH/censord/internal/jobs"
)

// Processor runs the censor decision flow for one message.
type Processor interface {
	Process(ctx context.Context, username, message string) (censor.Result, error)
}

// VerdictCounter exposes decision counts for the status endpoint.
// The sqlite audit store implements it; the log-only fallback does not.
type VerdictCounter interface {
	CountByVerdict(ctx context.Context) (map[string]int, error)
}

// Server is the HTTP API server.
type Server struct {
	cfg      config.AppConfig
	censor   Processor
	datasets *dataset.Store
	sync     *jobs.Runner // nil when no SFTP host is configured
	health   *health.Manager
	verdicts VerdictCounter // may be nil

	// link status probes, may be nil
	wsConnected     func() bool
	twitchConnected func() bool

	startTime time.Time
}

// Options carries the collaborators for New.
type Options struct {
	Config          config.AppConfig
	Censor          Processor
	Datasets        *dataset.Store
	Sync            *jobs.Runner
	Health          *health.Manager
	Verdicts        VerdictCounter
	WSConnected     func() bool
	TwitchConnected func() bool
}

func New(opts Options) *Server {
	return &Server{
		cfg:             opts.Config,
		censor:          opts.Censor,
		datasets:        opts.Datasets,
		sync:            opts.Sync,
		health:          opts.Health,
		verdicts:        opts.Verdicts,
		wsConnected:     opts.WSConnected,
		twitchConnected: opts.TwitchConnected,
		startTime:       time.Now(),
	}
}

// Routes builds the router with the full middleware stack applied.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(recoverer)
	r.Use(requestID)
	r.Use(httpMetrics)
	r.Use(tracing(s.cfg.LogService))
	r.Use(requestLogging)
	if s.cfg.RateLimitRPM > 0 {
		r.Use(rateLimit(s.cfg.RateLimitRPM))
	}

	r.Get("/", s.handleRoot)
	r.Post("/api/censor", s.handleCensor)
	r.Post("/api/sync", s.handleSync)
	r.Get("/api/status", s.handleStatus)

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	if s.cfg.MetricsEnabled && s.cfg.MetricsAddr == "" {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}
