package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/SWORDIntel/Z-FORGE/internal/config"
	"github.com/SWORDIntel/Z-FORGE/internal/discovery"
	"github.com/SWORDIntel/Z-FORGE/internal/zfs"
	"github.com/SWORDIntel/Z-FORGE/pkg/httpx"
)

func Logger(cfg config.Config) *zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	logger := log.Logger.Level(cfg.LogLevel).With().Timestamp().Logger()
	return &logger
}

// Server serves the provisioning API. It owns the cached discovery report;
// the selection validator only ever sees a completed snapshot of it.
type Server struct {
	cfg     config.Config
	log     zerolog.Logger
	engine  *discovery.Engine
	metrics *apiMetrics

	mu        sync.RWMutex
	pools     map[string]*zfs.Pool
	scannedAt time.Time
}

func New(cfg config.Config, engine *discovery.Engine, log zerolog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		log:     log,
		engine:  engine,
		metrics: newAPIMetrics(),
	}
}

// Refresh runs one discovery pass and swaps the cached report.
func (s *Server) Refresh(ctx context.Context) error {
	pools, err := s.engine.Discover(ctx)
	if err != nil {
		return err
	}
	s.metrics.discoveryRuns.Inc()
	s.metrics.poolsDiscovered.Set(float64(len(pools)))
	s.mu.Lock()
	s.pools = pools
	s.scannedAt = time.Now().UTC()
	s.mu.Unlock()
	return nil
}

// snapshot returns the cached report. The map is shared read-only; nothing
// mutates pools after a scan completes.
func (s *Server) snapshot() (map[string]*zfs.Pool, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pools, s.scannedAt
}

// StartRediscovery refreshes the report on the configured cron schedule
// until ctx is cancelled.
func (s *Server) StartRediscovery(ctx context.Context) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(s.cfg.RediscoverCron, func() {
		if err := s.Refresh(ctx); err != nil {
			s.log.Warn().Err(err).Msg("scheduled rediscovery failed")
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	return c, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(zerologMiddleware(&s.log))

	if s.cfg.CORSOrigin != "" {
		c := cors.New(cors.Options{
			AllowedOrigins:   []string{s.cfg.CORSOrigin},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		})
		r.Use(c.Handler)
	}

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, map[string]any{"ok": true, "version": Version})
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/pools", s.handleListPools)
		api.Post("/plan", s.handlePlan)
		api.Get("/presets", s.handlePresets)
	})

	if s.cfg.MetricsEnabled {
		r.Handle("/metrics", s.metrics.handler())
	}
	return r
}

// Version is stamped at build time.
var Version = "dev"
