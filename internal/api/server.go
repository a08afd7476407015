// Package api serves the current timeline and its breakdowns over HTTP.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/goodtune/focustime/internal/activity"
	"github.com/goodtune/focustime/internal/report"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Clearer empties the timeline and its storage.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Config holds the API server configuration.
type Config struct {
	ListenAddr string
	CacheSize  int
}

// Server is the read/clear HTTP API.
type Server struct {
	config   Config
	tracker  *activity.Tracker
	engine   *report.Engine
	clearer  Clearer
	cache    *breakdownCache
	router   *mux.Router
	server   *http.Server
	listener net.Listener
	logger   zerolog.Logger
}

// NewServer creates a new API server.
func NewServer(cfg Config, tracker *activity.Tracker, engine *report.Engine, clearer Clearer, logger zerolog.Logger) (*Server, error) {
	cache, err := newBreakdownCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:  cfg,
		tracker: tracker,
		engine:  engine,
		clearer: clearer,
		cache:   cache,
		router:  mux.NewRouter(),
		logger:  logger.With().Str("component", "api").Logger(),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(LocalOnlyMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/api/timing", s.handleTiming).Methods("GET")
	s.router.HandleFunc("/api/breakdown", s.handleApplications).Methods("GET")
	s.router.HandleFunc("/api/breakdown/{application:.+}", s.handleTitles).Methods("GET")
	s.router.HandleFunc("/api/clear", s.handleClear).Methods("POST")
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the API server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.config.ListenAddr).Msg("Starting API server")

	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated API listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()

	return nil
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}

	return nil
}
