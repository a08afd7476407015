package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Sampling metrics
	SamplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focustime_samples_total",
			Help: "Total focused-window samples taken",
		},
		[]string{"result"}, // observed, absent, error, malformed
	)

	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focustime_transitions_total",
			Help: "Tracker transitions by kind",
		},
		[]string{"kind"},
	)

	// Focus metrics
	FocusSecondsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focustime_focus_seconds_total",
			Help: "Focus time accumulated by closed spans",
		},
		[]string{"application"},
	)

	Records = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "focustime_records",
			Help: "Number of (application, title) records in the timeline",
		},
	)

	// Persistence metrics
	PersistTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focustime_persist_total",
			Help: "Persistence attempts by result",
		},
		[]string{"result"}, // ok, error
	)

	PersistDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "focustime_persist_duration_seconds",
			Help:    "Time spent writing the timeline to storage",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	ClearsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "focustime_clears_total",
			Help: "Total timeline clears",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		SamplesTotal,
		TransitionsTotal,
		FocusSecondsTotal,
		Records,
		PersistTotal,
		PersistDuration,
		ClearsTotal,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
