package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/goodtune/focustime/internal/activity"
	"github.com/goodtune/focustime/internal/api"
	"github.com/goodtune/focustime/internal/config"
	"github.com/goodtune/focustime/internal/metrics"
	"github.com/goodtune/focustime/internal/probe"
	"github.com/goodtune/focustime/internal/recorder"
	"github.com/goodtune/focustime/internal/report"
	"github.com/goodtune/focustime/internal/storage"
	"github.com/goodtune/focustime/internal/storage/redis"
	"github.com/goodtune/focustime/internal/systemd"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Record focused window time",
	Long:  `Sample the focused window, persist the timeline, and serve the API and metrics endpoints.`,
	RunE:  runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting focustime")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().
		Str("type", cfg.Storage.Type).
		Str("path", cfg.Storage.Path).
		Msg("Storage initialized")

	publishers, closePublishers, err := openPublishers(cfg, store)
	if err != nil {
		return fmt.Errorf("failed to initialize publisher: %w", err)
	}
	defer closePublishers()

	sampler, err := probe.New(cfg.Probe, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize probe: %w", err)
	}

	interval := parseDuration(cfg.Tracking.SampleInterval, time.Second)
	location, _ := cfg.Tracking.Location()

	tracker := activity.NewTracker(nil, activity.Config{
		Location:     location,
		AbsentPolicy: activity.AbsentPolicy(cfg.Tracking.AbsentSample),
	}, logger)

	rec := recorder.New(tracker, sampler, store.Timings(), publishers, recorder.Config{
		Interval:         interval,
		PublishEveryTick: cfg.Publish.EveryTick,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorderDone := make(chan error, 1)
	go func() {
		recorderDone <- rec.Run(ctx)
	}()

	// Start API server
	var apiServer *api.Server
	if cfg.Server.APIPort > 0 || sdListeners.API != nil {
		engine := report.NewEngine(tracker.Clock(), location, cfg.Tracking.ReservedApplications)
		apiServer, err = api.NewServer(api.Config{
			ListenAddr: listenAddr(cfg.Server.BindAddress, cfg.Server.APIPort),
			CacheSize:  cfg.API.CacheSize,
		}, tracker, engine, rec, logger)
		if err != nil {
			cancel()
			<-recorderDone
			return fmt.Errorf("failed to initialize API server: %w", err)
		}
		if sdListeners.API != nil {
			apiServer.SetListener(sdListeners.API)
		}
		if err := apiServer.Start(); err != nil {
			logger.Error().Err(err).Msg("Failed to start API server")
		}
	}

	// Start metrics server
	var metricsServer *metrics.Server
	if cfg.Server.MetricsPort > 0 || sdListeners.Metrics != nil {
		metricsServer = metrics.NewServer(listenAddr(cfg.Server.BindAddress, cfg.Server.MetricsPort), logger)
		if sdListeners.Metrics != nil {
			metricsServer.SetListener(sdListeners.Metrics)
		}
		if err := metricsServer.Start(); err != nil {
			logger.Error().Err(err).Msg("Failed to start metrics server")
		}
	}

	logger.Info().
		Dur("interval", interval).
		Str("absent_sample", cfg.Tracking.AbsentSample).
		Str("probe", cfg.Probe.Backend).
		Msg("focustime started successfully")

	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	}

	if wd := systemd.WatchdogInterval(); wd > 0 {
		go runWatchdog(ctx, wd, logger)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	// Signal handling loop
	for {
		sig := <-sigChan

		switch sig {
		case syscall.SIGHUP:
			tl, rev := tracker.Snapshot()
			ev := logger.Info().
				Uint64("revision", rev).
				Int("applications", len(tl)).
				Int("records", tl.RecordCount())
			if open := tracker.State().Open; open != nil {
				ev = ev.Str("application", open.Application).Str("title", open.Title)
			}
			ev.Msg("SIGHUP received, current status")
			continue

		case os.Interrupt, syscall.SIGTERM:
			logger.Info().Msg("Shutdown signal received, gracefully stopping...")
		}

		break
	}

	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	// Stop accepting clears before the recorder flushes its final state.
	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping API server")
		}
	}

	cancel()
	if err := <-recorderDone; err != nil {
		logger.Error().Err(err).Msg("Recorder stopped with error")
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping metrics server")
		}
	}

	logger.Info().Msg("focustime stopped")

	return nil
}

func runWatchdog(ctx context.Context, interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := systemd.NotifyWatchdog(); err != nil {
				logger.Warn().Err(err).Msg("Failed to send systemd watchdog notification")
			}
		}
	}
}

// openPublishers returns the snapshot publishers for cfg and a function that
// releases any connections they own.
func openPublishers(cfg *config.Config, store storage.Store) ([]storage.Publisher, func(), error) {
	noop := func() {}
	channel := cfg.Publish.RedisChannel
	if channel == "" {
		return nil, noop, nil
	}

	if rs, ok := store.(*redis.Store); ok {
		return []storage.Publisher{rs.Publisher(channel)}, noop, nil
	}

	pub, err := redis.OpenPublisher(cfg.Storage.Redis, channel)
	if err != nil {
		return nil, noop, err
	}
	return []storage.Publisher{pub}, func() { _ = pub.Close() }, nil
}

func listenAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
