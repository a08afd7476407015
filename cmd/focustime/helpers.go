package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/goodtune/focustime/internal/activity"
	"github.com/goodtune/focustime/internal/codec"
	"github.com/goodtune/focustime/internal/config"
	"github.com/goodtune/focustime/internal/storage"
	"github.com/goodtune/focustime/internal/storage/bolt"
	"github.com/goodtune/focustime/internal/storage/redis"
	"github.com/goodtune/focustime/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

const daemonTimeout = 3 * time.Second

func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	storageType := cfg.Type
	if storageType == "" {
		storageType = "bolt"
	}

	switch storageType {
	case "bolt":
		return bolt.Open(cfg.Path)
	case "sqlite":
		return sqlite.Open(cfg.Path)
	case "redis":
		return redis.Open(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}

	return zerolog.New(out).With().Timestamp().Logger()
}

// parseDuration parses a duration string with a fallback
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// daemonURL returns the base URL of the running tracker's API.
func daemonURL(cfg *config.Config) string {
	host := cfg.Server.BindAddress
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + listenAddr(host, cfg.Server.APIPort)
}

// fetchTimeline reads the live timeline from the running tracker.
func fetchTimeline(ctx context.Context, cfg *config.Config) (activity.Timeline, error) {
	if cfg.Server.APIPort == 0 {
		return nil, errors.New("API is disabled")
	}

	ctx, cancel := context.WithTimeout(ctx, daemonTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, daemonURL(cfg)+"/api/timing", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return codec.Decode(body)
}

// loadTimeline prefers the running tracker and falls back to storage. A store
// with nothing saved yields an empty timeline.
func loadTimeline(ctx context.Context, cfg *config.Config, offline bool, logger zerolog.Logger) (activity.Timeline, storage.Store, error) {
	if !offline {
		tl, err := fetchTimeline(ctx, cfg)
		if err == nil {
			return tl, nil, nil
		}
		logger.Debug().Err(err).Msg("Tracker not reachable, reading storage")
	}

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}

	tl, err := store.Timings().Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		tl = make(activity.Timeline)
	case err != nil:
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to load timeline: %w", err)
	}
	tl.Sanitize()
	return tl, store, nil
}
