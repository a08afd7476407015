// Package probe reads the currently focused window from the desktop.
package probe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/goodtune/focustime/internal/activity"
	"github.com/goodtune/focustime/internal/config"
	"github.com/rs/zerolog"
)

// Probe samples the focused window. A nil sample with a nil error means no
// window currently has focus.
type Probe interface {
	Sample(ctx context.Context) (*activity.Sample, error)
}

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// New builds the probe selected by cfg.
func New(cfg config.ProbeConfig, logger zerolog.Logger) (Probe, error) {
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case "xdotool":
		return NewXdotool(ExecRunner, GopsutilResolver, timeout, logger), nil
	case "command":
		return NewCommand(cfg.Command, ExecRunner, timeout, logger)
	default:
		return nil, fmt.Errorf("unknown probe backend: %s", cfg.Backend)
	}
}

// isExitError reports whether err is a non-zero exit of a command that did
// start. Window tools exit non-zero when nothing has focus.
func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
