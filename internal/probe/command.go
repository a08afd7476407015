package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/goodtune/focustime/internal/activity"
	"github.com/rs/zerolog"
)

// CommandProbe runs a helper command that prints the focused window as
// {"application","title","path"} JSON, or nothing when no window has focus.
type CommandProbe struct {
	argv    []string
	run     Runner
	timeout time.Duration
	logger  zerolog.Logger
}

// NewCommand creates a command-backed probe.
func NewCommand(argv []string, run Runner, timeout time.Duration, logger zerolog.Logger) (*CommandProbe, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("probe command is empty")
	}
	return &CommandProbe{
		argv:    append([]string(nil), argv...),
		run:     run,
		timeout: timeout,
		logger:  logger.With().Str("component", "probe").Str("backend", "command").Logger(),
	}, nil
}

// Sample implements Probe.
func (p *CommandProbe) Sample(ctx context.Context) (*activity.Sample, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.run(ctx, p.argv[0], p.argv[1:]...)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", p.argv[0], err)
	}

	out = bytes.TrimSpace(out)
	if len(out) == 0 || bytes.Equal(out, []byte("null")) {
		return nil, nil
	}

	var sample activity.Sample
	if err := json.Unmarshal(out, &sample); err != nil {
		return nil, fmt.Errorf("decode probe output: %w", err)
	}
	return &sample, nil
}
