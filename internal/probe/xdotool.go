package probe

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goodtune/focustime/internal/activity"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/process"
)

// Resolver maps a process ID to its name and executable path.
type Resolver func(pid int32) (name, exe string, err error)

// GopsutilResolver resolves processes through gopsutil.
func GopsutilResolver(pid int32) (string, string, error) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return "", "", fmt.Errorf("process %d not found: %w", pid, err)
	}

	name, err := proc.Name()
	if err != nil {
		return "", "", fmt.Errorf("process %d name: %w", pid, err)
	}

	// The executable path is best effort; it is unreadable for processes
	// owned by other users.
	exe, _ := proc.Exe()
	return name, exe, nil
}

// XdotoolProbe reads the active X11 window with xdotool and resolves the
// owning process for the application name.
type XdotoolProbe struct {
	run     Runner
	resolve Resolver
	timeout time.Duration
	logger  zerolog.Logger
}

// NewXdotool creates an xdotool-backed probe.
func NewXdotool(run Runner, resolve Resolver, timeout time.Duration, logger zerolog.Logger) *XdotoolProbe {
	return &XdotoolProbe{
		run:     run,
		resolve: resolve,
		timeout: timeout,
		logger:  logger.With().Str("component", "probe").Str("backend", "xdotool").Logger(),
	}
}

// Sample implements Probe.
func (p *XdotoolProbe) Sample(ctx context.Context) (*activity.Sample, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.run(ctx, "xdotool", "getactivewindow", "getwindowname", "getwindowpid")
	if err != nil {
		if isExitError(err) {
			p.logger.Debug().Err(err).Msg("No active window")
			return nil, nil
		}
		return nil, fmt.Errorf("run xdotool: %w", err)
	}

	title, pid, err := parseXdotool(out)
	if err != nil {
		return nil, err
	}

	name, exe, err := p.resolve(pid)
	if err != nil {
		// The window's process exited between the two calls.
		p.logger.Debug().Err(err).Int32("pid", pid).Msg("Focused process vanished")
		return nil, nil
	}

	return &activity.Sample{Application: name, Title: title, Path: exe}, nil
}

// parseXdotool splits chained getwindowname/getwindowpid output. The PID is
// the last line; everything before it is the title.
func parseXdotool(out []byte) (string, int32, error) {
	text := strings.TrimRight(string(out), "\n")
	idx := strings.LastIndexByte(text, '\n')
	if idx < 0 {
		return "", 0, fmt.Errorf("unexpected xdotool output: %q", text)
	}

	pid, err := strconv.ParseInt(strings.TrimSpace(text[idx+1:]), 10, 32)
	if err != nil || pid <= 0 {
		return "", 0, fmt.Errorf("invalid window pid %q", text[idx+1:])
	}
	return text[:idx], int32(pid), nil
}
