// Package recorder runs the sampling loop: it feeds probe samples to the
// tracker once per tick and hands snapshots to a background writer.
package recorder

import (
	"context"
	"errors"
	"time"

	"github.com/goodtune/focustime/internal/activity"
	"github.com/goodtune/focustime/internal/metrics"
	"github.com/goodtune/focustime/internal/probe"
	"github.com/goodtune/focustime/internal/storage"
	"github.com/rs/zerolog"
)

var (
	// ErrStopped is returned by Clear when the recorder is not running.
	ErrStopped = errors.New("recorder: not running")

	errWriterClosed = errors.New("recorder: writer closed")
)

// Config holds recorder configuration
type Config struct {
	Interval         time.Duration
	PublishEveryTick bool

	// Ticks overrides the interval ticker when set.
	Ticks <-chan time.Time
}

// Recorder is the single writer of the tracker. Sampling and clears are
// both processed by Run's loop, so they never interleave.
type Recorder struct {
	tracker    *activity.Tracker
	probe      probe.Probe
	store      storage.TimingStore
	publishers []storage.Publisher
	config     Config
	logger     zerolog.Logger

	clears   chan chan<- error
	stopped  chan struct{}
	lastSent uint64
}

// New creates a recorder.
func New(tracker *activity.Tracker, p probe.Probe, store storage.TimingStore, publishers []storage.Publisher, config Config, logger zerolog.Logger) *Recorder {
	if config.Interval <= 0 {
		config.Interval = time.Second
	}
	return &Recorder{
		tracker:    tracker,
		probe:      p,
		store:      store,
		publishers: publishers,
		config:     config,
		logger:     logger.With().Str("component", "recorder").Logger(),
		clears:     make(chan chan<- error),
		stopped:    make(chan struct{}),
	}
}

// Run loads the persisted timeline and samples until ctx is cancelled. The
// latest state is flushed to storage before Run returns.
func (r *Recorder) Run(ctx context.Context) error {
	defer close(r.stopped)

	w := newWriter(r.store, r.publishers, r.logger)
	defer w.close()

	r.load(ctx)
	timeline, rev := r.tracker.Snapshot()
	r.lastSent = rev
	metrics.Records.Set(float64(timeline.RecordCount()))
	w.submit(job{timeline: timeline, publish: true})

	ticks := r.config.Ticks
	if ticks == nil {
		ticker := time.NewTicker(r.config.Interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	r.logger.Info().Dur("interval", r.config.Interval).Msg("Recorder started")

	for {
		select {
		case <-ctx.Done():
			r.flush(w)
			r.logger.Info().Msg("Recorder stopped")
			return nil
		case <-ticks:
			r.tick(ctx, w)
		case done := <-r.clears:
			r.clear(w, done)
		}
	}
}

// Clear empties the timeline and waits until storage reflects it.
func (r *Recorder) Clear(ctx context.Context) error {
	done := make(chan error, 1)
	select {
	case r.clears <- done:
	case <-r.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// load installs the persisted timeline, falling back to an empty one when
// nothing was saved or the saved state cannot be read.
func (r *Recorder) load(ctx context.Context) {
	timeline, err := r.store.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		r.logger.Info().Msg("No persisted timeline, starting empty")
		timeline = nil
	case err != nil:
		r.logger.Error().Err(err).Msg("Failed to load persisted timeline, starting empty")
		timeline = nil
	}
	r.tracker.Load(timeline)
}

func (r *Recorder) tick(ctx context.Context, w *writer) {
	sample, err := r.probe.Sample(ctx)
	switch {
	case err != nil:
		metrics.SamplesTotal.WithLabelValues("error").Inc()
		r.logger.Warn().Err(err).Msg("Failed to sample focused window")
		return
	case sample == nil:
		metrics.SamplesTotal.WithLabelValues("absent").Inc()
	case sample.Application == "":
		metrics.SamplesTotal.WithLabelValues("malformed").Inc()
		r.logger.Debug().Str("title", sample.Title).Msg("Sample without application ignored")
		return
	default:
		metrics.SamplesTotal.WithLabelValues("observed").Inc()
	}

	tr := r.tracker.Observe(sample)
	metrics.TransitionsTotal.WithLabelValues(string(tr.Kind)).Inc()
	if tr.Closed != nil {
		metrics.FocusSecondsTotal.WithLabelValues(tr.Closed.Application).
			Add(float64(tr.Closed.Span.Duration) / 1000)
	}

	timeline, rev := r.tracker.Snapshot()
	if rev == r.lastSent && !r.config.PublishEveryTick {
		return
	}
	metrics.Records.Set(float64(timeline.RecordCount()))
	w.submit(job{
		timeline: timeline,
		write:    rev != r.lastSent,
		publish:  r.config.PublishEveryTick,
	})
	r.lastSent = rev
}

func (r *Recorder) clear(w *writer, done chan<- error) {
	r.tracker.Reset()
	metrics.ClearsTotal.Inc()
	metrics.Records.Set(0)

	timeline, rev := r.tracker.Snapshot()
	r.lastSent = rev
	w.submit(job{
		timeline: timeline,
		write:    true,
		clear:    true,
		publish:  true,
		waiters:  []chan<- error{done},
	})
}

// flush queues the final state; the deferred writer close drains it.
func (r *Recorder) flush(w *writer) {
	timeline, rev := r.tracker.Snapshot()
	if rev == r.lastSent {
		return
	}
	r.lastSent = rev
	w.submit(job{timeline: timeline, write: true})
}
