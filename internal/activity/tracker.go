package activity

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Tracker owns the timeline and the open span. All mutations go through it
// and are serialized by its lock; readers take snapshots.
type Tracker struct {
	timeline Timeline
	state    State
	revision uint64
	clock    Clock
	location *time.Location
	absent   AbsentPolicy
	logger   zerolog.Logger
	mu       sync.RWMutex
}

// Config holds tracker configuration
type Config struct {
	Clock        Clock
	Location     *time.Location
	AbsentPolicy AbsentPolicy
}

// NewTracker creates a tracker over an existing timeline. A nil timeline
// starts empty.
func NewTracker(timeline Timeline, config Config, logger zerolog.Logger) *Tracker {
	if timeline == nil {
		timeline = make(Timeline)
	}
	if config.Clock == nil {
		config.Clock = RealClock{}
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.AbsentPolicy == "" {
		config.AbsentPolicy = AbsentPause
	}

	return &Tracker{
		timeline: timeline,
		clock:    config.Clock,
		location: config.Location,
		absent:   config.AbsentPolicy,
		logger:   logger.With().Str("component", "tracker").Logger(),
	}
}

// Observe applies one sample taken now. A nil sample means no window is
// focused.
func (t *Tracker) Observe(sample *Sample) Transition {
	t.mu.Lock()
	defer t.mu.Unlock()

	next, tr := Step(t.state, t.timeline, sample, t.clock.Now(), t.location, t.absent)
	t.state = next
	if tr.Kind != TransitionIgnored {
		t.revision++
	}

	switch tr.Kind {
	case TransitionOpened, TransitionSwitched, TransitionRollover:
		ev := t.logger.Debug().
			Str("transition", string(tr.Kind)).
			Str("application", sample.Application).
			Str("title", sample.Title)
		if tr.Closed != nil {
			ev = ev.Str("closed_application", tr.Closed.Application).
				Int64("closed_duration_ms", tr.Closed.Span.Duration)
		}
		ev.Msg("Focus changed")
	case TransitionPaused:
		t.logger.Debug().
			Str("application", tr.Closed.Application).
			Str("title", tr.Closed.Title).
			Int64("duration_ms", tr.Closed.Span.Duration).
			Msg("No focused window, interval closed")
	}

	return tr
}

// Snapshot returns a deep copy of the timeline and its revision. The revision
// changes whenever the timeline does.
func (t *Tracker) Snapshot() (Timeline, uint64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.timeline.Clone(), t.revision
}

// Revision returns the current timeline revision.
func (t *Tracker) Revision() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.revision
}

// State returns a copy of the tracker state.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.state.Open == nil {
		return State{}
	}
	c := *t.state.Open
	return State{Open: &c}
}

// Reset empties the timeline. The next sample opens a fresh record.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.timeline = make(Timeline)
	t.state = State{}
	t.revision++

	t.logger.Info().Msg("Timeline cleared")
}

// Load replaces the timeline with one read from storage.
func (t *Tracker) Load(timeline Timeline) {
	if timeline == nil {
		timeline = make(Timeline)
	}
	repairs := timeline.Sanitize()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.timeline = timeline
	t.state = State{}
	t.revision++

	ev := t.logger.Info().
		Int("applications", len(timeline)).
		Int("records", timeline.RecordCount())
	if repairs > 0 {
		ev = ev.Int("repairs", repairs)
	}
	ev.Msg("Timeline loaded")
}

// Location returns the zone used for date keys.
func (t *Tracker) Location() *time.Location {
	return t.location
}

// Clock returns the tracker's clock.
func (t *Tracker) Clock() Clock {
	return t.clock
}
