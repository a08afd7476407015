package activity

import (
	"time"
)

// DateKeyLayout is the layout of the per-day partition keys.
const DateKeyLayout = "2006-01-02"

// Sample is one observation of the focused window
type Sample struct {
	Application string `json:"application"`
	Title       string `json:"title"`
	Path        string `json:"path"`
}

// Span is a contiguous period of focus, in epoch milliseconds.
type Span struct {
	Start    int64
	Duration int64
}

// Intervals partitions a record's spans by the local day they started on.
// Each day's spans are kept in chronological order.
type Intervals map[string][]Span

// Record is the accumulated focus history of one (application, title) pair
type Record struct {
	Application string
	Title       string
	Path        string
	Intervals   Intervals
}

// Titles maps a window title to its record within one application.
type Titles map[string]*Record

// Timeline maps an application to its titles. It is the full collection of
// records that the tracker writes and the report engine reads.
type Timeline map[string]Titles

// Cursor locates the open span.
type Cursor struct {
	Application string
	Title       string
	DateKey     string
	Index       int
}

// State is the tracker state carried between ticks. A nil Open means no span
// is open.
type State struct {
	Open *Cursor
}

// AbsentPolicy decides what an absent sample does to the open span.
type AbsentPolicy string

const (
	// AbsentPause closes the open span; idle time is not counted.
	AbsentPause AbsentPolicy = "pause"
	// AbsentExtend leaves the open span untouched; the next sample for the same
	// window extends it across the gap.
	AbsentExtend AbsentPolicy = "extend"
)

// TransitionKind classifies what a single observation did.
type TransitionKind string

const (
	TransitionIgnored  TransitionKind = "ignored"
	TransitionOpened   TransitionKind = "opened"
	TransitionExtended TransitionKind = "extended"
	TransitionSwitched TransitionKind = "switched"
	TransitionRollover TransitionKind = "rollover"
	TransitionPaused   TransitionKind = "paused"
)

// Transition reports the effect of one observation. Closed is set when a
// span was finalized by it.
type Transition struct {
	Kind   TransitionKind
	Closed *ClosedSpan
}

// ClosedSpan is a finalized span together with its owner.
type ClosedSpan struct {
	Application string
	Title       string
	Span        Span
}

// DateKeyOf returns the partition key for t in loc.
func DateKeyOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateKeyLayout)
}

// Lookup returns the record for (application, title), or nil.
func (tl Timeline) Lookup(application, title string) *Record {
	titles, ok := tl[application]
	if !ok {
		return nil
	}
	return titles[title]
}

// Ensure returns the record for the sample's (application, title), creating
// it when the pair has not been seen before.
func (tl Timeline) Ensure(s Sample) (*Record, bool) {
	titles, ok := tl[s.Application]
	if !ok {
		titles = make(Titles)
		tl[s.Application] = titles
	}
	if rec, ok := titles[s.Title]; ok {
		return rec, false
	}
	rec := &Record{
		Application: s.Application,
		Title:       s.Title,
		Path:        s.Path,
		Intervals:   make(Intervals),
	}
	titles[s.Title] = rec
	return rec, true
}

// RecordCount returns the number of records across all applications.
func (tl Timeline) RecordCount() int {
	n := 0
	for _, titles := range tl {
		n += len(titles)
	}
	return n
}

// Clone returns a deep copy that shares no memory with tl.
func (tl Timeline) Clone() Timeline {
	out := make(Timeline, len(tl))
	for app, titles := range tl {
		out[app] = titles.Clone()
	}
	return out
}

// Clone returns a deep copy of the title map.
func (t Titles) Clone() Titles {
	out := make(Titles, len(t))
	for title, rec := range t {
		out[title] = rec.Clone()
	}
	return out
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{
		Application: r.Application,
		Title:       r.Title,
		Path:        r.Path,
		Intervals:   make(Intervals, len(r.Intervals)),
	}
	for day, spans := range r.Intervals {
		out.Intervals[day] = append([]Span(nil), spans...)
	}
	return out
}

// Sanitize repairs state that violates the timeline invariants: negative
// durations are clamped to zero, empty day buckets and empty applications are
// dropped, and record keys are made to agree with the map they live in. It
// returns the number of repairs made.
func (tl Timeline) Sanitize() int {
	repairs := 0
	for app, titles := range tl {
		for title, rec := range titles {
			if rec == nil {
				delete(titles, title)
				repairs++
				continue
			}
			if rec.Application != app || rec.Title != title {
				rec.Application = app
				rec.Title = title
				repairs++
			}
			if rec.Intervals == nil {
				rec.Intervals = make(Intervals)
			}
			for day, spans := range rec.Intervals {
				if len(spans) == 0 {
					delete(rec.Intervals, day)
					repairs++
					continue
				}
				for i := range spans {
					if spans[i].Duration < 0 {
						spans[i].Duration = 0
						repairs++
					}
				}
			}
		}
		if len(titles) == 0 {
			delete(tl, app)
			repairs++
		}
	}
	return repairs
}
