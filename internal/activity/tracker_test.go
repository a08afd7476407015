package activity

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var (
	safariHome = &Sample{Application: "Safari", Title: "Home", Path: "/Applications/Safari.app"}
	safariNews = &Sample{Application: "Safari", Title: "News", Path: "/Applications/Safari.app"}
	termShell  = &Sample{Application: "Terminal", Title: "zsh", Path: "/usr/bin/terminal"}
)

func newTestTracker(t *testing.T, start time.Time, absent AbsentPolicy) (*Tracker, *TestClock) {
	t.Helper()

	clock := &TestClock{CurrentTime: start}
	tracker := NewTracker(nil, Config{
		Clock:        clock,
		Location:     time.UTC,
		AbsentPolicy: absent,
	}, zerolog.Nop())
	return tracker, clock
}

func spansOf(t *testing.T, tl Timeline, s *Sample, day string) []Span {
	t.Helper()

	rec := tl.Lookup(s.Application, s.Title)
	if rec == nil {
		t.Fatalf("no record for %s/%s", s.Application, s.Title)
	}
	return rec.Intervals[day]
}

func TestTracker_UnchangedFocusIsIdempotent(t *testing.T) {
	start := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker, clock := newTestTracker(t, start, AbsentPause)

	for i := 0; i < 5; i++ {
		tracker.Observe(safariHome)
		clock.Advance(time.Second)
	}

	tl, _ := tracker.Snapshot()
	spans := spansOf(t, tl, safariHome, "2024-03-10")
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Start != start.UnixMilli() {
		t.Errorf("expected start %d, got %d", start.UnixMilli(), spans[0].Start)
	}
	if spans[0].Duration != 4000 {
		t.Errorf("expected duration 4000ms, got %d", spans[0].Duration)
	}

	// repeating at the same instant changes nothing
	tracker.Observe(safariHome)
	tracker.Observe(safariHome)
	tl, _ = tracker.Snapshot()
	spans = spansOf(t, tl, safariHome, "2024-03-10")
	if len(spans) != 1 || spans[0].Duration != 5000 {
		t.Errorf("expected single span of 5000ms, got %+v", spans)
	}
}

func TestTracker_TransitionClosesPreviousSpan(t *testing.T) {
	start := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker, clock := newTestTracker(t, start, AbsentPause)

	if tr := tracker.Observe(safariHome); tr.Kind != TransitionOpened {
		t.Fatalf("expected opened, got %s", tr.Kind)
	}
	clock.Advance(time.Second)

	tr := tracker.Observe(termShell)
	if tr.Kind != TransitionSwitched {
		t.Fatalf("expected switched, got %s", tr.Kind)
	}
	if tr.Closed == nil || tr.Closed.Span.Duration != 1000 {
		t.Fatalf("expected closed span of 1000ms, got %+v", tr.Closed)
	}

	tl, _ := tracker.Snapshot()
	home := spansOf(t, tl, safariHome, "2024-03-10")
	if len(home) != 1 || home[0].Duration != 1000 {
		t.Errorf("expected Safari/Home closed at 1000ms, got %+v", home)
	}
	shell := spansOf(t, tl, termShell, "2024-03-10")
	if len(shell) != 1 || shell[0].Duration != 0 {
		t.Errorf("expected Terminal/zsh open at 0ms, got %+v", shell)
	}

	// the closed span is no longer updated
	clock.Advance(3 * time.Second)
	tracker.Observe(termShell)
	tl, _ = tracker.Snapshot()
	if d := spansOf(t, tl, safariHome, "2024-03-10")[0].Duration; d != 1000 {
		t.Errorf("closed span changed to %d", d)
	}
	if d := spansOf(t, tl, termShell, "2024-03-10")[0].Duration; d != 3000 {
		t.Errorf("expected open span at 3000ms, got %d", d)
	}
}

func TestTracker_TitleReappearanceStartsNewSpan(t *testing.T) {
	start := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker, clock := newTestTracker(t, start, AbsentPause)

	tracker.Observe(safariHome)
	clock.Advance(2 * time.Second)
	tracker.Observe(safariNews)
	clock.Advance(time.Second)
	tracker.Observe(safariHome)

	tl, _ := tracker.Snapshot()
	home := spansOf(t, tl, safariHome, "2024-03-10")
	if len(home) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(home))
	}
	if home[0].Duration != 2000 {
		t.Errorf("expected first span 2000ms, got %d", home[0].Duration)
	}
	if home[1].Start != start.Add(3*time.Second).UnixMilli() || home[1].Duration != 0 {
		t.Errorf("unexpected second span %+v", home[1])
	}
	if len(tl["Safari"]) != 2 {
		t.Errorf("expected 2 Safari titles, got %d", len(tl["Safari"]))
	}
}

func TestTracker_AbsentSample(t *testing.T) {
	start := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("pause closes the span", func(t *testing.T) {
		tracker, clock := newTestTracker(t, start, AbsentPause)

		tracker.Observe(safariHome)
		clock.Advance(2 * time.Second)
		tr := tracker.Observe(nil)
		if tr.Kind != TransitionPaused {
			t.Fatalf("expected paused, got %s", tr.Kind)
		}
		if tracker.State().Open != nil {
			t.Fatal("expected no open span after pause")
		}

		clock.Advance(time.Minute)
		tracker.Observe(nil)
		tracker.Observe(safariHome)

		tl, _ := tracker.Snapshot()
		spans := spansOf(t, tl, safariHome, "2024-03-10")
		if len(spans) != 2 {
			t.Fatalf("expected 2 spans, got %d", len(spans))
		}
		if spans[0].Duration != 2000 || spans[1].Duration != 0 {
			t.Errorf("unexpected spans %+v", spans)
		}
	})

	t.Run("extend keeps the span open", func(t *testing.T) {
		tracker, clock := newTestTracker(t, start, AbsentExtend)

		tracker.Observe(safariHome)
		clock.Advance(time.Second)
		if tr := tracker.Observe(nil); tr.Kind != TransitionIgnored {
			t.Fatalf("expected ignored, got %s", tr.Kind)
		}
		clock.Advance(2 * time.Second)
		tracker.Observe(safariHome)

		tl, _ := tracker.Snapshot()
		spans := spansOf(t, tl, safariHome, "2024-03-10")
		if len(spans) != 1 || spans[0].Duration != 3000 {
			t.Errorf("expected one span of 3000ms, got %+v", spans)
		}
	})

	t.Run("malformed sample is absent", func(t *testing.T) {
		tracker, _ := newTestTracker(t, start, AbsentExtend)
		if tr := tracker.Observe(&Sample{Title: "orphan"}); tr.Kind != TransitionIgnored {
			t.Fatalf("expected ignored, got %s", tr.Kind)
		}
		tl, rev := tracker.Snapshot()
		if len(tl) != 0 || rev != 0 {
			t.Errorf("expected untouched timeline, got %d apps at revision %d", len(tl), rev)
		}
	})
}

func TestTracker_DayRolloverSplitsSpan(t *testing.T) {
	start := time.Date(2024, 3, 10, 23, 59, 58, 0, time.UTC)
	tracker, clock := newTestTracker(t, start, AbsentPause)

	tracker.Observe(safariHome)
	clock.Advance(time.Second)
	tracker.Observe(safariHome)
	clock.Advance(2 * time.Second)
	tr := tracker.Observe(safariHome)
	if tr.Kind != TransitionRollover {
		t.Fatalf("expected rollover, got %s", tr.Kind)
	}

	tl, _ := tracker.Snapshot()
	before := spansOf(t, tl, safariHome, "2024-03-10")
	after := spansOf(t, tl, safariHome, "2024-03-11")
	if len(before) != 1 || before[0].Duration != 3000 {
		t.Errorf("expected previous day span of 3000ms, got %+v", before)
	}
	if len(after) != 1 || after[0].Duration != 0 {
		t.Errorf("expected new day span at 0ms, got %+v", after)
	}
}

func TestTracker_SwitchToExistingRecordOnNewDay(t *testing.T) {
	start := time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC)
	tracker, clock := newTestTracker(t, start, AbsentPause)

	tracker.Observe(safariHome)
	clock.Advance(time.Second)
	tracker.Observe(termShell)
	clock.Advance(6 * time.Hour)
	tracker.Observe(termShell)
	tracker.Observe(safariHome)

	tl, _ := tracker.Snapshot()
	if spans := spansOf(t, tl, safariHome, "2024-03-10"); len(spans) != 1 {
		t.Errorf("expected the old bucket untouched, got %+v", spans)
	}
	if spans := spansOf(t, tl, safariHome, "2024-03-11"); len(spans) != 1 || spans[0].Duration != 0 {
		t.Errorf("expected a fresh span today, got %+v", spans)
	}
}

func TestTracker_ResetStartsFresh(t *testing.T) {
	start := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker, clock := newTestTracker(t, start, AbsentPause)

	tracker.Observe(safariHome)
	clock.Advance(5 * time.Second)
	tracker.Observe(safariHome)

	tracker.Reset()
	tl, _ := tracker.Snapshot()
	if len(tl) != 0 {
		t.Fatalf("expected empty timeline, got %d applications", len(tl))
	}

	clock.Advance(time.Second)
	if tr := tracker.Observe(safariHome); tr.Kind != TransitionOpened {
		t.Fatalf("expected opened after reset, got %s", tr.Kind)
	}
	tl, _ = tracker.Snapshot()
	spans := spansOf(t, tl, safariHome, "2024-03-10")
	if len(spans) != 1 || spans[0].Duration != 0 {
		t.Errorf("expected one fresh span, got %+v", spans)
	}
}

func TestTracker_SnapshotIsIsolated(t *testing.T) {
	start := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker, clock := newTestTracker(t, start, AbsentPause)

	tracker.Observe(safariHome)
	snap, rev := tracker.Snapshot()

	clock.Advance(time.Second)
	tracker.Observe(safariHome)

	if d := spansOf(t, snap, safariHome, "2024-03-10")[0].Duration; d != 0 {
		t.Errorf("snapshot observed a later mutation: %d", d)
	}
	if tracker.Revision() <= rev {
		t.Errorf("expected revision to advance past %d", rev)
	}

	snap["Safari"]["Home"].Intervals["2024-03-10"][0].Duration = 99
	live, _ := tracker.Snapshot()
	if d := spansOf(t, live, safariHome, "2024-03-10")[0].Duration; d != 1000 {
		t.Errorf("tracker observed a snapshot mutation: %d", d)
	}
}

func TestTracker_LoadSanitizes(t *testing.T) {
	start := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker, _ := newTestTracker(t, start, AbsentPause)

	tracker.Load(Timeline{
		"Safari": Titles{
			"Home": &Record{
				Application: "Safari",
				Title:       "Home",
				Intervals: Intervals{
					"2024-03-09": {{Start: 1, Duration: -5}},
					"2024-03-08": {},
				},
			},
		},
		"Empty": Titles{},
	})

	tl, _ := tracker.Snapshot()
	if _, ok := tl["Empty"]; ok {
		t.Error("expected empty application to be dropped")
	}
	rec := tl.Lookup("Safari", "Home")
	if rec == nil {
		t.Fatal("expected Safari/Home to survive")
	}
	if _, ok := rec.Intervals["2024-03-08"]; ok {
		t.Error("expected empty day bucket to be dropped")
	}
	if d := rec.Intervals["2024-03-09"][0].Duration; d != 0 {
		t.Errorf("expected negative duration clamped to 0, got %d", d)
	}

	// loaded records are appended to, not replaced
	tracker.Observe(safariHome)
	tl, _ = tracker.Snapshot()
	if n := len(tl.Lookup("Safari", "Home").Intervals); n != 2 {
		t.Errorf("expected 2 day buckets, got %d", n)
	}
}

func TestStep_ReplayIsDeterministic(t *testing.T) {
	start := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	samples := []*Sample{safariHome, safariHome, termShell, nil, termShell, safariNews, safariHome}

	replay := func() Timeline {
		tl := make(Timeline)
		var state State
		for i, s := range samples {
			state, _ = Step(state, tl, s, start.Add(time.Duration(i)*time.Second), time.UTC, AbsentPause)
		}
		return tl
	}

	a, b := replay(), replay()
	for app, titles := range a {
		for title, rec := range titles {
			other := b.Lookup(app, title)
			if other == nil {
				t.Fatalf("missing %s/%s in replay", app, title)
			}
			for day, spans := range rec.Intervals {
				if len(spans) != len(other.Intervals[day]) {
					t.Fatalf("span count mismatch for %s/%s on %s", app, title, day)
				}
				for i := range spans {
					if spans[i] != other.Intervals[day][i] {
						t.Errorf("span %d mismatch: %+v vs %+v", i, spans[i], other.Intervals[day][i])
					}
				}
			}
		}
	}

	// Safari/Home: [0s..2s] then reopened at 6s
	home := a.Lookup("Safari", "Home").Intervals["2024-03-10"]
	if len(home) != 2 || home[0].Duration != 2000 {
		t.Errorf("unexpected Safari/Home spans %+v", home)
	}
	// Terminal: [2s..3s] paused, then [4s..5s]
	shell := a.Lookup("Terminal", "zsh").Intervals["2024-03-10"]
	if len(shell) != 2 || shell[0].Duration != 1000 || shell[1].Duration != 1000 {
		t.Errorf("unexpected Terminal spans %+v", shell)
	}
}
