package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goodtune/focustime/internal/activity"
	"github.com/goodtune/focustime/internal/format"
)

// Range selects how many calendar days, counting back from today, a
// breakdown covers. RangeAll covers every day.
type Range int

const (
	RangeAll   Range = 0
	RangeDay   Range = 1
	RangeWeek  Range = 7
	RangeMonth Range = 30
	RangeYear  Range = 365
)

// Ranges lists the ranges offered by the range selector.
var Ranges = []Range{RangeAll, RangeDay, RangeWeek, RangeMonth, RangeYear}

// ParseRange accepts "all", a day count, or a named range.
func ParseRange(s string) (Range, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return RangeAll, nil
	case "day", "today":
		return RangeDay, nil
	case "week":
		return RangeWeek, nil
	case "month":
		return RangeMonth, nil
	case "year":
		return RangeYear, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid range: %q", s)
	}
	return Range(n), nil
}

// String returns "all" or the day count.
func (r Range) String() string {
	if r <= RangeAll {
		return "all"
	}
	return strconv.Itoa(int(r))
}

// Entry is one labelled total in a breakdown.
type Entry struct {
	Label  string  `json:"label"`
	Millis int64   `json:"millis"`
	Share  float64 `json:"share"`
	Color  string  `json:"color"`
}

// Breakdown is a sorted set of entries and their sum.
type Breakdown struct {
	Range   Range   `json:"-"`
	Total   int64   `json:"total"`
	Entries []Entry `json:"entries"`
}

// Engine computes read-only aggregates over timelines.
type Engine struct {
	clock    activity.Clock
	location *time.Location
	reserved map[string]struct{}
}

// NewEngine creates an engine. Applications named in reserved never appear in
// application breakdowns.
func NewEngine(clock activity.Clock, location *time.Location, reserved []string) *Engine {
	if clock == nil {
		clock = activity.RealClock{}
	}
	if location == nil {
		location = time.Local
	}
	set := make(map[string]struct{}, len(reserved))
	for _, app := range reserved {
		set[app] = struct{}{}
	}
	return &Engine{clock: clock, location: location, reserved: set}
}

// IsReserved reports whether application is excluded from breakdowns.
func (e *Engine) IsReserved(application string) bool {
	_, ok := e.reserved[application]
	return ok
}

// Days returns the date keys covered by r, newest first. It returns nil for
// RangeAll.
func (e *Engine) Days(r Range) []string {
	if r <= RangeAll {
		return nil
	}
	today := e.clock.Now().In(e.location)
	noon := time.Date(today.Year(), today.Month(), today.Day(), 12, 0, 0, 0, e.location)

	days := make([]string, 0, int(r))
	for i := 0; i < int(r); i++ {
		days = append(days, noon.AddDate(0, 0, -i).Format(activity.DateKeyLayout))
	}
	return days
}

// Total sums a record's span durations within r.
func (e *Engine) Total(rec *activity.Record, r Range) int64 {
	if rec == nil {
		return 0
	}
	return e.total(rec, e.Days(r), r)
}

func (e *Engine) total(rec *activity.Record, days []string, r Range) int64 {
	var sum int64
	if r <= RangeAll {
		for _, spans := range rec.Intervals {
			sum += sumSpans(spans)
		}
		return sum
	}
	for _, day := range days {
		sum += sumSpans(rec.Intervals[day])
	}
	return sum
}

// ApplicationTotal sums every title of one application within r.
func (e *Engine) ApplicationTotal(titles activity.Titles, r Range) int64 {
	days := e.Days(r)
	var sum int64
	for _, rec := range titles {
		if rec != nil {
			sum += e.total(rec, days, r)
		}
	}
	return sum
}

// Applications breaks the timeline down per application, skipping reserved
// applications and applications without time in r.
func (e *Engine) Applications(tl activity.Timeline, r Range) Breakdown {
	totals := make(map[string]int64, len(tl))
	for app, titles := range tl {
		if e.IsReserved(app) {
			continue
		}
		totals[app] = e.ApplicationTotal(titles, r)
	}
	return build(totals, r)
}

// Titles breaks one application down per window title.
func (e *Engine) Titles(titles activity.Titles, r Range) Breakdown {
	days := e.Days(r)
	totals := make(map[string]int64, len(titles))
	for title, rec := range titles {
		if rec != nil {
			totals[title] = e.total(rec, days, r)
		}
	}
	return build(totals, r)
}

func build(totals map[string]int64, r Range) Breakdown {
	b := Breakdown{Range: r, Entries: make([]Entry, 0, len(totals))}
	for label, ms := range totals {
		if ms <= 0 {
			continue
		}
		b.Total += ms
		b.Entries = append(b.Entries, Entry{
			Label:  label,
			Millis: ms,
			Color:  format.ColorOf(label),
		})
	}
	for i := range b.Entries {
		b.Entries[i].Share = format.Share(b.Entries[i].Millis, b.Total)
	}
	sort.Slice(b.Entries, func(i, j int) bool {
		return b.Entries[i].Label < b.Entries[j].Label
	})
	return b
}

func sumSpans(spans []activity.Span) int64 {
	var sum int64
	for _, s := range spans {
		if s.Duration > 0 {
			sum += s.Duration
		}
	}
	return sum
}
