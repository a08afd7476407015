package activity

import (
	"time"
)

// Step applies one sample to the timeline and returns the next state.
//
// The timeline is mutated in place; everything else Step needs arrives in its
// arguments, so a sequence of samples can be replayed deterministically. A nil
// sample, or one without an application, means no window was focused.
func Step(state State, tl Timeline, sample *Sample, now time.Time, loc *time.Location, absent AbsentPolicy) (State, Transition) {
	nowMs := now.UnixMilli()
	today := DateKeyOf(now, loc)

	if sample == nil || sample.Application == "" {
		if absent == AbsentPause && state.Open != nil {
			closed := closeSpan(tl, state.Open, nowMs)
			if closed == nil {
				return State{}, Transition{Kind: TransitionIgnored}
			}
			return State{}, Transition{Kind: TransitionPaused, Closed: closed}
		}
		return state, Transition{Kind: TransitionIgnored}
	}

	open := state.Open
	if open != nil && spanAt(tl, open) == nil {
		// the timeline was replaced underneath us
		open = nil
	}

	if open == nil {
		rec, _ := tl.Ensure(*sample)
		return State{Open: openSpan(rec, today, nowMs)}, Transition{Kind: TransitionOpened}
	}

	if open.Application == sample.Application && open.Title == sample.Title {
		if open.DateKey == today {
			span := spanAt(tl, open)
			span.Duration = elapsed(span.Start, nowMs)
			return state, Transition{Kind: TransitionExtended}
		}

		closed := closeSpan(tl, open, nowMs)
		rec := tl.Lookup(open.Application, open.Title)
		return State{Open: openSpan(rec, today, nowMs)}, Transition{Kind: TransitionRollover, Closed: closed}
	}

	closed := closeSpan(tl, open, nowMs)
	rec, _ := tl.Ensure(*sample)
	return State{Open: openSpan(rec, today, nowMs)}, Transition{Kind: TransitionSwitched, Closed: closed}
}

func openSpan(rec *Record, day string, nowMs int64) *Cursor {
	rec.Intervals[day] = append(rec.Intervals[day], Span{Start: nowMs})
	return &Cursor{
		Application: rec.Application,
		Title:       rec.Title,
		DateKey:     day,
		Index:       len(rec.Intervals[day]) - 1,
	}
}

func closeSpan(tl Timeline, c *Cursor, nowMs int64) *ClosedSpan {
	span := spanAt(tl, c)
	if span == nil {
		return nil
	}
	span.Duration = elapsed(span.Start, nowMs)
	return &ClosedSpan{
		Application: c.Application,
		Title:       c.Title,
		Span:        *span,
	}
}

func spanAt(tl Timeline, c *Cursor) *Span {
	rec := tl.Lookup(c.Application, c.Title)
	if rec == nil {
		return nil
	}
	spans := rec.Intervals[c.DateKey]
	if c.Index < 0 || c.Index >= len(spans) {
		return nil
	}
	return &spans[c.Index]
}

func elapsed(startMs, nowMs int64) int64 {
	if nowMs < startMs {
		return 0
	}
	return nowMs - startMs
}
