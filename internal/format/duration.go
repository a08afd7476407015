package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Granularity is the smallest unit Duration prints.
type Granularity int

const (
	Seconds Granularity = iota
	Minutes
	Hours
	Days
)

// Units holds the unit suffixes used by Duration.
type Units struct {
	Day    string
	Hour   string
	Minute string
	Second string
}

// DefaultUnits are the short English suffixes.
var DefaultUnits = Units{Day: "d", Hour: "h", Minute: "m", Second: "s"}

// Duration renders ms as "1 d 2 h 3 m 4 s", omitting zero components and
// anything finer than g. A value that rounds down to nothing renders as
// "0" followed by the g suffix.
func Duration(ms int64, units Units, g Granularity) string {
	if ms < 0 {
		ms = 0
	}
	d := time.Duration(ms) * time.Millisecond

	days := int64(d / (24 * time.Hour))
	hours := int64(d/time.Hour) % 24
	minutes := int64(d/time.Minute) % 60
	seconds := int64(d/time.Second) % 60

	parts := make([]string, 0, 4)
	add := func(v int64, suffix string) {
		if v != 0 {
			parts = append(parts, strconv.FormatInt(v, 10)+" "+suffix)
		}
	}

	add(days, units.Day)
	if g <= Hours {
		add(hours, units.Hour)
	}
	if g <= Minutes {
		add(minutes, units.Minute)
	}
	if g <= Seconds {
		add(seconds, units.Second)
	}

	if len(parts) == 0 {
		return "0 " + units.suffix(g)
	}
	return strings.Join(parts, " ")
}

// Short renders ms with the default units at second granularity.
func Short(ms int64) string {
	return Duration(ms, DefaultUnits, Seconds)
}

// Percent returns part as a percentage of total with one decimal place.
func Percent(part, total int64) string {
	return fmt.Sprintf("%.1f %%", Share(part, total))
}

// Share returns part as a percentage of total.
func Share(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func (u Units) suffix(g Granularity) string {
	switch g {
	case Days:
		return u.Day
	case Hours:
		return u.Hour
	case Minutes:
		return u.Minute
	default:
		return u.Second
	}
}
