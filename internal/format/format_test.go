package format

import (
	"regexp"
	"testing"
)

func TestColorOf(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Safari", "#28FBA0"},
		{"Terminal", "#71F69C"},
		{"a", "#000061"},
		{"", "#000000"},
		{"😀", "#1B0D63"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := ColorOf(tt.label); got != tt.want {
				t.Errorf("ColorOf(%q) = %s, want %s", tt.label, got, tt.want)
			}
		})
	}
}

func TestColorOf_Stable(t *testing.T) {
	pattern := regexp.MustCompile(`^#[0-9A-F]{6}$`)
	labels := []string{"Safari", "Google Chrome", "loginwindow", "Visual Studio Code — main.go"}

	for _, label := range labels {
		first := ColorOf(label)
		if !pattern.MatchString(first) {
			t.Errorf("ColorOf(%q) = %s is not a 6-digit hex color", label, first)
		}
		if again := ColorOf(label); again != first {
			t.Errorf("ColorOf(%q) changed from %s to %s", label, first, again)
		}
	}
}

func TestRGB(t *testing.T) {
	r, g, b := RGB("Safari")
	if r != 0x28 || g != 0xFB || b != 0xA0 {
		t.Errorf("RGB(Safari) = %d,%d,%d", r, g, b)
	}
}

func TestDuration(t *testing.T) {
	const (
		second = int64(1000)
		minute = 60 * second
		hour   = 60 * minute
		day    = 24 * hour
	)

	tests := []struct {
		name string
		ms   int64
		g    Granularity
		want string
	}{
		{"zero", 0, Seconds, "0 s"},
		{"sub-second", 999, Seconds, "0 s"},
		{"seconds", 42 * second, Seconds, "42 s"},
		{"mixed", day + 2*hour + 3*minute + 4*second, Seconds, "1 d 2 h 3 m 4 s"},
		{"gaps", day + 4*second, Seconds, "1 d 4 s"},
		{"minute granularity", 2*hour + 3*minute + 59*second, Minutes, "2 h 3 m"},
		{"minute granularity under a minute", 59 * second, Minutes, "0 m"},
		{"hour granularity", 3*day + 5*hour + 59*minute, Hours, "3 d 5 h"},
		{"negative", -5, Seconds, "0 s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Duration(tt.ms, DefaultUnits, tt.g); got != tt.want {
				t.Errorf("Duration(%d) = %q, want %q", tt.ms, got, tt.want)
			}
		})
	}
}

func TestDuration_Units(t *testing.T) {
	german := Units{Day: "T", Hour: "Std", Minute: "Min", Second: "Sek"}
	if got := Duration(3_723_000, german, Seconds); got != "1 Std 2 Min 3 Sek" {
		t.Errorf("unexpected localized duration %q", got)
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(1, 3); got != "33.3 %" {
		t.Errorf("Percent(1, 3) = %q", got)
	}
	if got := Percent(5, 0); got != "0.0 %" {
		t.Errorf("Percent(5, 0) = %q", got)
	}
}
