package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/focustime/internal/activity"
	"github.com/goodtune/focustime/internal/config"
	"github.com/goodtune/focustime/internal/format"
	"github.com/goodtune/focustime/internal/report"
	"github.com/goodtune/focustime/internal/storage"
	"github.com/spf13/cobra"
)

var (
	reportRange   string
	reportApp     string
	reportOffline bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a focus time breakdown",
	Long: `Print the time spent per application, or per window title of one
application, over the selected range. The running tracker is queried when
reachable; otherwise the timeline is read from storage.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportRange, "range", "r", "all", "Range: all, day, week, month, year or a number of days")
	reportCmd.Flags().StringVarP(&reportApp, "app", "a", "", "Break down one application by window title")
	reportCmd.Flags().BoolVar(&reportOffline, "offline", false, "Read storage directly instead of the running tracker")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(cfg.Logging, os.Stderr)

	rng, err := report.ParseRange(reportRange)
	if err != nil {
		return err
	}
	location, _ := cfg.Tracking.Location()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	tl, store, err := loadTimeline(ctx, cfg, reportOffline, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	engine := report.NewEngine(activity.RealClock{}, location, cfg.Tracking.ReservedApplications)

	var (
		b     report.Breakdown
		title string
	)
	if reportApp != "" {
		titles, ok := tl[reportApp]
		if !ok {
			return fmt.Errorf("no time recorded for application %q", reportApp)
		}
		b = engine.Titles(titles, rng)
		title = reportApp
	} else {
		b = engine.Applications(tl, rng)
		title = "Applications"
	}

	renderBreakdown(os.Stdout, title, b)

	if store != nil {
		if mr, ok := store.Timings().(storage.MetaReader); ok {
			if meta, err := mr.Meta(ctx); err == nil {
				fmt.Fprintf(os.Stdout, "\nLast saved %s (%d records)\n",
					meta.SavedAt.In(location).Format(time.DateTime), meta.Records)
			}
		}
	}

	return nil
}

// renderBreakdown prints one line per entry with a color swatch matching the
// label's chart color.
func renderBreakdown(w io.Writer, title string, b report.Breakdown) {
	cyan := color.New(color.FgCyan, color.Bold)
	bold := color.New(color.Bold)

	cyan.Fprintf(w, "%s (%s)\n", title, rangeLabel(b.Range))
	fmt.Fprintln(w, strings.Repeat("-", 60))

	if len(b.Entries) == 0 {
		fmt.Fprintln(w, "No focus time recorded in this range.")
		return
	}

	width := 0
	for _, e := range b.Entries {
		if n := len([]rune(e.Label)); n > width {
			width = n
		}
	}
	if width > 40 {
		width = 40
	}

	for _, e := range b.Entries {
		r, g, bl := format.RGB(e.Label)
		swatch := color.RGB(r, g, bl).Sprint("■")
		fmt.Fprintf(w, "%s %-*s  %14s  %8s\n",
			swatch, width, truncate(labelOf(e.Label), width),
			format.Short(e.Millis), format.Percent(e.Millis, b.Total))
	}

	fmt.Fprintln(w, strings.Repeat("-", 60))
	bold.Fprintf(w, "  %-*s  %14s\n", width, "Total", format.Short(b.Total))
}

func rangeLabel(r report.Range) string {
	switch r {
	case report.RangeAll:
		return "all time"
	case report.RangeDay:
		return "today"
	default:
		return fmt.Sprintf("last %d days", int(r))
	}
}

func labelOf(label string) string {
	if label == "" {
		return "(untitled)"
	}
	return label
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 1 {
		return string(runes[:n])
	}
	return string(runes[:n-1]) + "…"
}
