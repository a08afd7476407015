package main

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/focustime/internal/activity"
	"github.com/goodtune/focustime/internal/codec"
	"github.com/goodtune/focustime/internal/config"
	"github.com/goodtune/focustime/internal/report"
	"github.com/rs/zerolog"
)

func testTimeline() activity.Timeline {
	return activity.Timeline{
		"Editor": activity.Titles{
			"main.go": &activity.Record{Application: "Editor", Title: "main.go", Intervals: activity.Intervals{
				"2024-03-10": {{Start: 1, Duration: 90000}},
			}},
		},
	}
}

func TestOpenStorage(t *testing.T) {
	dir := t.TempDir()

	for _, typ := range []string{"bolt", "sqlite"} {
		t.Run(typ, func(t *testing.T) {
			store, err := openStorage(config.StorageConfig{Type: typ, Path: filepath.Join(dir, "focustime."+typ)})
			if err != nil {
				t.Fatalf("failed to open %s storage: %v", typ, err)
			}
			defer store.Close()

			if err := store.Timings().Save(context.Background(), testTimeline()); err != nil {
				t.Fatalf("save: %v", err)
			}
		})
	}

	if _, err := openStorage(config.StorageConfig{Type: "etcd"}); err == nil {
		t.Error("expected error for unsupported storage type")
	}
}

func TestParseDuration(t *testing.T) {
	if d := parseDuration("250ms", time.Second); d != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %s", d)
	}
	if d := parseDuration("soon", time.Second); d != time.Second {
		t.Errorf("expected fallback, got %s", d)
	}
}

func TestDaemonURL(t *testing.T) {
	tests := []struct {
		bind string
		want string
	}{
		{"127.0.0.1", "http://127.0.0.1:8765"},
		{"0.0.0.0", "http://127.0.0.1:8765"},
		{"", "http://127.0.0.1:8765"},
		{"::1", "http://[::1]:8765"},
	}
	for _, tt := range tests {
		cfg := &config.Config{Server: config.ServerConfig{BindAddress: tt.bind, APIPort: 8765}}
		if got := daemonURL(cfg); got != tt.want {
			t.Errorf("daemonURL(%q) = %s, want %s", tt.bind, got, tt.want)
		}
	}
}

func TestLoadTimeline_PrefersDaemon(t *testing.T) {
	payload, err := codec.Encode(testTimeline())
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/timing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer ts.Close()

	host, port := splitTestAddr(t, ts.Listener.Addr())
	cfg := &config.Config{Server: config.ServerConfig{BindAddress: host, APIPort: port}}

	tl, store, err := loadTimeline(context.Background(), cfg, false, zerolog.Nop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if store != nil {
		t.Error("expected no storage to be opened when the tracker answers")
	}
	if tl.Lookup("Editor", "main.go") == nil {
		t.Errorf("unexpected timeline: %v", tl)
	}
}

func TestLoadTimeline_FallsBackToStorage(t *testing.T) {
	cfg := &config.Config{
		Server:  config.ServerConfig{BindAddress: "127.0.0.1", APIPort: 0},
		Storage: config.StorageConfig{Type: "bolt", Path: filepath.Join(t.TempDir(), "focustime.bolt")},
	}

	tl, store, err := loadTimeline(context.Background(), cfg, false, zerolog.Nop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer store.Close()
	if len(tl) != 0 {
		t.Errorf("expected empty timeline from fresh storage, got %v", tl)
	}
}

func TestRenderBreakdown(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	clock := &activity.TestClock{CurrentTime: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	engine := report.NewEngine(clock, time.UTC, nil)
	tl := testTimeline()
	tl["Browser"] = activity.Titles{
		"": &activity.Record{Application: "Browser", Intervals: activity.Intervals{
			"2024-03-10": {{Start: 1, Duration: 30000}},
		}},
	}

	var buf bytes.Buffer
	renderBreakdown(&buf, "Applications", engine.Applications(tl, report.RangeDay))
	out := buf.String()

	for _, want := range []string{"Applications (today)", "Browser", "Editor", "75.0 %", "25.0 %", "Total"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Browser") > strings.Index(out, "Editor") {
		t.Error("expected entries sorted by label")
	}

	buf.Reset()
	renderBreakdown(&buf, "Applications", engine.Applications(activity.Timeline{}, report.RangeWeek))
	if !strings.Contains(buf.String(), "No focus time recorded") {
		t.Errorf("expected empty notice, got:\n%s", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncate("a very long window title", 6); got != "a ver…" {
		t.Errorf("got %q", got)
	}
}

func splitTestAddr(t *testing.T, addr net.Addr) (string, int) {
	t.Helper()
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		t.Fatalf("unexpected listener address %v", addr)
	}
	return tcp.IP.String(), tcp.Port
}
