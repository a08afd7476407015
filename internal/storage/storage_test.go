package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goodtune/focustime/internal/activity"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from empty store, got %v", err)
	}

	tl := activity.Timeline{
		"Editor": activity.Titles{
			"main.go": &activity.Record{Application: "Editor", Title: "main.go", Intervals: activity.Intervals{
				"2024-03-10": {{Start: 1, Duration: 1000}},
			}},
		},
	}
	if err := store.Save(ctx, tl); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the caller's timeline must not reach the stored copy.
	tl.Lookup("Editor", "main.go").Intervals["2024-03-10"][0].Duration = 5

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := loaded.Lookup("Editor", "main.go").Intervals["2024-03-10"][0].Duration; got != 1000 {
		t.Errorf("expected stored duration 1000, got %d", got)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after clear, got %v", err)
	}

	saves, clears := store.Counts()
	if saves != 1 || clears != 1 {
		t.Errorf("expected 1 save and 1 clear, got %d and %d", saves, clears)
	}
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewMemoryStore().Save(ctx, activity.Timeline{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewMeta(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.FixedZone("AEDT", 11*3600))
	tl := activity.Timeline{
		"A": activity.Titles{"1": &activity.Record{}, "2": &activity.Record{}},
		"B": activity.Titles{"": &activity.Record{}},
	}

	meta := NewMeta(tl, now)
	if meta.Applications != 2 || meta.Records != 3 {
		t.Errorf("unexpected counts: %+v", meta)
	}
	if meta.SavedAt.Location() != time.UTC || !meta.SavedAt.Equal(now) {
		t.Errorf("expected UTC save time equal to now, got %s", meta.SavedAt)
	}
}

func TestEnsureDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "focustime.bolt")

	if err := EnsureDir(path); err != nil {
		t.Fatalf("ensure dir: %v", err)
	}
	info, err := os.Stat(filepath.Dir(path))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected a directory")
	}
	if perm := info.Mode().Perm(); perm != 0o700 {
		t.Errorf("expected 0700, got %o", perm)
	}

	if err := EnsureDir("focustime.bolt"); err != nil {
		t.Errorf("expected bare file name to be accepted, got %v", err)
	}
}
