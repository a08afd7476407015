package storage

import (
	"context"
	"errors"

	"github.com/goodtune/focustime/internal/activity"
)

// ErrNotFound is returned when nothing has been persisted yet.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface.
type Store interface {
	Close() error
	Timings() TimingStore
}

// TimingStore persists the timeline. Save always replaces the full persisted
// state in a single transaction, so a later Save or Clear fully supersedes
// an earlier one.
type TimingStore interface {
	Load(ctx context.Context) (activity.Timeline, error)
	Save(ctx context.Context, timeline activity.Timeline) error
	Clear(ctx context.Context) error
}

// Publisher pushes timeline snapshots to presentation clients.
type Publisher interface {
	Publish(ctx context.Context, timeline activity.Timeline) error
}
