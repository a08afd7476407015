package storage

import (
	"context"
	"time"

	"github.com/goodtune/focustime/internal/activity"
)

// Meta describes the last successful save.
type Meta struct {
	SavedAt      time.Time `json:"saved_at"`
	Applications int       `json:"applications"`
	Records      int       `json:"records"`
}

// MetaReader is implemented by timing stores that record save metadata.
type MetaReader interface {
	Meta(ctx context.Context) (*Meta, error)
}

// NewMeta summarizes timeline as saved at now.
func NewMeta(timeline activity.Timeline, now time.Time) Meta {
	return Meta{
		SavedAt:      now.UTC(),
		Applications: len(timeline),
		Records:      timeline.RecordCount(),
	}
}
