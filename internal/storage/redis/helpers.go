package redis

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goodtune/focustime/internal/storage"
)

// keys builds the key names under one prefix.
type keys struct {
	prefix string
}

// apps is the set of application names that have a records hash.
func (k keys) apps() string { return k.prefix + ":apps" }

// appPrefix is prepended to an application name to form its hash key.
func (k keys) appPrefix() string { return k.prefix + ":app:" }

// app is the hash of title -> encoded record for one application.
func (k keys) app(name string) string { return k.appPrefix() + name }

// meta is the hash describing the last save.
func (k keys) meta() string { return k.prefix + ":meta" }

// metaFields converts Meta to Redis hash fields
func metaFields(meta storage.Meta) map[string]interface{} {
	return map[string]interface{}{
		"saved_at":     meta.SavedAt.Format(time.RFC3339Nano),
		"applications": meta.Applications,
		"records":      meta.Records,
	}
}

// parseMeta converts a Redis hash to Meta
func parseMeta(data map[string]string) (*storage.Meta, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	savedAt, err := time.Parse(time.RFC3339Nano, data["saved_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse saved_at: %w", err)
	}

	applications, err := strconv.Atoi(data["applications"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse applications: %w", err)
	}

	records, err := strconv.Atoi(data["records"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}

	return &storage.Meta{
		SavedAt:      savedAt,
		Applications: applications,
		Records:      records,
	}, nil
}
