// Package sqlite stores the timeline in normalized records and spans tables.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goodtune/focustime/internal/activity"
	"github.com/goodtune/focustime/internal/storage"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store implements the storage.Store interface using SQLite.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open opens or creates the database at path and applies migrations.
func Open(path string) (*Store, error) {
	if err := storage.EnsureDir(path); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection, and there is a single writer anyway.
	db.SetMaxOpenConns(1)

	if err := NewMigrationRunner(db).Run(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite db: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Timings returns the timing store.
func (s *Store) Timings() storage.TimingStore {
	return &timingStore{db: s.db, now: s.now}
}

type recordRow struct {
	ID          int64  `db:"id"`
	Application string `db:"application"`
	Title       string `db:"title"`
	Path        string `db:"path"`
}

type spanRow struct {
	RecordID int64  `db:"record_id"`
	DateKey  string `db:"date_key"`
	Seq      int    `db:"seq"`
	Start    int64  `db:"start_ms"`
	Duration int64  `db:"duration_ms"`
}

type metaRow struct {
	SavedAt      string `db:"saved_at"`
	Applications int    `db:"applications"`
	Records      int    `db:"records"`
}

type timingStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// Load implements storage.TimingStore.
func (s *timingStore) Load(ctx context.Context) (activity.Timeline, error) {
	var records []recordRow
	if err := s.db.SelectContext(ctx, &records, "SELECT id, application, title, path FROM records"); err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}

	var spans []spanRow
	if err := s.db.SelectContext(ctx, &spans,
		"SELECT record_id, date_key, seq, start_ms, duration_ms FROM spans ORDER BY record_id, date_key, seq",
	); err != nil {
		return nil, fmt.Errorf("select spans: %w", err)
	}

	timeline := make(activity.Timeline)
	byID := make(map[int64]*activity.Record, len(records))
	for _, row := range records {
		titles, ok := timeline[row.Application]
		if !ok {
			titles = make(activity.Titles)
			timeline[row.Application] = titles
		}
		rec := &activity.Record{
			Application: row.Application,
			Title:       row.Title,
			Path:        row.Path,
			Intervals:   make(activity.Intervals),
		}
		titles[row.Title] = rec
		byID[row.ID] = rec
	}

	for _, row := range spans {
		rec, ok := byID[row.RecordID]
		if !ok {
			continue
		}
		rec.Intervals[row.DateKey] = append(rec.Intervals[row.DateKey], activity.Span{
			Start:    row.Start,
			Duration: row.Duration,
		})
	}

	return timeline, nil
}

// Save implements storage.TimingStore.
func (s *timingStore) Save(ctx context.Context, timeline activity.Timeline) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteAll(ctx, tx); err != nil {
		return err
	}

	insertRecord, err := tx.PreparexContext(ctx, "INSERT INTO records (application, title, path) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare record insert: %w", err)
	}
	defer insertRecord.Close()

	insertSpan, err := tx.PreparexContext(ctx,
		"INSERT INTO spans (record_id, date_key, seq, start_ms, duration_ms) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare span insert: %w", err)
	}
	defer insertSpan.Close()

	for app, titles := range timeline {
		for title, rec := range titles {
			if rec == nil {
				continue
			}
			res, err := insertRecord.ExecContext(ctx, app, title, rec.Path)
			if err != nil {
				return fmt.Errorf("insert record %s/%s: %w", app, title, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("record id: %w", err)
			}
			for day, spans := range rec.Intervals {
				for seq, span := range spans {
					if _, err := insertSpan.ExecContext(ctx, id, day, seq, span.Start, span.Duration); err != nil {
						return fmt.Errorf("insert span %s/%s/%s: %w", app, title, day, err)
					}
				}
			}
		}
	}

	if err := s.writeMeta(ctx, tx, storage.NewMeta(timeline, s.now())); err != nil {
		return err
	}
	return tx.Commit()
}

// Clear implements storage.TimingStore.
func (s *timingStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteAll(ctx, tx); err != nil {
		return err
	}
	if err := s.writeMeta(ctx, tx, storage.NewMeta(nil, s.now())); err != nil {
		return err
	}
	return tx.Commit()
}

// Meta implements storage.MetaReader.
func (s *timingStore) Meta(ctx context.Context) (*storage.Meta, error) {
	var row metaRow
	err := s.db.GetContext(ctx, &row, "SELECT saved_at, applications, records FROM save_meta WHERE id = 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select meta: %w", err)
	}

	savedAt, err := time.Parse(time.RFC3339Nano, row.SavedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse saved_at: %w", err)
	}
	return &storage.Meta{SavedAt: savedAt, Applications: row.Applications, Records: row.Records}, nil
}

func (s *timingStore) writeMeta(ctx context.Context, tx *sqlx.Tx, meta storage.Meta) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO save_meta (id, saved_at, applications, records) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			saved_at = excluded.saved_at,
			applications = excluded.applications,
			records = excluded.records`,
		meta.SavedAt.Format(time.RFC3339Nano), meta.Applications, meta.Records,
	)
	if err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}

func deleteAll(ctx context.Context, tx *sqlx.Tx) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM spans"); err != nil {
		return fmt.Errorf("delete spans: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM records"); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	return nil
}
