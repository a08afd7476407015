package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	Apply   func(tx *sqlx.Tx) error
}

// MigrationRunner applies pending migrations to a SQLite database.
type MigrationRunner struct {
	db         *sqlx.DB
	migrations []migration
}

// NewMigrationRunner creates a MigrationRunner with all registered migrations.
func NewMigrationRunner(db *sqlx.DB) *MigrationRunner {
	return &MigrationRunner{
		db: db,
		migrations: []migration{
			{Version: 1, Name: "records_and_spans", Apply: migrateV001},
			{Version: 2, Name: "save_meta", Apply: migrateV002},
		},
	}
}

// Run enables WAL mode and foreign keys, then applies each migration that
// hasn't been recorded in schema_migrations yet.
func (r *MigrationRunner) Run() error {
	if _, err := r.db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := r.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, m := range r.migrations {
		applied, err := r.isApplied(m.Version)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if applied {
			continue
		}

		if err := r.apply(m); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
	}

	return nil
}

// Version returns the highest applied migration version.
func (r *MigrationRunner) Version() (int, error) {
	var version int
	err := r.db.Get(&version, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (r *MigrationRunner) isApplied(version int) (bool, error) {
	var count int
	err := r.db.Get(&count, "SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// apply executes a migration inside a transaction and records it.
func (r *MigrationRunner) apply(m migration) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := m.Apply(tx); err != nil {
		return err
	}

	if _, err := tx.Exec(
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		m.Version, m.Name,
	); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	return tx.Commit()
}

func migrateV001(tx *sqlx.Tx) error {
	stmts := []string{
		`CREATE TABLE records (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			application TEXT NOT NULL,
			title       TEXT NOT NULL,
			path        TEXT NOT NULL DEFAULT '',
			UNIQUE (application, title)
		)`,
		`CREATE TABLE spans (
			record_id   INTEGER NOT NULL REFERENCES records(id) ON DELETE CASCADE,
			date_key    TEXT NOT NULL,
			seq         INTEGER NOT NULL,
			start_ms    INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			PRIMARY KEY (record_id, date_key, seq)
		)`,
		`CREATE INDEX idx_spans_date_key ON spans(date_key)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func migrateV002(tx *sqlx.Tx) error {
	_, err := tx.Exec(`CREATE TABLE save_meta (
		id           INTEGER PRIMARY KEY CHECK (id = 1),
		saved_at     TEXT NOT NULL,
		applications INTEGER NOT NULL,
		records      INTEGER NOT NULL
	)`)
	return err
}
