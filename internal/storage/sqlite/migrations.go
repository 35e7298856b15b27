package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema runs every pending migration, each inside its own transaction,
// tracked in schema_migrations (spec §3 data model).
func (s *SQLiteDB) InitSchema() error {
	ctx := context.Background()

	if err := s.createMigrationsTable(ctx); err != nil {
		return err
	}

	migrations := []migration{
		{version: 1, name: "jobs_and_reposts", up: migrateV1},
	}

	for _, m := range migrations {
		if err := s.runMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}
	}

	return nil
}

type migration struct {
	version int
	name    string
	up      func(context.Context, *sql.Tx) error
}

func (s *SQLiteDB) createMigrationsTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at INTEGER NOT NULL
	)`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *SQLiteDB) runMigration(ctx context.Context, m migration) error {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.version).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := m.up(ctx, tx); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, strftime('%s', 'now'))",
		m.version, m.name)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// migrateV1 creates the jobs and repost_history tables (spec §3).
func migrateV1(ctx context.Context, tx *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			hash TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL,
			company TEXT NOT NULL,
			title TEXT NOT NULL,
			location TEXT,
			url TEXT NOT NULL,
			description TEXT,
			salary_min INTEGER,
			salary_max INTEGER,
			remote TEXT,
			score REAL DEFAULT 0,
			score_reasons TEXT,
			ghost_score REAL DEFAULT 0,
			ghost_reasons TEXT,
			first_seen INTEGER NOT NULL,
			last_seen INTEGER NOT NULL,
			repost_count INTEGER DEFAULT 0,
			immediate_alert_sent INTEGER DEFAULT 0,
			posted_at INTEGER
		)`,

		`CREATE INDEX IF NOT EXISTS idx_jobs_source ON jobs(source)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_score ON jobs(score DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_last_seen ON jobs(last_seen DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_ghost_score ON jobs(ghost_score DESC)`,

		`CREATE VIRTUAL TABLE IF NOT EXISTS jobs_fts USING fts5(
			company, title, location, description,
			content=jobs, content_rowid=id
		)`,

		`CREATE TRIGGER IF NOT EXISTS jobs_ai AFTER INSERT ON jobs BEGIN
			INSERT INTO jobs_fts(rowid, company, title, location, description)
			VALUES (new.id, new.company, new.title, new.location, new.description);
		END`,

		`CREATE TRIGGER IF NOT EXISTS jobs_ad AFTER DELETE ON jobs BEGIN
			DELETE FROM jobs_fts WHERE rowid = old.id;
		END`,

		`CREATE TRIGGER IF NOT EXISTS jobs_au AFTER UPDATE ON jobs BEGIN
			DELETE FROM jobs_fts WHERE rowid = old.id;
			INSERT INTO jobs_fts(rowid, company, title, location, description)
			VALUES (new.id, new.company, new.title, new.location, new.description);
		END`,

		`CREATE TABLE IF NOT EXISTS repost_history (
			job_hash TEXT NOT NULL,
			observed_at INTEGER NOT NULL,
			FOREIGN KEY (job_hash) REFERENCES jobs(hash) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_repost_history_hash ON repost_history(job_hash)`,
	}

	for _, query := range queries {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
	}

	return nil
}
