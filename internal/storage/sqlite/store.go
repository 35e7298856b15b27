package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/jobsentinel/jobsentinel/internal/apperr"
	"github.com/jobsentinel/jobsentinel/internal/models"
)

// ErrJobNotFound is returned when a job is not found in the database.
var ErrJobNotFound = errors.New("job not found")

// Store is the SQLite-backed implementation of spec §4.5's Store
// component. A single in-process mutex plus a 1-connection pool gives it
// the same single-writer discipline as the teacher's JobStorage.
type Store struct {
	db     *SQLiteDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// Open wraps an already-initialized SQLiteDB in a Store. Callers obtain the
// SQLiteDB via NewSQLiteDB in internal/app's composition root.
func Open(db *SQLiteDB, logger arbor.ILogger) *Store {
	return &Store{db: db, logger: logger}
}

// retryWithExponentialBackoff retries an operation on transient SQLITE_BUSY
// errors, the same pattern the teacher's storage layer uses for every
// write under its single-connection pool.
func retryWithExponentialBackoff(ctx context.Context, operation func() error, maxAttempts int, initialDelay time.Duration, logger arbor.ILogger) error {
	var lastErr error
	delay := initialDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = operation()
		if lastErr == nil {
			return nil
		}

		errMsg := lastErr.Error()
		isBusyError := strings.Contains(errMsg, "database is locked") || strings.Contains(errMsg, "SQLITE_BUSY")
		if !isBusyError {
			return lastErr
		}

		if attempt < maxAttempts {
			logger.Warn().
				Int("attempt", attempt).
				Int("max_attempts", maxAttempts).
				Str("delay", delay.String()).
				Str("error", errMsg).
				Msg("database locked, retrying")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	logger.Error().Int("max_attempts", maxAttempts).Err(lastErr).Msg("all retry attempts exhausted")
	return lastErr
}

// Upsert inserts a new job or updates the existing row sharing its hash
// (spec §4.5). immediate_alert_sent and first_seen are intentionally
// omitted from the UPDATE clause: the teacher's SaveJob uses the same
// ON CONFLICT shape to protect fields that must never be clobbered by a
// later write, here the invariant is "once true, always true" for the
// alert flag and "earliest wins" for first_seen. Every call — create or
// update — appends one RepostHistory row for the observation; repost_count
// only advances on an update, so seeing a job for the first time logs one
// history row at repost_count=0 and seeing it again logs a second at
// repost_count=1 (spec §8 scenario 1).
func (s *Store) Upsert(ctx context.Context, job *models.Job) (models.UpsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job.Normalize()
	if err := models.ValidateURL(job.URL); err != nil {
		return "", apperr.Wrap(apperr.KindStoreError, "invalid job url", err).WithField("hash", job.Hash)
	}

	scoreReasonsJSON, err := json.Marshal(job.ScoreReasons)
	if err != nil {
		return "", apperr.Wrap(apperr.KindStoreError, "marshal score_reasons", err)
	}
	ghostReasonsJSON, err := json.Marshal(job.GhostReasons)
	if err != nil {
		return "", apperr.Wrap(apperr.KindStoreError, "marshal ghost_reasons", err)
	}

	now := time.Now().UTC()
	if job.FirstSeen.IsZero() {
		job.FirstSeen = now
	}
	job.LastSeen = now

	var outcome models.UpsertOutcome
	op := func() error {
		tx, txErr := s.db.BeginTx(ctx)
		if txErr != nil {
			return txErr
		}
		defer tx.Rollback()

		var existingID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM jobs WHERE hash = ?`, job.Hash).Scan(&existingID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			outcome = models.OutcomeCreated
		case err != nil:
			return err
		default:
			outcome = models.OutcomeUpdated
		}

		if _, execErr := tx.ExecContext(ctx, `
			INSERT INTO jobs (
				hash, source, company, title, location, url, description,
				salary_min, salary_max, remote, score, score_reasons,
				ghost_score, ghost_reasons, first_seen, last_seen,
				repost_count, immediate_alert_sent, posted_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?)
			ON CONFLICT(hash) DO UPDATE SET
				company = excluded.company,
				title = excluded.title,
				location = excluded.location,
				url = excluded.url,
				description = excluded.description,
				salary_min = excluded.salary_min,
				salary_max = excluded.salary_max,
				remote = excluded.remote,
				score = excluded.score,
				score_reasons = excluded.score_reasons,
				ghost_score = excluded.ghost_score,
				ghost_reasons = excluded.ghost_reasons,
				last_seen = excluded.last_seen,
				posted_at = excluded.posted_at,
				repost_count = jobs.repost_count + 1
		`,
			job.Hash, job.Source, job.Company, job.Title, job.Location, job.URL, job.Description,
			nullableInt(job.SalaryMin), nullableInt(job.SalaryMax), string(job.Remote),
			job.Score, string(scoreReasonsJSON), job.GhostScore, string(ghostReasonsJSON),
			job.FirstSeen.Unix(), job.LastSeen.Unix(), unixPtr(job.PostedAt),
		); execErr != nil {
			return execErr
		}

		if _, execErr := tx.ExecContext(ctx,
			`INSERT INTO repost_history (job_hash, observed_at) VALUES (?, ?)`,
			job.Hash, job.LastSeen.Unix()); execErr != nil {
			return execErr
		}

		if outcome == models.OutcomeUpdated {
			if execErr := tx.QueryRowContext(ctx, `SELECT repost_count FROM jobs WHERE hash = ?`, job.Hash).Scan(&job.RepostCount); execErr != nil {
				return execErr
			}
		}

		return tx.Commit()
	}

	if err := retryWithExponentialBackoff(ctx, op, 5, 50*time.Millisecond, s.logger); err != nil {
		return "", apperr.Wrap(apperr.KindStoreError, "upsert job", err).WithField("hash", job.Hash)
	}

	return outcome, nil
}

// MarkAlertSent idempotently flips immediate_alert_sent for the job with
// the given id; the column is write-once by convention (spec §3 invariant
// "once set, never reset"), so the WHERE clause only ever matches a row
// that hasn't been marked yet. Returns apperr.NotFound when no row matches
// id at all (spec §4.5) — a row that exists but was already marked is not
// an error, it simply affects zero rows on the second call.
func (s *Store) MarkAlertSent(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected int64
	op := func() error {
		result, err := s.db.DB().ExecContext(ctx,
			`UPDATE jobs SET immediate_alert_sent = 1 WHERE id = ? AND immediate_alert_sent = 0`, id)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	}
	if err := retryWithExponentialBackoff(ctx, op, 5, 50*time.Millisecond, s.logger); err != nil {
		return apperr.Wrap(apperr.KindStoreError, "mark alert sent", err).WithField("id", id)
	}
	if affected == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			if errors.Is(err, ErrJobNotFound) {
				return apperr.Wrap(apperr.KindNotFound, "job not found", ErrJobNotFound).WithField("id", id)
			}
			return err
		}
	}
	return nil
}

// GetByHash returns the job with the given hash, or ErrJobNotFound.
func (s *Store) GetByHash(ctx context.Context, hash string) (*models.Job, error) {
	row := s.db.DB().QueryRowContext(ctx, jobSelectColumns+` FROM jobs WHERE hash = ?`, hash)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreError, "get job by hash", err)
	}
	return job, nil
}

// GetByID returns the job with the given monotonic store id (spec §3's
// "id" distinct from the dedup "hash"), or ErrJobNotFound.
func (s *Store) GetByID(ctx context.Context, id int64) (*models.Job, error) {
	row := s.db.DB().QueryRowContext(ctx, jobSelectColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreError, "get job by id", err)
	}
	return job, nil
}

// ListOptions filters/sorts List (spec §4.10 list command).
type ListOptions struct {
	Source      string
	MinScore    float64
	MaxGhost    float64
	Search      string
	OrderByScoreDesc bool
	Limit       int
	Offset      int
}

// List returns jobs matching opts, newest-first unless OrderByScoreDesc.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*models.Job, error) {
	query := jobSelectColumns + ` FROM jobs WHERE 1=1`
	args := []any{}

	if opts.Source != "" {
		query += ` AND source = ?`
		args = append(args, opts.Source)
	}
	if opts.MinScore > 0 {
		query += ` AND score >= ?`
		args = append(args, opts.MinScore)
	}
	if opts.MaxGhost > 0 {
		query += ` AND ghost_score <= ?`
		args = append(args, opts.MaxGhost)
	}
	if opts.Search != "" {
		query += ` AND id IN (SELECT rowid FROM jobs_fts WHERE jobs_fts MATCH ?)`
		args = append(args, opts.Search)
	}

	if opts.OrderByScoreDesc {
		query += ` ORDER BY score DESC, last_seen DESC`
	} else {
		query += ` ORDER BY last_seen DESC`
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, opts.Offset)

	rows, err := s.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreError, "list jobs", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJobRows(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStoreError, "scan job row", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// GhostJobs returns jobs whose ghost_score is at or above threshold.
func (s *Store) GhostJobs(ctx context.Context, threshold float64) ([]*models.Job, error) {
	rows, err := s.db.DB().QueryContext(ctx,
		jobSelectColumns+` FROM jobs WHERE ghost_score >= ? ORDER BY ghost_score DESC LIMIT 1000`, threshold)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreError, "ghost jobs", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJobRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats summarizes the store for the RPC status command (spec §4.10).
type Stats struct {
	TotalJobs   int
	BySource    map[string]int
	AvgScore    float64
	GhostCount  int
}

// Stats computes aggregate counts.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{BySource: map[string]int{}}

	if err := s.db.DB().QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(AVG(score), 0) FROM jobs`).
		Scan(&stats.TotalJobs, &stats.AvgScore); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreError, "stats totals", err)
	}

	rows, err := s.db.DB().QueryContext(ctx, `SELECT source, COUNT(*) FROM jobs GROUP BY source`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreError, "stats by source", err)
	}
	defer rows.Close()
	for rows.Next() {
		var src string
		var count int
		if err := rows.Scan(&src, &count); err != nil {
			return nil, err
		}
		stats.BySource[src] = count
	}

	if err := s.db.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE ghost_score >= 0.5`).
		Scan(&stats.GhostCount); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreError, "stats ghost count", err)
	}

	return stats, nil
}

// RepostObservations returns the observed_at timestamps recorded for a job
// hash, oldest first.
func (s *Store) RepostObservations(ctx context.Context, jobHash string) ([]time.Time, error) {
	rows, err := s.db.DB().QueryContext(ctx,
		`SELECT observed_at FROM repost_history WHERE job_hash = ? ORDER BY observed_at ASC`, jobHash)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreError, "repost observations", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var unix int64
		if err := rows.Scan(&unix); err != nil {
			return nil, err
		}
		out = append(out, time.Unix(unix, 0).UTC())
	}
	return out, rows.Err()
}

// MedianDescriptionLen computes the median description length across all
// of a source's stored jobs (the upper middle value when the count is
// even), feeding the ghost analyzer's short-description
// signal (spec §4.7, decided per-source; see the design ledger).
func (s *Store) MedianDescriptionLen(ctx context.Context, source string) (int, error) {
	rows, err := s.db.DB().QueryContext(ctx,
		`SELECT LENGTH(description) FROM jobs WHERE source = ? ORDER BY LENGTH(description)`, source)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindStoreError, "median description len", err)
	}
	defer rows.Close()

	var lengths []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
		lengths = append(lengths, n)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(lengths) == 0 {
		return 0, nil
	}
	return lengths[len(lengths)/2], nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

const jobSelectColumns = `SELECT
	id, hash, source, company, title, location, url, description,
	salary_min, salary_max, remote, score, score_reasons,
	ghost_score, ghost_reasons, first_seen, last_seen,
	repost_count, immediate_alert_sent, posted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row *sql.Row) (*models.Job, error) {
	return scanJobGeneric(row)
}

func scanJobRows(rows *sql.Rows) (*models.Job, error) {
	return scanJobGeneric(rows)
}

func scanJobGeneric(r rowScanner) (*models.Job, error) {
	var (
		j                  models.Job
		remote             string
		scoreReasonsJSON   sql.NullString
		ghostReasonsJSON   sql.NullString
		salaryMin          sql.NullInt64
		salaryMax          sql.NullInt64
		firstSeenUnix      int64
		lastSeenUnix       int64
		postedAtUnix       sql.NullInt64
		immediateAlertSent int
	)

	if err := r.Scan(
		&j.ID, &j.Hash, &j.Source, &j.Company, &j.Title, &j.Location, &j.URL, &j.Description,
		&salaryMin, &salaryMax, &remote, &j.Score, &scoreReasonsJSON,
		&j.GhostScore, &ghostReasonsJSON, &firstSeenUnix, &lastSeenUnix,
		&j.RepostCount, &immediateAlertSent, &postedAtUnix,
	); err != nil {
		return nil, err
	}

	j.Remote = models.RemoteTag(remote)
	j.FirstSeen = time.Unix(firstSeenUnix, 0).UTC()
	j.LastSeen = time.Unix(lastSeenUnix, 0).UTC()
	j.ImmediateAlertSent = immediateAlertSent != 0

	if salaryMin.Valid {
		v := int(salaryMin.Int64)
		j.SalaryMin = &v
	}
	if salaryMax.Valid {
		v := int(salaryMax.Int64)
		j.SalaryMax = &v
	}
	if postedAtUnix.Valid {
		t := time.Unix(postedAtUnix.Int64, 0).UTC()
		j.PostedAt = &t
	}
	if scoreReasonsJSON.Valid && scoreReasonsJSON.String != "" {
		_ = json.Unmarshal([]byte(scoreReasonsJSON.String), &j.ScoreReasons)
	}
	if ghostReasonsJSON.Valid && ghostReasonsJSON.String != "" {
		_ = json.Unmarshal([]byte(ghostReasonsJSON.String), &j.GhostReasons)
	}

	return &j, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func unixPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}
