package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/QuantumLaunch-hq/brandtruth-ai-sub001/internal/config"
)

// ErrNotFound is returned when an operation targets a missing queue item.
var ErrNotFound = errors.New("queue item not found")

const schema = `
CREATE TABLE IF NOT EXISTS queued_jobs (
    id            TEXT PRIMARY KEY,
    url           TEXT NOT NULL,
    variant_count INTEGER NOT NULL,
    platform      TEXT NOT NULL,
    campaign_name TEXT,
    status        TEXT NOT NULL,
    retry_count   INTEGER NOT NULL DEFAULT 0,
    last_error    TEXT,
    queued_at     TEXT NOT NULL,
    updated_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_queued_jobs_status ON queued_jobs(status, queued_at);
`

// Store manages durable queue persistence backed by SQLite.
type Store struct {
	db         *sql.DB
	path       string
	maxRetries int
}

// Open initializes or connects to the queue database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.QueueDBPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: dbPath, maxRetries: cfg.Queue.MaxRetries}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// MaxRetries returns the retry cap applied by IncrementRetry.
func (s *Store) MaxRetries() int { return s.maxRetries }

// Enqueue persists a start request that could not be submitted. The item
// enters at the tail of the FIFO order with a fresh client-generated id.
func (s *Store) Enqueue(ctx context.Context, req Request) (*Job, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, errors.New("request url required")
	}
	if req.VariantCount <= 0 {
		return nil, errors.New("variant count must be positive")
	}
	if strings.TrimSpace(req.Platform) == "" {
		return nil, errors.New("platform required")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	id := uuid.NewString()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO queued_jobs (
            id, url, variant_count, platform, campaign_name,
            status, retry_count, last_error, queued_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, 0, NULL, ?, ?)`,
		id,
		req.URL,
		req.VariantCount,
		req.Platform,
		nullableString(req.CampaignName),
		StatusQueued,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert queued job: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM queued_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get queued job: %w", err)
	}
	return job, nil
}

// Remove deletes an item unconditionally. Used both for cleanup after a
// successful start and for user-initiated cancellation.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queued_jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete queued job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// SetStatus updates status and the latest error message without touching
// retry accounting.
func (s *Store) SetStatus(ctx context.Context, id string, status Status, lastError string) error {
	if _, ok := statusSet[status]; !ok {
		return fmt.Errorf("unknown status %q", status)
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE queued_jobs SET status = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		status,
		nullableString(lastError),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementRetry advances an item's retry count after a failed submission.
// Hitting the cap freezes the item as failed; otherwise the item returns to
// queued and becomes eligible for the next drain pass.
func (s *Store) IncrementRetry(ctx context.Context, id string) (*Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin retry tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx, `SELECT retry_count FROM queued_jobs WHERE id = ?`, id)
	var retryCount int
	if err := row.Scan(&retryCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read retry count: %w", err)
	}

	retryCount++
	status := StatusQueued
	if retryCount >= s.maxRetries {
		status = StatusFailed
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE queued_jobs SET retry_count = ?, status = ?, updated_at = ? WHERE id = ?`,
		retryCount,
		status,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return nil, fmt.Errorf("update retry count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit retry tx: %w", err)
	}
	return s.GetByID(ctx, id)
}

// RecoverStuck repairs rows orphaned by a crash mid-drain. Retrying rows go
// back to queued with their retry accounting intact so the next pass picks
// them up again. Started rows had already been submitted successfully; their
// pending grace removal never ran, so it is completed here.
func (s *Store) RecoverStuck(ctx context.Context) (requeued int64, removed int64, err error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE queued_jobs SET status = ?, updated_at = ? WHERE status = ?`,
		StatusQueued,
		timestamp,
		StatusRetrying,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("requeue interrupted items: %w", err)
	}
	requeued, err = res.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("rows affected: %w", err)
	}

	res, err = s.db.ExecContext(ctx, `DELETE FROM queued_jobs WHERE status = ?`, StatusStarted)
	if err != nil {
		return requeued, 0, fmt.Errorf("remove orphaned started items: %w", err)
	}
	removed, err = res.RowsAffected()
	if err != nil {
		return requeued, 0, fmt.Errorf("rows affected: %w", err)
	}
	return requeued, removed, nil
}

// NextEligible returns the oldest queued item still under the retry cap, or
// nil when the queue is empty or exhausted. The item is not removed; removal
// is always explicit. Excluded ids let a drain pass move past an item it has
// already attempted, so a failing head of queue is tried once per pass, not
// busy-looped.
func (s *Store) NextEligible(ctx context.Context, exclude ...string) (*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM queued_jobs
         WHERE status = ? AND retry_count < ?`
	args := []any{StatusQueued, s.maxRetries}
	if len(exclude) > 0 {
		query += ` AND id NOT IN (` + makePlaceholders(len(exclude)) + `)`
		for _, id := range exclude {
			args = append(args, id)
		}
	}
	query += ` ORDER BY queued_at, rowid LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next eligible: %w", err)
	}
	return job, nil
}

// List returns queue items filtered by status set (or all items when no
// status is provided), in enqueue order.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	baseQuery := `SELECT ` + jobColumns + ` FROM queued_jobs`
	orderClause := ` ORDER BY queued_at, rowid`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list queued jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// RetryFailed unfreezes failed items, resetting retry accounting so they are
// eligible again. With no ids, every failed item is reset.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE queued_jobs SET status = ?, retry_count = 0, last_error = NULL, updated_at = ? WHERE status = ?`,
			StatusQueued,
			timestamp,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed items: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+3)
	args = append(args, StatusQueued, timestamp, StatusFailed)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE queued_jobs SET status = ?, retry_count = 0, last_error = NULL, updated_at = ?
         WHERE status = ? AND id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("retry selected items: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only frozen items from the queue.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queued_jobs WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all items from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queued_jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of items grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM queued_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates queue state for status output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusQueued:
			health.Queued += count
		case StatusRetrying:
			health.Retrying += count
		case StatusStarted:
			health.Started += count
		case StatusFailed:
			health.Failed += count
		}
	}
	return health, nil
}

const jobColumns = "id, url, variant_count, platform, campaign_name, status, retry_count, last_error, queued_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		jobURL       string
		variantCount int
		platform     string
		campaignName sql.NullString
		statusStr    string
		retryCount   int
		lastError    sql.NullString
		queuedRaw    string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&id,
		&jobURL,
		&variantCount,
		&platform,
		&campaignName,
		&statusStr,
		&retryCount,
		&lastError,
		&queuedRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		URL:          jobURL,
		VariantCount: variantCount,
		Platform:     platform,
		CampaignName: campaignName.String,
		Status:       Status(statusStr),
		RetryCount:   retryCount,
		LastError:    lastError.String,
	}
	if queued, err := parseTimeString(queuedRaw); err == nil {
		job.QueuedAt = queued
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
