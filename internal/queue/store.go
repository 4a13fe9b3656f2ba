package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"cardscan/internal/config"
)

// Store manages scan job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the job database.
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

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying connection for stores sharing the database
// file (inventory).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// NewJob describes a submission to enqueue.
type NewJob struct {
	FilePath     string
	OriginalName string
	Condition    string
	Foil         bool
	SetCodeHint  string
}

// Enqueue inserts a queued job for a submitted scan.
func (s *Store) Enqueue(ctx context.Context, req NewJob) (*Job, error) {
	if strings.TrimSpace(req.FilePath) == "" {
		return nil, errors.New("file path is required")
	}
	condition := strings.TrimSpace(req.Condition)
	if condition == "" {
		condition = "NM"
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO scan_jobs (
            status, file_path, original_name, condition, foil, set_code_hint,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		StatusQueued,
		req.FilePath,
		nullableString(req.OriginalName),
		condition,
		boolToInt(req.Foil),
		nullableString(strings.ToLower(strings.TrimSpace(req.SetCodeHint))),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM scan_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Claim atomically leases the oldest eligible job: either queued, or
// processing with a lock older than lockTimeout. The claimed job is
// stamped with a fresh lock time and its attempt counter incremented.
// This single conditional update is the entire crash-recovery
// mechanism; a worker that dies mid-job leaves a stale lock that
// another worker reclaims once the timeout elapses.
//
// Returns nil when no job is eligible.
func (s *Store) Claim(ctx context.Context, lockTimeout time.Duration) (*Job, error) {
	now := time.Now().UTC()
	lockExpired := now.Add(-lockTimeout).Format(time.RFC3339Nano)
	stamp := now.Format(time.RFC3339Nano)

	row := s.db.QueryRowContext(
		ctx,
		`UPDATE scan_jobs
         SET status = ?, locked_at = ?, attempts = attempts + 1, updated_at = ?
         WHERE id = (
             SELECT id FROM scan_jobs
             WHERE status = ?
                OR (status = ? AND locked_at IS NOT NULL AND locked_at < ?)
             ORDER BY created_at
             LIMIT 1
         )
         RETURNING id`,
		StatusProcessing, stamp, stamp,
		StatusQueued,
		StatusProcessing, lockExpired,
	)

	var id int64
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Update persists changes to an existing job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE scan_jobs
         SET status = ?, file_path = ?, original_name = ?, condition = ?, foil = ?,
             set_code_hint = ?, attempts = ?, locked_at = ?, last_error = ?,
             guessed_name = ?, name_confidence = ?, collector_number = ?,
             chosen_set = ?, chosen_set_name = ?, chosen_collector = ?,
             ocr_text_bottom = ?, finished_at = ?, updated_at = ?
         WHERE id = ?`,
		job.Status,
		job.FilePath,
		nullableString(job.OriginalName),
		job.Condition,
		boolToInt(job.Foil),
		nullableString(job.SetCodeHint),
		job.Attempts,
		nullableTime(job.LockedAt),
		nullableString(job.LastError),
		nullableString(job.GuessedName),
		job.NameConfidence,
		nullableString(job.CollectorNumber),
		nullableString(job.ChosenSet),
		nullableString(job.ChosenSetName),
		nullableString(job.ChosenCollector),
		nullableString(job.OCRTextBottom),
		nullableTime(job.FinishedAt),
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// List returns recent jobs, newest first, optionally filtered by
// status. At most limit rows are returned; limit <= 0 defaults to 200.
func (s *Store) List(ctx context.Context, limit int, statuses ...Status) ([]*Job, error) {
	if limit <= 0 {
		limit = 200
	}

	var (
		rows *sql.Rows
		err  error
	)
	baseQuery := `SELECT ` + jobColumns + ` FROM scan_jobs`
	orderClause := ` ORDER BY created_at DESC LIMIT ?`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause, limit)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, 0, len(statuses)+1)
		for _, status := range statuses {
			args = append(args, status)
		}
		args = append(args, limit)
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
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

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM scan_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
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

// RetryFailed moves failed jobs back to queued for reprocessing. With
// no ids, every failed job is retried. Attempt counters reset so the
// retried job gets a full allowance.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	stamp := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE scan_jobs
             SET status = ?, attempts = 0, last_error = NULL, locked_at = NULL,
                 finished_at = NULL, updated_at = ?
             WHERE status = ?`,
			StatusQueued, stamp, StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed jobs: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StatusQueued, stamp)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE scan_jobs
        SET status = ?, attempts = 0, last_error = NULL, locked_at = NULL,
            finished_at = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected jobs: %w", err)
	}
	return res.RowsAffected()
}

// ClearDone removes only completed jobs.
func (s *Store) ClearDone(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scan_jobs WHERE status = ?`, StatusDone)
	if err != nil {
		return 0, fmt.Errorf("clear done: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all jobs.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scan_jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

const jobColumns = "id, status, file_path, original_name, condition, foil, set_code_hint, attempts, locked_at, last_error, guessed_name, name_confidence, collector_number, chosen_set, chosen_set_name, chosen_collector, ocr_text_bottom, finished_at, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           int64
		statusStr    string
		filePath     string
		originalName sql.NullString
		condition    sql.NullString
		foil         sql.NullInt64
		setCodeHint  sql.NullString
		attempts     sql.NullInt64
		lockedRaw    sql.NullString
		lastError    sql.NullString
		guessedName  sql.NullString
		nameConf     sql.NullFloat64
		collector    sql.NullString
		chosenSet    sql.NullString
		chosenName   sql.NullString
		chosenColl   sql.NullString
		ocrBottom    sql.NullString
		finishedRaw  sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id, &statusStr, &filePath, &originalName, &condition, &foil,
		&setCodeHint, &attempts, &lockedRaw, &lastError, &guessedName,
		&nameConf, &collector, &chosenSet, &chosenName, &chosenColl,
		&ocrBottom, &finishedRaw, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		Status:          Status(statusStr),
		FilePath:        filePath,
		OriginalName:    originalName.String,
		Condition:       condition.String,
		Foil:            foil.Int64 != 0,
		SetCodeHint:     setCodeHint.String,
		Attempts:        int(attempts.Int64),
		LastError:       lastError.String,
		GuessedName:     guessedName.String,
		NameConfidence:  nameConf.Float64,
		CollectorNumber: collector.String,
		ChosenSet:       chosenSet.String,
		ChosenSetName:   chosenName.String,
		ChosenCollector: chosenColl.String,
		OCRTextBottom:   ocrBottom.String,
	}

	if lockedRaw.Valid {
		if locked, err := parseTimeString(lockedRaw.String); err == nil {
			job.LockedAt = &locked
		}
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			job.FinishedAt = &finished
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
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

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
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
