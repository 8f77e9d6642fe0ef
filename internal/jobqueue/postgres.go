package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// jobColumns is the canonical column list, shared by every SELECT and
// RETURNING clause so scanJob stays in sync.
const jobColumns = `id, job_type, priority, workflow_id, parent_job_id, next_job_id,
	payload, scheduled_at, attempts, max_attempts, status,
	result, error, error_details,
	moved_to_dlq_at, dlq_reason, dlq_alert_sent, next_retry_at,
	worker_id, claimed_until, user_id, account_id,
	created_at, started_at, completed_at`

// PostgresStore implements Store on a pgx connection pool. Claims use a
// single conditional UPDATE with FOR UPDATE SKIP LOCKED so concurrent
// workers never receive the same job.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *Job) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO jobs (
			id, job_type, priority, workflow_id, parent_job_id, next_job_id,
			payload, scheduled_at, attempts, max_attempts, status,
			user_id, account_id, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, job.ID, job.JobType, job.Priority, job.WorkflowID, job.ParentJobID, job.NextJobID,
		job.Payload, job.ScheduledAt, job.Attempts, job.MaxAttempts, job.Status,
		job.UserID, job.AccountID, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

func (s *PostgresStore) ClaimNext(ctx context.Context, jobType, workerID string, leaseFor time.Duration) (*Job, error) {
	query := `
		UPDATE jobs SET
			status = 'processing',
			attempts = attempts + 1,
			started_at = NOW(),
			worker_id = $1,
			claimed_until = NOW() + $2
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = 'queued'
			  AND (scheduled_at IS NULL OR scheduled_at <= NOW())
			  AND (next_retry_at IS NULL OR next_retry_at <= NOW())`
	args := []interface{}{workerID, leaseFor}
	if jobType != "" {
		query += ` AND job_type = $3`
		args = append(args, jobType)
	}
	query += `
			ORDER BY priority DESC, created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	row := s.pool.QueryRow(ctx, query, args...)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim next: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) StartJob(ctx context.Context, id, workerID string, leaseFor time.Duration) (*Job, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE jobs SET
			status = 'processing',
			attempts = attempts + 1,
			started_at = NOW(),
			worker_id = $2,
			claimed_until = NOW() + $3
		WHERE id = $1
		  AND status = 'queued'
		  AND (scheduled_at IS NULL OR scheduled_at <= NOW())
		  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
		RETURNING `+jobColumns, id, workerID, leaseFor)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish "not claimable" from "no such job".
		if _, getErr := s.GetJob(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("start job %s: %w", id, err)
	}
	return job, nil
}

func (s *PostgresStore) MarkCompleted(ctx context.Context, id string, result json.RawMessage) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs SET
			status = 'completed',
			result = $2,
			completed_at = NOW(),
			worker_id = NULL,
			claimed_until = NULL
		WHERE id = $1 AND status = 'processing'
	`, id, result)
	if err != nil {
		return false, fmt.Errorf("complete job %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) MarkFailedForRetry(ctx context.Context, id, errMsg string, details json.RawMessage, nextRetryAt time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs SET
			status = 'queued',
			error = $2,
			error_details = $3,
			next_retry_at = $4,
			worker_id = NULL,
			claimed_until = NULL
		WHERE id = $1 AND status = 'processing'
	`, id, errMsg, details, nextRetryAt)
	if err != nil {
		return false, fmt.Errorf("fail job %s for retry: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) MarkFailedToDLQ(ctx context.Context, id, errMsg string, details json.RawMessage, reason string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs SET
			status = 'dlq',
			error = $2,
			error_details = $3,
			moved_to_dlq_at = NOW(),
			dlq_reason = $4,
			worker_id = NULL,
			claimed_until = NULL
		WHERE id = $1 AND status = 'processing'
	`, id, errMsg, details, reason)
	if err != nil {
		return false, fmt.Errorf("fail job %s to dlq: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) RequeueJob(ctx context.Context, id string, resetAttempts bool) (*Job, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE jobs SET
			status = 'queued',
			attempts = CASE WHEN $2 THEN 0 ELSE attempts END,
			error = NULL,
			error_details = NULL,
			started_at = NULL,
			completed_at = NULL,
			next_retry_at = NULL,
			worker_id = NULL,
			claimed_until = NULL
		WHERE id = $1 AND status <> 'processing'
		RETURNING `+jobColumns, id, resetAttempts)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := s.GetJob(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, nil // still processing, refuse silently
	}
	if err != nil {
		return nil, fmt.Errorf("requeue job %s: %w", id, err)
	}
	return job, nil
}

func (s *PostgresStore) ReleaseScheduled(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs SET scheduled_at = NULL
		WHERE id = $1 AND status = 'queued'
	`, id)
	if err != nil {
		return false, fmt.Errorf("release scheduled job %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) MarkAlertSent(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs SET dlq_alert_sent = TRUE
		WHERE id = $1 AND status = 'dlq' AND dlq_alert_sent = FALSE
	`, id)
	if err != nil {
		return false, fmt.Errorf("mark alert sent for job %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) PendingAlertJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE status = 'dlq' AND dlq_alert_sent = FALSE
		ORDER BY moved_to_dlq_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending alert jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (s *PostgresStore) ExpiredLeases(ctx context.Context, now time.Time, limit int) ([]*Job, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE status = 'processing' AND claimed_until IS NOT NULL AND claimed_until < $1
		ORDER BY claimed_until ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("query expired leases: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter ListFilter) ([]*Job, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if filter.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.JobType != "" {
		where += fmt.Sprintf(" AND job_type = $%d", argIdx)
		args = append(args, filter.JobType)
		argIdx++
	}
	if filter.UserID != "" {
		where += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}
	if filter.AccountID != "" {
		where += fmt.Sprintf(" AND account_id = $%d", argIdx)
		args = append(args, filter.AccountID)
		argIdx++
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM jobs"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 {
		size = 20
	}
	query := "SELECT " + jobColumns + " FROM jobs" + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, size, (page-1)*size)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

func (s *PostgresStore) ListDLQ(ctx context.Context, jobType string, limit, offset int) ([]*Job, int, error) {
	where := " WHERE status = 'dlq'"
	args := []interface{}{}
	argIdx := 1

	if jobType != "" {
		where += fmt.Sprintf(" AND job_type = $%d", argIdx)
		args = append(args, jobType)
		argIdx++
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM jobs"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count dlq jobs: %w", err)
	}

	if limit < 1 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := "SELECT " + jobColumns + " FROM jobs" + where +
		fmt.Sprintf(" ORDER BY moved_to_dlq_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list dlq jobs: %w", err)
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*QueueStats, error) {
	stats := &QueueStats{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'queued'),
			COUNT(*) FILTER (WHERE status = 'queued' AND next_retry_at > NOW()),
			COUNT(*) FILTER (WHERE status = 'processing'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*) FILTER (WHERE status = 'dlq'),
			COUNT(*)
		FROM jobs
	`).Scan(&stats.QueuedDepth, &stats.RetryPending, &stats.Processing,
		&stats.Completed, &stats.Failed, &stats.DLQCount, &stats.Total)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	return stats, nil
}

func scanJob(row pgx.Row) (*Job, error) {
	var job Job
	err := row.Scan(
		&job.ID, &job.JobType, &job.Priority, &job.WorkflowID, &job.ParentJobID, &job.NextJobID,
		&job.Payload, &job.ScheduledAt, &job.Attempts, &job.MaxAttempts, &job.Status,
		&job.Result, &job.Error, &job.ErrorDetails,
		&job.MovedToDLQAt, &job.DLQReason, &job.DLQAlertSent, &job.NextRetryAt,
		&job.WorkerID, &job.ClaimedUntil, &job.UserID, &job.AccountID,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func scanJobs(rows pgx.Rows) ([]*Job, error) {
	jobs := make([]*Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", err)
	}
	return jobs, nil
}
