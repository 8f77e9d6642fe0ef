package dlq

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const alertColumns = `id, job_id, job_type, error_message, attempts,
	acknowledged, acknowledged_by, acknowledged_at, created_at`

// PostgresAlertStore implements AlertStore on a pgx pool.
type PostgresAlertStore struct {
	pool *pgxpool.Pool
}

// NewPostgresAlertStore wraps an existing pool.
func NewPostgresAlertStore(pool *pgxpool.Pool) *PostgresAlertStore {
	return &PostgresAlertStore{pool: pool}
}

// CreateAlertForJob flips jobs.dlq_alert_sent and inserts the alert in a
// single statement. Both writes commit together or not at all; the insert
// count doubles as the flip-won signal.
func (s *PostgresAlertStore) CreateAlertForJob(ctx context.Context, alert *Alert) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		WITH flip AS (
			UPDATE jobs SET dlq_alert_sent = TRUE
			WHERE id = $2 AND status = 'dlq' AND dlq_alert_sent = FALSE
			RETURNING id
		)
		INSERT INTO dlq_alerts (id, job_id, job_type, error_message, attempts, created_at)
		SELECT $1, flip.id, $3, $4, $5, $6 FROM flip
	`, alert.ID, alert.JobID, alert.JobType, alert.ErrorMessage, alert.Attempts, alert.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("create dlq alert for job %s: %w", alert.JobID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresAlertStore) GetAlert(ctx context.Context, id string) (*Alert, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+alertColumns+` FROM dlq_alerts WHERE id = $1`, id)
	alert, err := scanAlert(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dlq alert %s: %w", id, err)
	}
	return alert, nil
}

func (s *PostgresAlertStore) AcknowledgeAlert(ctx context.Context, id, by string) (*Alert, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE dlq_alerts SET
			acknowledged = TRUE,
			acknowledged_by = $2,
			acknowledged_at = NOW()
		WHERE id = $1 AND acknowledged = FALSE
		RETURNING `+alertColumns, id, by)
	alert, err := scanAlert(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either unknown or already acknowledged; the latter returns the
		// immutable record.
		return s.GetAlert(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("acknowledge dlq alert %s: %w", id, err)
	}
	return alert, nil
}

func (s *PostgresAlertStore) ListAlerts(ctx context.Context, onlyUnacknowledged bool, limit, offset int) ([]*Alert, int, error) {
	where := " WHERE 1=1"
	if onlyUnacknowledged {
		where = " WHERE acknowledged = FALSE"
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM dlq_alerts"+where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count dlq alerts: %w", err)
	}

	if limit < 1 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+alertColumns+" FROM dlq_alerts"+where+" ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list dlq alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]*Alert, 0)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan dlq alert row: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate dlq alert rows: %w", err)
	}
	return alerts, total, nil
}

func scanAlert(row pgx.Row) (*Alert, error) {
	var a Alert
	err := row.Scan(&a.ID, &a.JobID, &a.JobType, &a.ErrorMessage, &a.Attempts,
		&a.Acknowledged, &a.AcknowledgedBy, &a.AcknowledgedAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
