package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is the jobs and dlq_alerts DDL. Idempotent, applied at startup.
// The (status, priority), (status, created_at) and (status, dlq_alert_sent)
// indexes keep claim and sweep queries off sequential scans.
const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id UUID PRIMARY KEY,
	job_type TEXT NOT NULL,
	priority INT NOT NULL DEFAULT 0,
	workflow_id UUID,
	parent_job_id UUID,
	next_job_id UUID,
	payload JSONB NOT NULL DEFAULT '{}'::jsonb,
	scheduled_at TIMESTAMPTZ,
	attempts INT NOT NULL DEFAULT 0,
	max_attempts INT NOT NULL DEFAULT 3,
	status TEXT NOT NULL DEFAULT 'queued',
	result JSONB,
	error TEXT,
	error_details JSONB,
	moved_to_dlq_at TIMESTAMPTZ,
	dlq_reason TEXT,
	dlq_alert_sent BOOLEAN NOT NULL DEFAULT FALSE,
	next_retry_at TIMESTAMPTZ,
	worker_id TEXT,
	claimed_until TIMESTAMPTZ,
	user_id TEXT,
	account_id TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_jobs_status_priority ON jobs (status, priority DESC, created_at ASC);
CREATE INDEX IF NOT EXISTS idx_jobs_status_created ON jobs (status, created_at);
CREATE INDEX IF NOT EXISTS idx_jobs_status_alert ON jobs (status, dlq_alert_sent);
CREATE INDEX IF NOT EXISTS idx_jobs_status_lease ON jobs (status, claimed_until);
CREATE INDEX IF NOT EXISTS idx_jobs_job_type ON jobs (job_type);

CREATE TABLE IF NOT EXISTS dlq_alerts (
	id UUID PRIMARY KEY,
	job_id UUID NOT NULL REFERENCES jobs(id),
	job_type TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	attempts INT NOT NULL DEFAULT 0,
	acknowledged BOOLEAN NOT NULL DEFAULT FALSE,
	acknowledged_by TEXT,
	acknowledged_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_dlq_alerts_job ON dlq_alerts (job_id);
CREATE INDEX IF NOT EXISTS idx_dlq_alerts_ack ON dlq_alerts (acknowledged, created_at);
`

// Migrate applies the schema to the given pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
