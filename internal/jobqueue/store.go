package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned by store lookups for an unknown job id.
var ErrNotFound = errors.New("job not found")

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	Status    Status
	JobType   string
	UserID    string
	AccountID string
	Page      int
	PageSize  int
}

// QueueStats are aggregate counts for observability.
type QueueStats struct {
	QueuedDepth  int `json:"queued_depth"`
	RetryPending int `json:"retry_pending"`
	Processing   int `json:"processing"`
	Completed    int `json:"completed"`
	Failed       int `json:"failed"`
	DLQCount     int `json:"dlq_count"`
	Total        int `json:"total"`
}

// Store is the durable job table. All state transitions are guarded
// single-statement updates; the boolean results report whether the guard
// matched, so duplicate worker reports degrade to safe no-ops.
type Store interface {
	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)

	// ClaimNext atomically selects the highest-priority claimable job
	// (priority DESC, created_at ASC) and moves it to processing,
	// incrementing attempts and setting started_at plus the worker lease.
	// jobType filters to a single type when non-empty. Returns (nil, nil)
	// when no job is eligible.
	ClaimNext(ctx context.Context, jobType, workerID string, leaseFor time.Duration) (*Job, error)

	// StartJob claims one specific queued job, for callers that separate
	// fetch and start.
	StartJob(ctx context.Context, id, workerID string, leaseFor time.Duration) (*Job, error)

	// MarkCompleted transitions processing -> completed.
	MarkCompleted(ctx context.Context, id string, result json.RawMessage) (bool, error)

	// MarkFailedForRetry records the failure and returns the job to the
	// queue with a retry gate.
	MarkFailedForRetry(ctx context.Context, id, errMsg string, details json.RawMessage, nextRetryAt time.Time) (bool, error)

	// MarkFailedToDLQ records the failure and moves the job to the DLQ.
	MarkFailedToDLQ(ctx context.Context, id, errMsg string, details json.RawMessage, reason string) (bool, error)

	// RequeueJob forces any non-processing job back to queued, clearing
	// error, lease and retry bookkeeping. resetAttempts zeroes the attempt
	// counter. Returns the updated job, or ErrNotFound.
	RequeueJob(ctx context.Context, id string, resetAttempts bool) (*Job, error)

	// ReleaseScheduled clears the scheduled_at gate of a queued job, used
	// to promote the next job in a chain.
	ReleaseScheduled(ctx context.Context, id string) (bool, error)

	// MarkAlertSent flips dlq_alert_sent false -> true for a DLQ job.
	// The conditional update is the duplicate-alert guard.
	MarkAlertSent(ctx context.Context, id string) (bool, error)

	// PendingAlertJobs lists DLQ jobs whose alert has not been sent.
	PendingAlertJobs(ctx context.Context, limit int) ([]*Job, error)

	// ExpiredLeases lists processing jobs whose lease has lapsed.
	ExpiredLeases(ctx context.Context, now time.Time, limit int) ([]*Job, error)

	ListJobs(ctx context.Context, filter ListFilter) ([]*Job, int, error)
	ListDLQ(ctx context.Context, jobType string, limit, offset int) ([]*Job, int, error)
	Stats(ctx context.Context) (*QueueStats, error)
}
