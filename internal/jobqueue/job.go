package jobqueue

import (
	"encoding/json"
	"time"
)

// Job is the unit of asynchronous work. Every background subsystem (upload
// processing, webhook delivery, stream reconnection, the sync pipelines)
// enqueues its work as a Job and reports the outcome back through the queue.
type Job struct {
	ID       string `json:"id" db:"id"`
	JobType  string `json:"job_type" db:"job_type" jsonschema:"required"`
	Priority int    `json:"priority" db:"priority"`

	// Chaining: jobs can form a workflow where completion of one releases
	// the next.
	WorkflowID  *string `json:"workflow_id,omitempty" db:"workflow_id"`
	ParentJobID *string `json:"parent_job_id,omitempty" db:"parent_job_id"`
	NextJobID   *string `json:"next_job_id,omitempty" db:"next_job_id"`

	Payload     json.RawMessage `json:"payload" db:"payload"`
	ScheduledAt *time.Time      `json:"scheduled_at,omitempty" db:"scheduled_at"`

	Attempts    int    `json:"attempts" db:"attempts"`
	MaxAttempts int    `json:"max_attempts" db:"max_attempts"`
	Status      Status `json:"status" db:"status"`

	Result       json.RawMessage `json:"result,omitempty" db:"result"`
	Error        *string         `json:"error,omitempty" db:"error"`
	ErrorDetails json.RawMessage `json:"error_details,omitempty" db:"error_details"`

	MovedToDLQAt *time.Time `json:"moved_to_dlq_at,omitempty" db:"moved_to_dlq_at"`
	DLQReason    *string    `json:"dlq_reason,omitempty" db:"dlq_reason"`
	DLQAlertSent bool       `json:"dlq_alert_sent" db:"dlq_alert_sent"`

	NextRetryAt *time.Time `json:"next_retry_at,omitempty" db:"next_retry_at"`

	// Lease held by the worker that claimed the job. A job whose lease has
	// expired while still processing is reclaimed by the lease sweeper.
	WorkerID     *string    `json:"worker_id,omitempty" db:"worker_id"`
	ClaimedUntil *time.Time `json:"claimed_until,omitempty" db:"claimed_until"`

	UserID    *string `json:"user_id,omitempty" db:"user_id"`
	AccountID *string `json:"account_id,omitempty" db:"account_id"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// Clone returns a deep copy of the job. Stores hand out clones so callers
// never share mutable state with the store's own records.
func (j *Job) Clone() *Job {
	c := *j
	c.WorkflowID = cloneStr(j.WorkflowID)
	c.ParentJobID = cloneStr(j.ParentJobID)
	c.NextJobID = cloneStr(j.NextJobID)
	c.Error = cloneStr(j.Error)
	c.DLQReason = cloneStr(j.DLQReason)
	c.WorkerID = cloneStr(j.WorkerID)
	c.UserID = cloneStr(j.UserID)
	c.AccountID = cloneStr(j.AccountID)
	c.ScheduledAt = cloneTime(j.ScheduledAt)
	c.MovedToDLQAt = cloneTime(j.MovedToDLQAt)
	c.NextRetryAt = cloneTime(j.NextRetryAt)
	c.ClaimedUntil = cloneTime(j.ClaimedUntil)
	c.StartedAt = cloneTime(j.StartedAt)
	c.CompletedAt = cloneTime(j.CompletedAt)
	if j.Payload != nil {
		c.Payload = append(json.RawMessage(nil), j.Payload...)
	}
	if j.Result != nil {
		c.Result = append(json.RawMessage(nil), j.Result...)
	}
	if j.ErrorDetails != nil {
		c.ErrorDetails = append(json.RawMessage(nil), j.ErrorDetails...)
	}
	return &c
}

// ClaimableAt reports whether the job is eligible to be claimed at the
// given instant: queued, past its scheduled_at gate and past any pending
// retry delay.
func (j *Job) ClaimableAt(now time.Time) bool {
	if j.Status != StatusQueued {
		return false
	}
	if j.ScheduledAt != nil && j.ScheduledAt.After(now) {
		return false
	}
	if j.NextRetryAt != nil && j.NextRetryAt.After(now) {
		return false
	}
	return true
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
