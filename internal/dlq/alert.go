// Package dlq implements dead-letter alerting: one alert per job that
// exhausts its retry budget, with acknowledgment tracking for operators.
package dlq

import "time"

// Alert is the operator-facing record of a job entering the DLQ. Alerts
// are created exactly once per job, mutated only by acknowledgment, and
// never deleted (they are the audit trail).
type Alert struct {
	ID             string     `json:"id"`
	JobID          string     `json:"job_id"`
	JobType        string     `json:"job_type"`
	ErrorMessage   string     `json:"error_message"`
	Attempts       int        `json:"attempts"`
	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedBy *string    `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Clone returns a copy safe for callers to hold.
func (a *Alert) Clone() *Alert {
	c := *a
	if a.AcknowledgedBy != nil {
		v := *a.AcknowledgedBy
		c.AcknowledgedBy = &v
	}
	if a.AcknowledgedAt != nil {
		v := *a.AcknowledgedAt
		c.AcknowledgedAt = &v
	}
	return &c
}
