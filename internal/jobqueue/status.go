package jobqueue

// Status represents the lifecycle state of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusDLQ        Status = "dlq"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed, StatusDLQ:
		return true
	default:
		return false
	}
}

// Terminal reports whether s is a resting state that only an explicit
// requeue can leave.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusDLQ
}

// CanTransition reports whether the state machine permits moving from s to
// the given status. Requeue (anything except processing back to queued) is
// handled here as well since it is a legal, operator-driven edge.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusQueued:
		return to == StatusProcessing || to == StatusQueued
	case StatusProcessing:
		// complete, fail-for-retry (back to queued), fail-to-dlq via failed
		return to == StatusCompleted || to == StatusQueued || to == StatusFailed || to == StatusDLQ
	case StatusFailed:
		return to == StatusDLQ || to == StatusQueued
	case StatusCompleted, StatusDLQ:
		return to == StatusQueued
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}
