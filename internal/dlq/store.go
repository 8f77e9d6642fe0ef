package dlq

import (
	"context"
	"errors"
)

// ErrAlertNotFound is returned for lookups of an unknown alert id.
var ErrAlertNotFound = errors.New("alert not found")

// AlertStore persists DLQ alerts.
type AlertStore interface {
	// CreateAlertForJob records the alert and flips the job's
	// dlq_alert_sent flag as one atomic unit, so a partial failure can
	// never leave a dead-lettered job marked alerted with no alert
	// row. Returns false when another caller already won the flip.
	CreateAlertForJob(ctx context.Context, alert *Alert) (bool, error)

	GetAlert(ctx context.Context, id string) (*Alert, error)

	// AcknowledgeAlert marks an alert acknowledged. Already-acknowledged
	// alerts are immutable: the call returns the existing record
	// unchanged.
	AcknowledgeAlert(ctx context.Context, id, by string) (*Alert, error)

	ListAlerts(ctx context.Context, onlyUnacknowledged bool, limit, offset int) ([]*Alert, int, error)
}
