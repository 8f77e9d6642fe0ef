package dlq

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/streampulse/job-service/internal/jobqueue"
)

// Notifier dispatches a freshly created alert to operators. The queue core
// only decides when to alert, never how the channel works.
type Notifier interface {
	Notify(ctx context.Context, alert *Alert) error
}

// LogNotifier writes alerts to the service log. It is the default channel
// and the fallback when no external channel is configured.
type LogNotifier struct {
	logger *zerolog.Logger
}

// NewLogNotifier returns a Notifier backed by the given logger.
func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, alert *Alert) error {
	n.logger.Error().
		Str("alert_id", alert.ID).
		Str("job_id", alert.JobID).
		Str("job_type", alert.JobType).
		Int("attempts", alert.Attempts).
		Str("error", alert.ErrorMessage).
		Msg("Job dead-lettered")
	return nil
}

// Manager detects jobs that entered the DLQ and emits exactly one alert
// per job. The alert store's atomic flip-and-insert is the exactly-once
// guard, so concurrent sweepers cannot double-alert and a crash mid-call
// cannot strand a job marked alerted without an alert row.
type Manager struct {
	jobs     jobqueue.Store
	alerts   AlertStore
	notifier Notifier
	logger   *zerolog.Logger
	now      func() time.Time
}

// NewManager wires a Manager over the job and alert stores.
func NewManager(jobs jobqueue.Store, alerts AlertStore, notifier Notifier, logger *zerolog.Logger) *Manager {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Manager{
		jobs:     jobs,
		alerts:   alerts,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides the manager clock. Test helper.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// ShouldGenerateAlert reports whether the job needs an alert: in the DLQ
// with no alert sent yet.
func (m *Manager) ShouldGenerateAlert(job *jobqueue.Job) bool {
	return job.Status == jobqueue.StatusDLQ && !job.DLQAlertSent
}

// GenerateAlert creates and dispatches the alert for a DLQ job. Returns
// nil (no error) when the job is ineligible or another caller already won
// the alert-sent flip.
func (m *Manager) GenerateAlert(ctx context.Context, job *jobqueue.Job) (*Alert, error) {
	if !m.ShouldGenerateAlert(job) {
		return nil, nil
	}

	errMsg := ""
	if job.Error != nil {
		errMsg = *job.Error
	}
	alert := &Alert{
		ID:           uuid.NewString(),
		JobID:        job.ID,
		JobType:      job.JobType,
		ErrorMessage: errMsg,
		Attempts:     job.Attempts,
		CreatedAt:    m.now().UTC(),
	}
	created, err := m.alerts.CreateAlertForJob(ctx, alert)
	if err != nil {
		// Nothing committed; the backstop sweep will retry this job.
		return nil, err
	}
	if !created {
		return nil, nil
	}
	dlqAlertsCreated.WithLabelValues(alert.JobType).Inc()

	if m.notifier != nil {
		if err := m.notifier.Notify(ctx, alert); err != nil {
			// The alert record exists; a failed dispatch is an operator
			// channel problem, not a reason to re-alert.
			m.logger.Error().Err(err).
				Str("alert_id", alert.ID).
				Str("job_id", alert.JobID).
				Msg("Failed to dispatch DLQ alert")
		}
	}
	return alert, nil
}

// Acknowledge marks an alert as handled by an operator. Acknowledged
// alerts are immutable; repeat calls return the existing record.
func (m *Manager) Acknowledge(ctx context.Context, alertID, by string) (*Alert, error) {
	alert, err := m.alerts.AcknowledgeAlert(ctx, alertID, by)
	if err != nil {
		return nil, err
	}
	m.logger.Info().
		Str("alert_id", alertID).
		Str("acknowledged_by", by).
		Msg("DLQ alert acknowledged")
	return alert, nil
}

// ProcessPendingAlerts sweeps DLQ jobs whose alert was never sent (for
// example after a crash between the DLQ transition and the inline alert)
// and generates one alert each.
func (m *Manager) ProcessPendingAlerts(ctx context.Context, limit int) ([]*Alert, error) {
	jobs, err := m.jobs.PendingAlertJobs(ctx, limit)
	if err != nil {
		return nil, err
	}
	alerts := make([]*Alert, 0, len(jobs))
	for _, job := range jobs {
		alert, err := m.GenerateAlert(ctx, job)
		if err != nil {
			m.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to generate DLQ alert")
			continue
		}
		if alert != nil {
			alerts = append(alerts, alert)
		}
	}
	return alerts, nil
}

// ListAlerts exposes the alert audit trail.
func (m *Manager) ListAlerts(ctx context.Context, onlyUnacknowledged bool, limit, offset int) ([]*Alert, int, error) {
	return m.alerts.ListAlerts(ctx, onlyUnacknowledged, limit, offset)
}

// GetAlert fetches one alert by id.
func (m *Manager) GetAlert(ctx context.Context, id string) (*Alert, error) {
	return m.alerts.GetAlert(ctx, id)
}
