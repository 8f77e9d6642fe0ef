package dlq

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/streampulse/job-service/internal/jobqueue"
)

// MemoryAlertStore is the in-process AlertStore for tests and dev mode.
// It holds the job store so the alert-sent flip and the alert insert
// happen in one call, mirroring the Postgres store's single statement.
type MemoryAlertStore struct {
	mu     sync.Mutex
	jobs   jobqueue.Store
	alerts map[string]*Alert
	order  []string
	now    func() time.Time
}

// NewMemoryAlertStore returns an empty in-memory alert store over the
// given job store.
func NewMemoryAlertStore(jobs jobqueue.Store) *MemoryAlertStore {
	return &MemoryAlertStore{
		jobs:   jobs,
		alerts: make(map[string]*Alert),
		now:    time.Now,
	}
}

// SetClock overrides the store's clock. Test helper.
func (m *MemoryAlertStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryAlertStore) CreateAlertForJob(ctx context.Context, alert *Alert) (bool, error) {
	flipped, err := m.jobs.MarkAlertSent(ctx, alert.JobID)
	if err != nil || !flipped {
		return false, err
	}
	// The insert after a won flip has no failure path in-process, so
	// the pair is atomic the same way the Postgres statement is.
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[alert.ID] = alert.Clone()
	m.order = append(m.order, alert.ID)
	return true, nil
}

func (m *MemoryAlertStore) GetAlert(ctx context.Context, id string) (*Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alert, ok := m.alerts[id]
	if !ok {
		return nil, ErrAlertNotFound
	}
	return alert.Clone(), nil
}

func (m *MemoryAlertStore) AcknowledgeAlert(ctx context.Context, id, by string) (*Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alert, ok := m.alerts[id]
	if !ok {
		return nil, ErrAlertNotFound
	}
	if !alert.Acknowledged {
		now := m.now()
		alert.Acknowledged = true
		alert.AcknowledgedBy = &by
		alert.AcknowledgedAt = &now
	}
	return alert.Clone(), nil
}

func (m *MemoryAlertStore) ListAlerts(ctx context.Context, onlyUnacknowledged bool, limit, offset int) ([]*Alert, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*Alert
	for _, id := range m.order {
		alert := m.alerts[id]
		if onlyUnacknowledged && alert.Acknowledged {
			continue
		}
		matched = append(matched, alert)
	}
	sort.SliceStable(matched, func(i, k int) bool {
		return matched[i].CreatedAt.After(matched[k].CreatedAt)
	})

	total := len(matched)
	if limit < 1 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []*Alert{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]*Alert, 0, end-offset)
	for _, alert := range matched[offset:end] {
		out = append(out, alert.Clone())
	}
	return out, total, nil
}
