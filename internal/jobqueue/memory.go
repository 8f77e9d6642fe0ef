package jobqueue

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and the dev mode of the
// binaries. It is an explicit, injectable instance so tests can reset state
// deterministically instead of sharing process-wide globals.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	seq  map[string]int64
	next int64
	now  func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*Job),
		seq:  make(map[string]int64),
		now:  time.Now,
	}
}

// SetClock overrides the store's clock. Test helper.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Reset drops all jobs.
func (m *MemoryStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = make(map[string]*Job)
	m.seq = make(map[string]int64)
	m.next = 0
}

func (m *MemoryStore) CreateJob(ctx context.Context, job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.seq[job.ID] = m.next
	m.jobs[job.ID] = job.Clone()
	return nil
}

func (m *MemoryStore) GetJob(ctx context.Context, id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return job.Clone(), nil
}

func (m *MemoryStore) ClaimNext(ctx context.Context, jobType, workerID string, leaseFor time.Duration) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var best *Job
	for _, job := range m.jobs {
		if !job.ClaimableAt(now) {
			continue
		}
		if jobType != "" && job.JobType != jobType {
			continue
		}
		if best == nil || m.orderedBefore(job, best) {
			best = job
		}
	}
	if best == nil {
		return nil, nil
	}
	m.claimLocked(best, workerID, leaseFor, now)
	return best.Clone(), nil
}

func (m *MemoryStore) StartJob(ctx context.Context, id, workerID string, leaseFor time.Duration) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := m.now()
	if !job.ClaimableAt(now) {
		return nil, nil
	}
	m.claimLocked(job, workerID, leaseFor, now)
	return job.Clone(), nil
}

// orderedBefore implements priority DESC, created_at ASC with insertion
// order as the final tiebreak so FIFO holds even for equal timestamps.
func (m *MemoryStore) orderedBefore(a, b *Job) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return m.seq[a.ID] < m.seq[b.ID]
}

func (m *MemoryStore) claimLocked(job *Job, workerID string, leaseFor time.Duration, now time.Time) {
	until := now.Add(leaseFor)
	job.Status = StatusProcessing
	job.Attempts++
	job.StartedAt = &now
	job.WorkerID = &workerID
	job.ClaimedUntil = &until
}

func (m *MemoryStore) MarkCompleted(ctx context.Context, id string, result json.RawMessage) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status != StatusProcessing {
		return false, nil
	}
	now := m.now()
	job.Status = StatusCompleted
	job.Result = result
	job.CompletedAt = &now
	job.WorkerID = nil
	job.ClaimedUntil = nil
	return true, nil
}

func (m *MemoryStore) MarkFailedForRetry(ctx context.Context, id, errMsg string, details json.RawMessage, nextRetryAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status != StatusProcessing {
		return false, nil
	}
	job.Status = StatusQueued
	job.Error = &errMsg
	job.ErrorDetails = details
	job.NextRetryAt = &nextRetryAt
	job.WorkerID = nil
	job.ClaimedUntil = nil
	return true, nil
}

func (m *MemoryStore) MarkFailedToDLQ(ctx context.Context, id, errMsg string, details json.RawMessage, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status != StatusProcessing {
		return false, nil
	}
	now := m.now()
	job.Status = StatusDLQ
	job.Error = &errMsg
	job.ErrorDetails = details
	job.MovedToDLQAt = &now
	job.DLQReason = &reason
	job.WorkerID = nil
	job.ClaimedUntil = nil
	return true, nil
}

func (m *MemoryStore) RequeueJob(ctx context.Context, id string, resetAttempts bool) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if job.Status == StatusProcessing {
		return nil, nil
	}
	job.Status = StatusQueued
	if resetAttempts {
		job.Attempts = 0
	}
	job.Error = nil
	job.ErrorDetails = nil
	job.StartedAt = nil
	job.CompletedAt = nil
	job.NextRetryAt = nil
	job.WorkerID = nil
	job.ClaimedUntil = nil
	return job.Clone(), nil
}

func (m *MemoryStore) ReleaseScheduled(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status != StatusQueued {
		return false, nil
	}
	job.ScheduledAt = nil
	return true, nil
}

func (m *MemoryStore) MarkAlertSent(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status != StatusDLQ || job.DLQAlertSent {
		return false, nil
	}
	job.DLQAlertSent = true
	return true, nil
}

func (m *MemoryStore) PendingAlertJobs(ctx context.Context, limit int) ([]*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Job
	for _, job := range m.jobs {
		if job.Status == StatusDLQ && !job.DLQAlertSent {
			out = append(out, job.Clone())
		}
	}
	m.sortByCreated(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) ExpiredLeases(ctx context.Context, now time.Time, limit int) ([]*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Job
	for _, job := range m.jobs {
		if job.Status == StatusProcessing && job.ClaimedUntil != nil && job.ClaimedUntil.Before(now) {
			out = append(out, job.Clone())
		}
	}
	m.sortByCreated(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) ListJobs(ctx context.Context, filter ListFilter) ([]*Job, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*Job
	for _, job := range m.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.JobType != "" && job.JobType != filter.JobType {
			continue
		}
		if filter.UserID != "" && (job.UserID == nil || *job.UserID != filter.UserID) {
			continue
		}
		if filter.AccountID != "" && (job.AccountID == nil || *job.AccountID != filter.AccountID) {
			continue
		}
		matched = append(matched, job)
	}
	sort.Slice(matched, func(i, k int) bool {
		if !matched[i].CreatedAt.Equal(matched[k].CreatedAt) {
			return matched[i].CreatedAt.After(matched[k].CreatedAt)
		}
		return m.seq[matched[i].ID] > m.seq[matched[k].ID]
	})

	total := len(matched)
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 {
		size = 20
	}
	start := (page - 1) * size
	if start >= total {
		return []*Job{}, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	out := make([]*Job, 0, end-start)
	for _, job := range matched[start:end] {
		out = append(out, job.Clone())
	}
	return out, total, nil
}

func (m *MemoryStore) ListDLQ(ctx context.Context, jobType string, limit, offset int) ([]*Job, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*Job
	for _, job := range m.jobs {
		if job.Status != StatusDLQ {
			continue
		}
		if jobType != "" && job.JobType != jobType {
			continue
		}
		matched = append(matched, job)
	}
	sort.Slice(matched, func(i, k int) bool {
		a, b := matched[i].MovedToDLQAt, matched[k].MovedToDLQAt
		if a != nil && b != nil && !a.Equal(*b) {
			return a.After(*b)
		}
		return m.seq[matched[i].ID] > m.seq[matched[k].ID]
	})

	total := len(matched)
	if limit < 1 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []*Job{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]*Job, 0, end-offset)
	for _, job := range matched[offset:end] {
		out = append(out, job.Clone())
	}
	return out, total, nil
}

func (m *MemoryStore) Stats(ctx context.Context) (*QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	stats := &QueueStats{Total: len(m.jobs)}
	for _, job := range m.jobs {
		switch job.Status {
		case StatusQueued:
			stats.QueuedDepth++
			if job.NextRetryAt != nil && job.NextRetryAt.After(now) {
				stats.RetryPending++
			}
		case StatusProcessing:
			stats.Processing++
		case StatusCompleted:
			stats.Completed++
		case StatusFailed:
			stats.Failed++
		case StatusDLQ:
			stats.DLQCount++
		}
	}
	return stats, nil
}

func (m *MemoryStore) sortByCreated(jobs []*Job) {
	sort.Slice(jobs, func(i, k int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[k].CreatedAt) {
			return jobs[i].CreatedAt.Before(jobs[k].CreatedAt)
		}
		return m.seq[jobs[i].ID] < m.seq[jobs[k].ID]
	})
}
