package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultLease is how long a worker owns a claimed job before the lease
// sweeper may reclaim it.
const DefaultLease = 10 * time.Minute

// Service orchestrates the job lifecycle: enqueue, claim, complete,
// fail-with-retry-or-DLQ, and operator requeue. All state lives in the
// injected Store; the Service owns the transition decisions.
type Service struct {
	store    Store
	policies *PolicySet
	lease    time.Duration
	logger   *zerolog.Logger
	now      func() time.Time

	// onDLQ is the inline alert-on-transition hook, invoked after a job
	// lands in the DLQ. The alert sweeper backstops it on crash.
	onDLQ func(ctx context.Context, job *Job)
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLease overrides the claim lease duration.
func WithLease(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.lease = d
		}
	}
}

// WithClock overrides the service clock. Test helper.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithDLQHook installs the inline DLQ alert callback.
func WithDLQHook(hook func(ctx context.Context, job *Job)) ServiceOption {
	return func(s *Service) { s.onDLQ = hook }
}

// NewService wires a Service over a store and retry policy set.
func NewService(store Store, policies *PolicySet, logger *zerolog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &Service{
		store:    store,
		policies: policies,
		lease:    DefaultLease,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnqueueInput carries the producer-supplied job fields.
type EnqueueInput struct {
	JobType     string
	Payload     json.RawMessage
	Priority    int
	MaxAttempts int
	ScheduledAt *time.Time
	WorkflowID  *string
	ParentJobID *string
	NextJobID   *string
	UserID      *string
	AccountID   *string
}

// Enqueue creates a queued job. MaxAttempts defaults to the job type's
// retry policy ceiling when unset.
func (s *Service) Enqueue(ctx context.Context, in EnqueueInput) (*Job, error) {
	if in.JobType == "" {
		return nil, fmt.Errorf("enqueue: job_type is required")
	}
	maxAttempts := in.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = s.policies.For(in.JobType).MaxAttempts()
	}
	payload := in.Payload
	if payload == nil {
		payload = json.RawMessage(`{}`)
	}

	job := &Job{
		ID:          uuid.NewString(),
		JobType:     in.JobType,
		Priority:    in.Priority,
		WorkflowID:  in.WorkflowID,
		ParentJobID: in.ParentJobID,
		NextJobID:   in.NextJobID,
		Payload:     payload,
		ScheduledAt: in.ScheduledAt,
		MaxAttempts: maxAttempts,
		Status:      StatusQueued,
		UserID:      in.UserID,
		AccountID:   in.AccountID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	jobsEnqueued.WithLabelValues(job.JobType).Inc()
	s.logger.Info().
		Str("job_id", job.ID).
		Str("job_type", job.JobType).
		Int("priority", job.Priority).
		Msg("Job enqueued")
	return job, nil
}

// ClaimNext hands the highest-priority due job to a worker, or nil when
// the queue is empty. The claim is exclusive: the store performs it as one
// atomic conditional update.
func (s *Service) ClaimNext(ctx context.Context, jobType, workerID string) (*Job, error) {
	job, err := s.store.ClaimNext(ctx, jobType, workerID, s.lease)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}
	jobsClaimed.WithLabelValues(job.JobType).Inc()
	s.logger.Debug().
		Str("job_id", job.ID).
		Str("job_type", job.JobType).
		Str("worker_id", workerID).
		Int("attempt", job.Attempts).
		Msg("Job claimed")
	return job, nil
}

// Start claims one specific job by id, for producers that fetch first and
// start separately. Returns nil when the job exists but is not claimable.
func (s *Service) Start(ctx context.Context, id, workerID string) (*Job, error) {
	job, err := s.store.StartJob(ctx, id, workerID, s.lease)
	if err != nil {
		return nil, err
	}
	if job != nil {
		jobsClaimed.WithLabelValues(job.JobType).Inc()
	}
	return job, nil
}

// Complete transitions processing -> completed. A repeat call (or a call
// on a job some other path already moved) returns false and changes
// nothing.
func (s *Service) Complete(ctx context.Context, id string, result json.RawMessage) (bool, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	ok, err := s.store.MarkCompleted(ctx, id, result)
	if err != nil || !ok {
		return ok, err
	}

	now := s.now()
	jobsCompleted.WithLabelValues(job.JobType).Inc()
	observeJobDuration(job, now)
	s.logger.Info().
		Str("job_id", id).
		Str("job_type", job.JobType).
		Msg("Job completed")

	// Release the next job in the chain, if any. Promotion failure is
	// logged, not propagated: the completed transition already happened.
	if job.NextJobID != nil {
		released, relErr := s.store.ReleaseScheduled(ctx, *job.NextJobID)
		if relErr != nil {
			s.logger.Error().Err(relErr).
				Str("job_id", id).
				Str("next_job_id", *job.NextJobID).
				Msg("Failed to release chained job")
		} else if released {
			s.logger.Info().
				Str("job_id", id).
				Str("next_job_id", *job.NextJobID).
				Msg("Released chained job")
		}
	}
	return true, nil
}

// Fail records a worker-reported failure. With retry budget remaining the
// job returns to the queue gated by the policy's backoff; with the budget
// exhausted it moves to the DLQ and the inline alert hook fires. Duplicate
// calls are safe no-ops.
func (s *Service) Fail(ctx context.Context, id, errMsg string, details json.RawMessage) (bool, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if job.Status != StatusProcessing {
		return false, nil
	}

	now := s.now()
	if job.Attempts < job.MaxAttempts {
		policy := s.policies.For(job.JobType)
		delay := policy.Delay(job.Attempts)
		nextRetry := now.Add(delay)

		ok, err := s.store.MarkFailedForRetry(ctx, id, errMsg, details, nextRetry)
		if err != nil || !ok {
			return ok, err
		}
		jobsFailed.WithLabelValues(job.JobType, "retry").Inc()
		observeJobDuration(job, now)
		s.logger.Warn().
			Str("job_id", id).
			Str("job_type", job.JobType).
			Int("attempt", job.Attempts).
			Int("max_attempts", job.MaxAttempts).
			Dur("retry_in", delay).
			Str("error", errMsg).
			Msg("Job failed, retry scheduled")
		return true, nil
	}

	reason := fmt.Sprintf("retries exhausted after %d attempts", job.Attempts)
	ok, err := s.store.MarkFailedToDLQ(ctx, id, errMsg, details, reason)
	if err != nil || !ok {
		return ok, err
	}
	jobsFailed.WithLabelValues(job.JobType, "dlq").Inc()
	observeJobDuration(job, now)
	s.logger.Error().
		Str("job_id", id).
		Str("job_type", job.JobType).
		Int("attempts", job.Attempts).
		Str("error", errMsg).
		Msg("Job moved to DLQ")

	if s.onDLQ != nil {
		if dlqJob, getErr := s.store.GetJob(ctx, id); getErr == nil {
			s.onDLQ(ctx, dlqJob)
		}
	}
	return true, nil
}

// Requeue is the operator escape hatch: it forces any non-processing job
// back to queued and is the only path out of the DLQ. Returns nil when the
// job is currently processing.
func (s *Service) Requeue(ctx context.Context, id string, resetAttempts bool) (*Job, error) {
	job, err := s.store.RequeueJob(ctx, id, resetAttempts)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}
	jobsRequeued.WithLabelValues(job.JobType).Inc()
	s.logger.Info().
		Str("job_id", id).
		Str("job_type", job.JobType).
		Bool("reset_attempts", resetAttempts).
		Msg("Job requeued")
	return job, nil
}

// BulkRequeue requeues a batch of jobs with attempts reset, returning the
// ids that actually moved. Missing or processing jobs are skipped.
func (s *Service) BulkRequeue(ctx context.Context, ids []string) ([]string, error) {
	requeued := make([]string, 0, len(ids))
	for _, id := range ids {
		job, err := s.Requeue(ctx, id, true)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return requeued, err
		}
		if job != nil {
			requeued = append(requeued, id)
		}
	}
	return requeued, nil
}

// ReclaimExpired fails every processing job whose lease has lapsed,
// feeding crashed workers' jobs back through the normal retry/DLQ path.
func (s *Service) ReclaimExpired(ctx context.Context, limit int) (int, error) {
	jobs, err := s.store.ExpiredLeases(ctx, s.now(), limit)
	if err != nil {
		return 0, err
	}
	reclaimed := 0
	for _, job := range jobs {
		worker := "unknown"
		if job.WorkerID != nil {
			worker = *job.WorkerID
		}
		msg := fmt.Sprintf("worker lease expired (worker %s)", worker)
		ok, failErr := s.Fail(ctx, job.ID, msg, nil)
		if failErr != nil {
			s.logger.Error().Err(failErr).Str("job_id", job.ID).Msg("Failed to reclaim expired lease")
			continue
		}
		if ok {
			leasesReclaimed.Inc()
			reclaimed++
		}
	}
	return reclaimed, nil
}

// Get fetches a job by id.
func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	return s.store.GetJob(ctx, id)
}

// List returns filtered, paginated jobs plus the total match count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Job, int, error) {
	return s.store.ListJobs(ctx, filter)
}

// ListDLQ returns DLQ entries, newest first.
func (s *Service) ListDLQ(ctx context.Context, jobType string, limit, offset int) ([]*Job, int, error) {
	return s.store.ListDLQ(ctx, jobType, limit, offset)
}

// Stats returns aggregate queue counts and refreshes the depth gauges.
func (s *Service) Stats(ctx context.Context) (*QueueStats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	RecordStats(stats)
	return stats, nil
}

// Policies exposes the retry policy set, letting subsystem workers reuse
// the shared backoff around their own domain actions.
func (s *Service) Policies() *PolicySet {
	return s.policies
}
