// Package workers runs the polling worker pool that claims jobs from the
// queue and dispatches them to per-job-type handlers.
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/streampulse/job-service/internal/jobqueue"
)

// HandlerFunc processes one claimed job and returns an opaque result.
// A non-nil error reports the attempt as failed; the queue decides
// between retry and DLQ.
type HandlerFunc func(ctx context.Context, job *jobqueue.Job) (json.RawMessage, error)

// Config holds worker pool configuration
type Config struct {
	WorkerID   string
	JobType    string
	NumWorkers int
	PollDelay  time.Duration
	JobTimeout time.Duration
}

// Pool polls the queue and runs registered handlers against claimed jobs
type Pool struct {
	service  *jobqueue.Service
	config   Config
	handlers map[string]HandlerFunc
	logger   *zerolog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewPool creates a worker pool over the given queue service
func NewPool(service *jobqueue.Service, config Config, logger *zerolog.Logger) *Pool {
	if config.NumWorkers < 1 {
		config.NumWorkers = 1
	}
	if config.PollDelay <= 0 {
		config.PollDelay = 2 * time.Second
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 5 * time.Minute
	}
	return &Pool{
		service:  service,
		config:   config,
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Register installs a handler for a job type or a job-type family prefix.
// Dispatch tries the exact job type first, then the family before the
// first ':'.
func (p *Pool) Register(jobType string, handler HandlerFunc) {
	p.handlers[jobType] = handler
}

// Start launches the worker goroutines
func (p *Pool) Start(ctx context.Context) {
	p.logger.Info().
		Str("component", "worker").
		Str("worker_id", p.config.WorkerID).
		Int("num_workers", p.config.NumWorkers).
		Msg("Starting worker pool")

	for i := 0; i < p.config.NumWorkers; i++ {
		p.wg.Add(1)
		go p.workerLoop(ctx, i)
	}
}

// Stop signals the workers to stop and waits for in-flight jobs
func (p *Pool) Stop() {
	close(p.stopChan)
	p.logger.Info().
		Str("component", "worker").
		Str("worker_id", p.config.WorkerID).
		Msg("Worker pool stopping, waiting for in-flight jobs")
	p.wg.Wait()
	p.logger.Info().
		Str("component", "worker").
		Str("worker_id", p.config.WorkerID).
		Msg("Worker pool stopped")
}

func (p *Pool) workerLoop(ctx context.Context, workerNum int) {
	defer p.wg.Done()
	workerID := fmt.Sprintf("%s-%d", p.config.WorkerID, workerNum)

	ticker := time.NewTicker(p.config.PollDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			// Drain eligible jobs before going back to sleep
			for p.processOne(ctx, workerID) {
				select {
				case <-ctx.Done():
					return
				case <-p.stopChan:
					return
				default:
				}
			}
		}
	}
}

// processOne claims and runs a single job, reporting true when a job was
// claimed (so the caller keeps draining).
func (p *Pool) processOne(ctx context.Context, workerID string) bool {
	job, err := p.service.ClaimNext(ctx, p.config.JobType, workerID)
	if err != nil {
		p.logger.Error().Err(err).
			Str("worker_id", workerID).
			Msg("Failed to claim job")
		return false
	}
	if job == nil {
		return false
	}

	handler := p.handlerFor(job.JobType)
	if handler == nil {
		p.logger.Warn().
			Str("job_id", job.ID).
			Str("job_type", job.JobType).
			Msg("No handler for job type")
		if _, err := p.service.Fail(ctx, job.ID, "no handler registered for job type", nil); err != nil {
			p.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to report missing handler")
		}
		return true
	}

	p.logger.Info().
		Str("component", "worker").
		Str("worker_id", workerID).
		Str("job_id", job.ID).
		Str("job_type", job.JobType).
		Int("attempt", job.Attempts).
		Msg("Worker processing job")

	jobCtx, cancel := context.WithTimeout(ctx, p.config.JobTimeout)
	result, handlerErr := handler(jobCtx, job)
	cancel()

	if handlerErr != nil {
		if _, err := p.service.Fail(ctx, job.ID, handlerErr.Error(), nil); err != nil {
			p.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to report job failure")
		}
		return true
	}

	if _, err := p.service.Complete(ctx, job.ID, result); err != nil {
		p.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to mark job completed")
	}
	return true
}

func (p *Pool) handlerFor(jobType string) HandlerFunc {
	if handler, ok := p.handlers[jobType]; ok {
		return handler
	}
	if idx := strings.IndexByte(jobType, ':'); idx > 0 {
		if handler, ok := p.handlers[jobType[:idx]]; ok {
			return handler
		}
	}
	return nil
}
