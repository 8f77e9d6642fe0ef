package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/streampulse/job-service/internal/dlq"
	"github.com/streampulse/job-service/internal/jobqueue"
)

// Handler bundles the queue service and DLQ manager behind the HTTP surface.
// Stores are injected so tests can run against the in-memory implementations.
type Handler struct {
	jobs *jobqueue.Service
	dlq  *dlq.Manager
}

// New creates a Handler backed by the given service and DLQ manager
func New(jobs *jobqueue.Service, dlqManager *dlq.Manager) *Handler {
	return &Handler{jobs: jobs, dlq: dlqManager}
}

// EnqueueJobRequest represents the request body for enqueuing a job
type EnqueueJobRequest struct {
	JobType     string          `json:"job_type" binding:"required" jsonschema:"required"`
	Payload     json.RawMessage `json:"payload"`
	Priority    int             `json:"priority"`
	MaxAttempts int             `json:"max_attempts" binding:"min=0" jsonschema:"minimum=0"`
	ScheduledAt *time.Time      `json:"scheduled_at"`
	WorkflowID  *string         `json:"workflow_id"`
	ParentJobID *string         `json:"parent_job_id"`
	NextJobID   *string         `json:"next_job_id"`
	UserID      *string         `json:"user_id"`
	AccountID   *string         `json:"account_id"`
}

// EnqueueJobResponse represents the response after enqueuing a job
type EnqueueJobResponse struct {
	JobID  string `json:"job_id" jsonschema:"required"`
	Status string `json:"status" jsonschema:"required"`
}

// EnqueueJob creates a new queued job
// @Summary Enqueue a job
// @Description Creates a new job in the queued state
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body EnqueueJobRequest true "Job to enqueue"
// @Success 201 {object} EnqueueJobResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /internal/jobs [post]
func (h *Handler) EnqueueJob(c *gin.Context) {
	var req EnqueueJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.jobs.Enqueue(c.Request.Context(), jobqueue.EnqueueInput{
		JobType:     req.JobType,
		Payload:     req.Payload,
		Priority:    req.Priority,
		MaxAttempts: req.MaxAttempts,
		ScheduledAt: req.ScheduledAt,
		WorkflowID:  req.WorkflowID,
		ParentJobID: req.ParentJobID,
		NextJobID:   req.NextJobID,
		UserID:      req.UserID,
		AccountID:   req.AccountID,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue job"})
		return
	}

	c.JSON(http.StatusCreated, EnqueueJobResponse{
		JobID:  job.ID,
		Status: string(job.Status),
	})
}

// ClaimNextRequest represents query parameters for claiming the next job
type ClaimNextRequest struct {
	JobType  string `form:"job_type" json:"job_type"`
	WorkerID string `form:"worker_id" json:"worker_id"`
}

// ClaimNext hands the next eligible job to a worker
// @Summary Claim next job
// @Description Atomically claims the highest-priority due job, or returns 204 when the queue is empty
// @Tags jobs
// @Accept json
// @Produce json
// @Param job_type query string false "Filter by job type"
// @Param worker_id query string false "Claiming worker identifier"
// @Success 200 {object} jobqueue.Job
// @Success 204 "No eligible job"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /internal/jobs/next [get]
func (h *Handler) ClaimNext(c *gin.Context) {
	var req ClaimNextRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.jobs.ClaimNext(c.Request.Context(), req.JobType, req.WorkerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to claim job"})
		return
	}
	if job == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, job)
}

// GetJob returns a single job by ID
// @Summary Get job
// @Description Returns a single job record by its ID
// @Tags jobs
// @Accept json
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} jobqueue.Job
// @Failure 404 {object} map[string]string "Job not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /internal/jobs/{jobId} [get]
func (h *Handler) GetJob(c *gin.Context) {
	jobID := c.Param("jobId")

	job, err := h.jobs.Get(c.Request.Context(), jobID)
	if errors.Is(err, jobqueue.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch job"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// StartJobRequest represents the request body for starting a job
type StartJobRequest struct {
	WorkerID string `json:"worker_id"`
}

// StartJob marks an already-claimed job as processing
// @Summary Start job
// @Description Marks a queued job as processing, for callers that separate claim and start
// @Tags jobs
// @Accept json
// @Produce json
// @Param jobId path string true "Job ID"
// @Param request body StartJobRequest false "Start options"
// @Success 200 {object} jobqueue.Job
// @Failure 404 {object} map[string]string "Job not found"
// @Failure 409 {object} map[string]string "Job not in a startable state"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /internal/jobs/{jobId}/start [post]
func (h *Handler) StartJob(c *gin.Context) {
	jobID := c.Param("jobId")

	var req StartJobRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	job, err := h.jobs.Start(c.Request.Context(), jobID, req.WorkerID)
	if errors.Is(err, jobqueue.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start job"})
		return
	}
	if job == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Job is not queued"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// CompleteJobRequest represents the request body for completing a job
type CompleteJobRequest struct {
	Result json.RawMessage `json:"result"`
}

// TransitionResponse reports whether a state transition was applied
type TransitionResponse struct {
	JobID   string `json:"job_id" jsonschema:"required"`
	Applied bool   `json:"applied" jsonschema:"required"`
}

// CompleteJob transitions a processing job to completed
// @Summary Complete job
// @Description Transitions a processing job to completed; repeat calls are safe no-ops
// @Tags jobs
// @Accept json
// @Produce json
// @Param jobId path string true "Job ID"
// @Param request body CompleteJobRequest false "Completion result"
// @Success 200 {object} TransitionResponse
// @Failure 404 {object} map[string]string "Job not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /internal/jobs/{jobId}/complete [post]
func (h *Handler) CompleteJob(c *gin.Context) {
	jobID := c.Param("jobId")

	var req CompleteJobRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	applied, err := h.jobs.Complete(c.Request.Context(), jobID, req.Result)
	if errors.Is(err, jobqueue.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete job"})
		return
	}

	c.JSON(http.StatusOK, TransitionResponse{JobID: jobID, Applied: applied})
}

// FailJobRequest represents the request body for failing a job
type FailJobRequest struct {
	Error        string          `json:"error" binding:"required" jsonschema:"required"`
	ErrorDetails json.RawMessage `json:"error_details"`
}

// FailJob records a worker failure and schedules a retry or moves the job to the DLQ
// @Summary Fail job
// @Description Records a failure; the job is either scheduled for retry or moved to the dead-letter queue
// @Tags jobs
// @Accept json
// @Produce json
// @Param jobId path string true "Job ID"
// @Param request body FailJobRequest true "Failure report"
// @Success 200 {object} TransitionResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 404 {object} map[string]string "Job not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /internal/jobs/{jobId}/fail [post]
func (h *Handler) FailJob(c *gin.Context) {
	jobID := c.Param("jobId")

	var req FailJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	applied, err := h.jobs.Fail(c.Request.Context(), jobID, req.Error, req.ErrorDetails)
	if errors.Is(err, jobqueue.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record job failure"})
		return
	}

	c.JSON(http.StatusOK, TransitionResponse{JobID: jobID, Applied: applied})
}

// RequeueJobRequest represents query parameters for requeuing a job
type RequeueJobRequest struct {
	ResetAttempts *bool `form:"reset_attempts" json:"reset_attempts"`
}

// RequeueJob forces a job back to the queued state
// @Summary Requeue job
// @Description Forces any non-processing job back to queued; the only path out of the dead-letter queue
// @Tags jobs
// @Accept json
// @Produce json
// @Param jobId path string true "Job ID"
// @Param reset_attempts query bool false "Reset the attempt counter" default(true)
// @Success 200 {object} jobqueue.Job
// @Failure 404 {object} map[string]string "Job not found"
// @Failure 409 {object} map[string]string "Job is currently processing"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /internal/jobs/{jobId}/requeue [post]
func (h *Handler) RequeueJob(c *gin.Context) {
	jobID := c.Param("jobId")

	var req RequeueJobRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resetAttempts := true
	if req.ResetAttempts != nil {
		resetAttempts = *req.ResetAttempts
	}

	job, err := h.jobs.Requeue(c.Request.Context(), jobID, resetAttempts)
	if errors.Is(err, jobqueue.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to requeue job"})
		return
	}
	if job == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Job is currently processing"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// BulkRequeueRequest represents the request body for bulk requeuing
type BulkRequeueRequest struct {
	JobIDs []string `json:"job_ids" binding:"required,min=1" jsonschema:"required"`
}

// BulkRequeueResponse represents the response for bulk requeuing
type BulkRequeueResponse struct {
	RequeuedCount int      `json:"requeued_count" jsonschema:"required"`
	RequeuedIDs   []string `json:"requeued_ids" jsonschema:"required"`
}

// BulkRequeue requeues a batch of jobs with attempts reset
// @Summary Bulk requeue jobs
// @Description Requeues a batch of jobs with attempts reset; missing or processing jobs are skipped
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body BulkRequeueRequest true "Job IDs to requeue"
// @Success 200 {object} BulkRequeueResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /internal/jobs/bulk-requeue [post]
func (h *Handler) BulkRequeue(c *gin.Context) {
	var req BulkRequeueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requeued, err := h.jobs.BulkRequeue(c.Request.Context(), req.JobIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to requeue jobs"})
		return
	}

	c.JSON(http.StatusOK, BulkRequeueResponse{
		RequeuedCount: len(requeued),
		RequeuedIDs:   requeued,
	})
}

// ListJobsRequest represents query parameters for listing jobs
type ListJobsRequest struct {
	Status    string `form:"status" json:"status" jsonschema:"enum=queued,enum=processing,enum=completed,enum=failed,enum=dlq"`
	JobType   string `form:"job_type" json:"job_type"`
	UserID    string `form:"user_id" json:"user_id"`
	AccountID string `form:"account_id" json:"account_id"`
	Page      int    `form:"page" json:"page" binding:"min=0" jsonschema:"minimum=0"`
	PageSize  int    `form:"page_size" json:"page_size" binding:"min=0,max=100" jsonschema:"minimum=0,maximum=100"`
}

// ListJobsResponse represents the response for listing jobs
type ListJobsResponse struct {
	Jobs     []*jobqueue.Job `json:"jobs" jsonschema:"required"`
	Total    int             `json:"total" jsonschema:"required"`
	Page     int             `json:"page" jsonschema:"required"`
	PageSize int             `json:"page_size" jsonschema:"required"`
}

// ListJobs returns a filtered, paginated job listing
// @Summary List jobs
// @Description Returns a paginated list of jobs with optional status, type, and ownership filters
// @Tags jobs
// @Accept json
// @Produce json
// @Param status query string false "Filter by status" Enums(queued, processing, completed, failed, dlq)
// @Param job_type query string false "Filter by job type"
// @Param user_id query string false "Filter by user"
// @Param account_id query string false "Filter by account"
// @Param page query int false "Page number" default(1) minimum(1)
// @Param page_size query int false "Page size" default(20) minimum(1) maximum(100)
// @Success 200 {object} ListJobsResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /internal/jobs [get]
func (h *Handler) ListJobs(c *gin.Context) {
	var req ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Set defaults
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	status := jobqueue.Status(req.Status)
	if req.Status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	jobs, total, err := h.jobs.List(c.Request.Context(), jobqueue.ListFilter{
		Status:    status,
		JobType:   req.JobType,
		UserID:    req.UserID,
		AccountID: req.AccountID,
		Page:      req.Page,
		PageSize:  req.PageSize,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch jobs"})
		return
	}

	c.JSON(http.StatusOK, ListJobsResponse{
		Jobs:     jobs,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
}
