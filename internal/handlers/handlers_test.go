package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streampulse/job-service/internal/dlq"
	"github.com/streampulse/job-service/internal/jobqueue"
)

type testEnv struct {
	router  *gin.Engine
	service *jobqueue.Service
	manager *dlq.Manager
	store   *jobqueue.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := jobqueue.NewMemoryStore()
	alertStore := dlq.NewMemoryAlertStore(store)
	logger := zerolog.Nop()
	manager := dlq.NewManager(store, alertStore, dlq.NewLogNotifier(&logger), &logger)
	service := jobqueue.NewService(store, jobqueue.DefaultPolicySet(), &logger,
		jobqueue.WithLease(5*time.Minute),
		jobqueue.WithDLQHook(func(ctx context.Context, job *jobqueue.Job) {
			_, _ = manager.GenerateAlert(ctx, job)
		}))

	h := New(service, manager)
	router := gin.New()
	jobs := router.Group("/internal/jobs")
	{
		jobs.POST("", h.EnqueueJob)
		jobs.GET("", h.ListJobs)
		jobs.GET("/next", h.ClaimNext)
		jobs.POST("/bulk-requeue", h.BulkRequeue)
		jobs.GET("/stats/queue", h.QueueStats)
		jobs.GET("/dlq/jobs", h.ListDLQ)
		jobs.GET("/dlq/alerts", h.ListAlerts)
		jobs.POST("/dlq/alerts/acknowledge", h.AcknowledgeAlert)
		jobs.POST("/dlq/process-alerts", h.ProcessAlerts)
		jobs.GET("/:jobId", h.GetJob)
		jobs.POST("/:jobId/start", h.StartJob)
		jobs.POST("/:jobId/complete", h.CompleteJob)
		jobs.POST("/:jobId/fail", h.FailJob)
		jobs.POST("/:jobId/requeue", h.RequeueJob)
	}

	return &testEnv{router: router, service: service, manager: manager, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestEnqueueJobEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/internal/jobs", gin.H{
		"job_type": "upload",
		"payload":  gin.H{"video_id": "v-123"},
		"priority": 5,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decode[EnqueueJobResponse](t, w)
	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, "queued", resp.Status)

	job, err := env.service.Get(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, "upload", job.JobType)
	assert.Equal(t, 5, job.Priority)
	assert.Equal(t, 3, job.MaxAttempts)
}

func TestEnqueueJobRejectsMissingType(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/internal/jobs", gin.H{"priority": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClaimNextEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/internal/jobs/next?worker_id=w1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code, "empty queue claims nothing")

	enq := env.do(t, http.MethodPost, "/internal/jobs", gin.H{"job_type": "upload"})
	require.Equal(t, http.StatusCreated, enq.Code)
	created := decode[EnqueueJobResponse](t, enq)

	w = env.do(t, http.MethodGet, "/internal/jobs/next?worker_id=w1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	job := decode[jobqueue.Job](t, w)
	assert.Equal(t, created.JobID, job.ID)
	assert.Equal(t, jobqueue.StatusProcessing, job.Status)
	assert.Equal(t, 1, job.Attempts)
}

func TestClaimNextJobTypeFilter(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/internal/jobs", gin.H{"job_type": "upload", "priority": 9})
	enq := env.do(t, http.MethodPost, "/internal/jobs", gin.H{"job_type": "webhook:video.published"})
	created := decode[EnqueueJobResponse](t, enq)

	w := env.do(t, http.MethodGet, "/internal/jobs/next?job_type=webhook:video.published&worker_id=w1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	job := decode[jobqueue.Job](t, w)
	assert.Equal(t, created.JobID, job.ID)
}

func TestGetJobEndpoint(t *testing.T) {
	env := newTestEnv(t)

	enq := env.do(t, http.MethodPost, "/internal/jobs", gin.H{"job_type": "upload"})
	created := decode[EnqueueJobResponse](t, enq)

	w := env.do(t, http.MethodGet, "/internal/jobs/"+created.JobID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	job := decode[jobqueue.Job](t, w)
	assert.Equal(t, created.JobID, job.ID)

	w = env.do(t, http.MethodGet, "/internal/jobs/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartJobEndpoint(t *testing.T) {
	env := newTestEnv(t)

	enq := env.do(t, http.MethodPost, "/internal/jobs", gin.H{"job_type": "upload"})
	created := decode[EnqueueJobResponse](t, enq)

	w := env.do(t, http.MethodPost, "/internal/jobs/"+created.JobID+"/start", gin.H{"worker_id": "w9"})
	require.Equal(t, http.StatusOK, w.Code)
	job := decode[jobqueue.Job](t, w)
	assert.Equal(t, jobqueue.StatusProcessing, job.Status)
	require.NotNil(t, job.WorkerID)
	assert.Equal(t, "w9", *job.WorkerID)

	// Starting a processing job conflicts
	w = env.do(t, http.MethodPost, "/internal/jobs/"+created.JobID+"/start", gin.H{"worker_id": "w9"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/internal/jobs/missing/start", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCompleteJobEndpoint(t *testing.T) {
	env := newTestEnv(t)

	enq := env.do(t, http.MethodPost, "/internal/jobs", gin.H{"job_type": "upload"})
	created := decode[EnqueueJobResponse](t, enq)
	env.do(t, http.MethodGet, "/internal/jobs/next?worker_id=w1", nil)

	w := env.do(t, http.MethodPost, "/internal/jobs/"+created.JobID+"/complete",
		gin.H{"result": gin.H{"storage_key": "uploads/a/b"}})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[TransitionResponse](t, w)
	assert.True(t, resp.Applied)

	// Duplicate completion reports applied=false
	w = env.do(t, http.MethodPost, "/internal/jobs/"+created.JobID+"/complete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[TransitionResponse](t, w)
	assert.False(t, resp.Applied)
}

func TestFailJobEndpointRetries(t *testing.T) {
	env := newTestEnv(t)

	enq := env.do(t, http.MethodPost, "/internal/jobs", gin.H{"job_type": "upload"})
	created := decode[EnqueueJobResponse](t, enq)
	env.do(t, http.MethodGet, "/internal/jobs/next?worker_id=w1", nil)

	w := env.do(t, http.MethodPost, "/internal/jobs/"+created.JobID+"/fail",
		gin.H{"error": "transcoder crashed"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[TransitionResponse](t, w)
	assert.True(t, resp.Applied)

	job, err := env.service.Get(context.Background(), created.JobID)
	require.NoError(t, err)
	assert.Equal(t, jobqueue.StatusQueued, job.Status)
	assert.NotNil(t, job.NextRetryAt)
}

func TestFailJobRequiresError(t *testing.T) {
	env := newTestEnv(t)

	enq := env.do(t, http.MethodPost, "/internal/jobs", gin.H{"job_type": "upload"})
	created := decode[EnqueueJobResponse](t, enq)

	w := env.do(t, http.MethodPost, "/internal/jobs/"+created.JobID+"/fail", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeadLetterFlowEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	enq := env.do(t, http.MethodPost, "/internal/jobs",
		gin.H{"job_type": "upload", "max_attempts": 1})
	created := decode[EnqueueJobResponse](t, enq)

	env.do(t, http.MethodGet, "/internal/jobs/next?worker_id=w1", nil)
	w := env.do(t, http.MethodPost, "/internal/jobs/"+created.JobID+"/fail",
		gin.H{"error": "fatal encoder error"})
	require.Equal(t, http.StatusOK, w.Code)

	// The job is in the DLQ listing
	w = env.do(t, http.MethodGet, "/internal/jobs/dlq/jobs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	dlqList := decode[ListDLQResponse](t, w)
	require.Equal(t, 1, dlqList.Total)
	assert.Equal(t, created.JobID, dlqList.Jobs[0].ID)

	// The inline hook already generated exactly one alert
	w = env.do(t, http.MethodGet, "/internal/jobs/dlq/alerts?unacknowledged=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	alerts := decode[ListAlertsResponse](t, w)
	require.Equal(t, 1, alerts.Total)
	alertID := alerts.Alerts[0].ID

	// The sweep endpoint finds nothing more to do
	w = env.do(t, http.MethodPost, "/internal/jobs/dlq/process-alerts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	processed := decode[ProcessAlertsResponse](t, w)
	assert.Equal(t, 0, processed.ProcessedCount)

	// Acknowledge and verify the unacknowledged view empties
	w = env.do(t, http.MethodPost, "/internal/jobs/dlq/alerts/acknowledge",
		gin.H{"alert_id": alertID, "acknowledged_by": "oncall@streampulse.io"})
	require.Equal(t, http.StatusOK, w.Code)
	acked := decode[dlq.Alert](t, w)
	assert.True(t, acked.Acknowledged)

	w = env.do(t, http.MethodGet, "/internal/jobs/dlq/alerts?unacknowledged=true", nil)
	alerts = decode[ListAlertsResponse](t, w)
	assert.Equal(t, 0, alerts.Total)

	// Requeue is the way out of the DLQ
	w = env.do(t, http.MethodPost, "/internal/jobs/"+created.JobID+"/requeue", nil)
	require.Equal(t, http.StatusOK, w.Code)
	requeued := decode[jobqueue.Job](t, w)
	assert.Equal(t, jobqueue.StatusQueued, requeued.Status)
	assert.Equal(t, 0, requeued.Attempts)

	job, err := env.service.Get(ctx, created.JobID)
	require.NoError(t, err)
	assert.Equal(t, jobqueue.StatusQueued, job.Status)
}

func TestAcknowledgeUnknownAlertEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/internal/jobs/dlq/alerts/acknowledge",
		gin.H{"alert_id": "missing", "acknowledged_by": "oncall"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequeueJobEndpointKeepAttempts(t *testing.T) {
	env := newTestEnv(t)

	enq := env.do(t, http.MethodPost, "/internal/jobs",
		gin.H{"job_type": "upload", "max_attempts": 1})
	created := decode[EnqueueJobResponse](t, enq)
	env.do(t, http.MethodGet, "/internal/jobs/next?worker_id=w1", nil)
	env.do(t, http.MethodPost, "/internal/jobs/"+created.JobID+"/fail", gin.H{"error": "boom"})

	w := env.do(t, http.MethodPost, "/internal/jobs/"+created.JobID+"/requeue?reset_attempts=false", nil)
	require.Equal(t, http.StatusOK, w.Code)
	job := decode[jobqueue.Job](t, w)
	assert.Equal(t, 1, job.Attempts)
}

func TestRequeueProcessingJobConflicts(t *testing.T) {
	env := newTestEnv(t)

	enq := env.do(t, http.MethodPost, "/internal/jobs", gin.H{"job_type": "upload"})
	created := decode[EnqueueJobResponse](t, enq)
	env.do(t, http.MethodGet, "/internal/jobs/next?worker_id=w1", nil)

	w := env.do(t, http.MethodPost, "/internal/jobs/"+created.JobID+"/requeue", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBulkRequeueEndpoint(t *testing.T) {
	env := newTestEnv(t)

	enq := env.do(t, http.MethodPost, "/internal/jobs",
		gin.H{"job_type": "upload", "max_attempts": 1})
	dead := decode[EnqueueJobResponse](t, enq)
	env.do(t, http.MethodGet, "/internal/jobs/next?worker_id=w1", nil)
	env.do(t, http.MethodPost, "/internal/jobs/"+dead.JobID+"/fail", gin.H{"error": "boom"})

	w := env.do(t, http.MethodPost, "/internal/jobs/bulk-requeue",
		gin.H{"job_ids": []string{dead.JobID, "missing"}})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[BulkRequeueResponse](t, w)
	assert.Equal(t, 1, resp.RequeuedCount)
	assert.Equal(t, []string{dead.JobID}, resp.RequeuedIDs)
}

func TestBulkRequeueRequiresIDs(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/internal/jobs/bulk-requeue", gin.H{"job_ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListJobsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		env.do(t, http.MethodPost, "/internal/jobs", gin.H{"job_type": "upload"})
	}
	env.do(t, http.MethodPost, "/internal/jobs", gin.H{"job_type": "sync:comments"})

	w := env.do(t, http.MethodGet, "/internal/jobs?job_type=upload", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[ListJobsResponse](t, w)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 20, resp.PageSize)

	w = env.do(t, http.MethodGet, "/internal/jobs?page_size=2", nil)
	resp = decode[ListJobsResponse](t, w)
	assert.Equal(t, 4, resp.Total)
	assert.Len(t, resp.Jobs, 2)

	w = env.do(t, http.MethodGet, "/internal/jobs?status=sideways", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueueStatsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/internal/jobs", gin.H{"job_type": "upload"})
	env.do(t, http.MethodPost, "/internal/jobs", gin.H{"job_type": "upload"})
	env.do(t, http.MethodGet, "/internal/jobs/next?worker_id=w1", nil)

	w := env.do(t, http.MethodGet, "/internal/jobs/stats/queue", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[jobqueue.QueueStats](t, w)
	assert.Equal(t, 1, stats.QueuedDepth)
	assert.Equal(t, 1, stats.Processing)
	assert.Equal(t, 2, stats.Total)
}

func TestListDLQJobTypeFilter(t *testing.T) {
	env := newTestEnv(t)

	for _, jobType := range []string{"upload", "webhook:payout"} {
		enq := env.do(t, http.MethodPost, "/internal/jobs",
			gin.H{"job_type": jobType, "max_attempts": 1})
		created := decode[EnqueueJobResponse](t, enq)
		env.do(t, http.MethodGet, fmt.Sprintf("/internal/jobs/next?job_type=%s&worker_id=w1", jobType), nil)
		env.do(t, http.MethodPost, "/internal/jobs/"+created.JobID+"/fail", gin.H{"error": "boom"})
	}

	w := env.do(t, http.MethodGet, "/internal/jobs/dlq/jobs?job_type=upload", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[ListDLQResponse](t, w)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "upload", resp.Jobs[0].JobType)
}
