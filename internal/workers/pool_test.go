package workers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streampulse/job-service/internal/httpclient"
	"github.com/streampulse/job-service/internal/jobqueue"
	"github.com/streampulse/job-service/internal/storage"
)

func newPoolService(t *testing.T) *jobqueue.Service {
	t.Helper()
	store := jobqueue.NewMemoryStore()
	logger := zerolog.Nop()
	return jobqueue.NewService(store, jobqueue.DefaultPolicySet(), &logger)
}

func newPool(service *jobqueue.Service, cfg Config) *Pool {
	logger := zerolog.Nop()
	return NewPool(service, cfg, &logger)
}

func fastHTTPClient(maxAttempts int) *httpclient.Client {
	return httpclient.New(httpclient.Config{RequestsPerSecond: 1000, BurstSize: 1000},
		jobqueue.MustPolicy(jobqueue.RetryConfig{
			MaxAttempts:  maxAttempts,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2.0,
		}))
}

func TestProcessOneCompletesJob(t *testing.T) {
	service := newPoolService(t)
	ctx := context.Background()

	job, err := service.Enqueue(ctx, jobqueue.EnqueueInput{JobType: "notification"})
	require.NoError(t, err)

	pool := newPool(service, Config{WorkerID: "w-test"})
	pool.Register("notification", func(ctx context.Context, job *jobqueue.Job) (json.RawMessage, error) {
		return json.RawMessage(`{"dispatched":true}`), nil
	})

	assert.True(t, pool.processOne(ctx, "w-test-0"))
	assert.False(t, pool.processOne(ctx, "w-test-0"), "queue drained")

	got, err := service.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobqueue.StatusCompleted, got.Status)
	assert.Equal(t, json.RawMessage(`{"dispatched":true}`), got.Result)
}

func TestProcessOneFailureEntersRetryPath(t *testing.T) {
	service := newPoolService(t)
	ctx := context.Background()

	job, err := service.Enqueue(ctx, jobqueue.EnqueueInput{JobType: "notification"})
	require.NoError(t, err)

	pool := newPool(service, Config{WorkerID: "w-test"})
	pool.Register("notification", func(ctx context.Context, job *jobqueue.Job) (json.RawMessage, error) {
		return nil, errors.New("smtp connection refused")
	})

	assert.True(t, pool.processOne(ctx, "w-test-0"))

	got, err := service.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobqueue.StatusQueued, got.Status)
	assert.Equal(t, 1, got.Attempts)
	require.NotNil(t, got.Error)
	assert.Equal(t, "smtp connection refused", *got.Error)
	assert.NotNil(t, got.NextRetryAt)
}

func TestProcessOneMissingHandlerFailsJob(t *testing.T) {
	service := newPoolService(t)
	ctx := context.Background()

	job, err := service.Enqueue(ctx, jobqueue.EnqueueInput{JobType: "transcode", MaxAttempts: 1})
	require.NoError(t, err)

	pool := newPool(service, Config{WorkerID: "w-test"})
	assert.True(t, pool.processOne(ctx, "w-test-0"))

	got, err := service.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobqueue.StatusDLQ, got.Status)
	require.NotNil(t, got.Error)
	assert.Contains(t, *got.Error, "no handler registered")
}

func TestHandlerDispatchByFamilyPrefix(t *testing.T) {
	service := newPoolService(t)
	ctx := context.Background()

	_, err := service.Enqueue(ctx, jobqueue.EnqueueInput{JobType: "webhook:video.published"})
	require.NoError(t, err)

	var gotType atomic.Value
	pool := newPool(service, Config{WorkerID: "w-test"})
	pool.Register("webhook", func(ctx context.Context, job *jobqueue.Job) (json.RawMessage, error) {
		gotType.Store(job.JobType)
		return nil, nil
	})

	assert.True(t, pool.processOne(ctx, "w-test-0"))
	assert.Equal(t, "webhook:video.published", gotType.Load())
}

func TestHandlerDispatchExactBeatsFamily(t *testing.T) {
	pool := newPool(newPoolService(t), Config{WorkerID: "w-test"})

	family := func(ctx context.Context, job *jobqueue.Job) (json.RawMessage, error) {
		return json.RawMessage(`"family"`), nil
	}
	exact := func(ctx context.Context, job *jobqueue.Job) (json.RawMessage, error) {
		return json.RawMessage(`"exact"`), nil
	}
	pool.Register("webhook", family)
	pool.Register("webhook:payout", exact)

	handler := pool.handlerFor("webhook:payout")
	require.NotNil(t, handler)
	result, err := handler(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`"exact"`), result)

	assert.Nil(t, pool.handlerFor("transcode"))
}

func TestPoolStartStopProcessesJobs(t *testing.T) {
	service := newPoolService(t)
	ctx := context.Background()

	job, err := service.Enqueue(ctx, jobqueue.EnqueueInput{JobType: "notification"})
	require.NoError(t, err)

	pool := newPool(service, Config{
		WorkerID:   "w-test",
		NumWorkers: 2,
		PollDelay:  10 * time.Millisecond,
	})
	pool.Register("notification", func(ctx context.Context, job *jobqueue.Job) (json.RawMessage, error) {
		return nil, nil
	})

	pool.Start(ctx)
	assert.Eventually(t, func() bool {
		got, err := service.Get(ctx, job.ID)
		return err == nil && got.Status == jobqueue.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
	pool.Stop()
}

func TestWebhookHandlerSignsPayload(t *testing.T) {
	var gotSignature atomic.Value
	var gotBody atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature.Store(r.Header.Get(SignatureHeader))
		body, _ := io.ReadAll(r.Body)
		gotBody.Store(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	payload, err := json.Marshal(WebhookPayload{
		URL:    srv.URL,
		Event:  "video.published",
		Data:   json.RawMessage(`{"video_id":"v-1"}`),
		Secret: "hook-secret",
	})
	require.NoError(t, err)

	handler := NewWebhookHandler(fastHTTPClient(3))
	result, err := handler(context.Background(), &jobqueue.Job{ID: "job-1", JobType: "webhook:video.published", Payload: payload})
	require.NoError(t, err)

	var webhookResult WebhookResult
	require.NoError(t, json.Unmarshal(result, &webhookResult))
	assert.Equal(t, http.StatusOK, webhookResult.StatusCode)

	signature, _ := gotSignature.Load().(string)
	body, _ := gotBody.Load().([]byte)
	require.NotEmpty(t, signature)
	assert.Equal(t, SignPayload("hook-secret", body), signature, "signature must match the delivered body")
}

func TestWebhookHandlerRejectsMissingURL(t *testing.T) {
	handler := NewWebhookHandler(fastHTTPClient(3))
	_, err := handler(context.Background(), &jobqueue.Job{Payload: json.RawMessage(`{"event":"x"}`)})
	assert.Error(t, err)
}

func TestUploadHandlerInlineContent(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	content := []byte("raw video bytes")
	payload, err := json.Marshal(UploadPayload{
		AccountID:     "acct-1",
		FileName:      "clip.mp4",
		ContentType:   "video/mp4",
		ContentBase64: base64.StdEncoding.EncodeToString(content),
	})
	require.NoError(t, err)

	handler := NewUploadHandler(store, fastHTTPClient(3))
	result, err := handler(context.Background(), &jobqueue.Job{ID: "job-1", JobType: "upload", Payload: payload})
	require.NoError(t, err)

	var uploadResult UploadResult
	require.NoError(t, json.Unmarshal(result, &uploadResult))
	assert.Equal(t, int64(len(content)), uploadResult.Size)
	assert.Equal(t, storage.ComputeChecksum(content), uploadResult.Checksum)

	stored, err := store.Get(context.Background(), uploadResult.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, content, stored)
}

func TestUploadHandlerFetchesSourceURL(t *testing.T) {
	content := []byte("fetched artifact")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(content)
	}))
	defer srv.Close()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	payload, err := json.Marshal(UploadPayload{
		AccountID: "acct-1",
		FileName:  "remote.bin",
		SourceURL: srv.URL,
	})
	require.NoError(t, err)

	handler := NewUploadHandler(store, fastHTTPClient(3))
	result, err := handler(context.Background(), &jobqueue.Job{ID: "job-2", JobType: "upload", Payload: payload})
	require.NoError(t, err)

	var uploadResult UploadResult
	require.NoError(t, json.Unmarshal(result, &uploadResult))
	stored, err := store.Get(context.Background(), uploadResult.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, content, stored)
}

func TestUploadHandlerRequiresContent(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	payload, err := json.Marshal(UploadPayload{AccountID: "acct-1", FileName: "x.bin"})
	require.NoError(t, err)

	handler := NewUploadHandler(store, fastHTTPClient(3))
	_, err = handler(context.Background(), &jobqueue.Job{ID: "job-3", JobType: "upload", Payload: payload})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "content_base64 or source_url")
}
