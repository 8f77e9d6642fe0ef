package sweepers

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streampulse/job-service/internal/dlq"
	"github.com/streampulse/job-service/internal/jobqueue"
)

func seedDLQJob(t *testing.T, store *jobqueue.MemoryStore, id string) {
	t.Helper()
	ctx := context.Background()
	job := &jobqueue.Job{
		ID:          id,
		JobType:     "upload",
		Status:      jobqueue.StatusQueued,
		MaxAttempts: 1,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.CreateJob(ctx, job))
	_, err := store.ClaimNext(ctx, "", "w1", time.Minute)
	require.NoError(t, err)
	ok, err := store.MarkFailedToDLQ(ctx, id, "boom", nil, "retries exhausted after 1 attempts")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAlertSweeperSweep(t *testing.T) {
	jobs := jobqueue.NewMemoryStore()
	alerts := dlq.NewMemoryAlertStore(jobs)
	logger := zerolog.Nop()
	manager := dlq.NewManager(jobs, alerts, nil, &logger)
	ctx := context.Background()

	seedDLQJob(t, jobs, "job-1")
	seedDLQJob(t, jobs, "job-2")

	sweeper := NewAlertSweeper(manager, &logger, time.Minute, 100)
	require.NoError(t, sweeper.Sweep(ctx))

	_, total, err := manager.ListAlerts(ctx, false, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	// A second pass finds nothing new
	require.NoError(t, sweeper.Sweep(ctx))
	_, total, err = manager.ListAlerts(ctx, false, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestAlertSweeperStartStop(t *testing.T) {
	jobs := jobqueue.NewMemoryStore()
	alerts := dlq.NewMemoryAlertStore(jobs)
	logger := zerolog.Nop()
	manager := dlq.NewManager(jobs, alerts, nil, &logger)

	seedDLQJob(t, jobs, "job-1")

	sweeper := NewAlertSweeper(manager, &logger, 10*time.Millisecond, 100)
	done := make(chan struct{})
	go func() {
		sweeper.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, total, err := manager.ListAlerts(context.Background(), false, 50, 0)
		return err == nil && total == 1
	}, 2*time.Second, 10*time.Millisecond)

	sweeper.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestLeaseSweeperSweep(t *testing.T) {
	store := jobqueue.NewMemoryStore()
	logger := zerolog.Nop()
	service := jobqueue.NewService(store, jobqueue.DefaultPolicySet(), &logger,
		jobqueue.WithLease(10*time.Millisecond))
	ctx := context.Background()

	job, err := service.Enqueue(ctx, jobqueue.EnqueueInput{JobType: "upload"})
	require.NoError(t, err)
	_, err = service.ClaimNext(ctx, "", "w-crashed")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	sweeper := NewLeaseSweeper(service, &logger, time.Minute, 100)
	require.NoError(t, sweeper.Sweep(ctx))

	got, err := service.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobqueue.StatusQueued, got.Status)
	assert.Equal(t, 1, got.Attempts)
	require.NotNil(t, got.Error)
	assert.Contains(t, *got.Error, "lease expired")
}

func TestLeaseSweeperStopOnContext(t *testing.T) {
	store := jobqueue.NewMemoryStore()
	logger := zerolog.Nop()
	service := jobqueue.NewService(store, jobqueue.DefaultPolicySet(), &logger)

	sweeper := NewLeaseSweeper(service, &logger, 10*time.Millisecond, 100)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop on context cancel")
	}
}
