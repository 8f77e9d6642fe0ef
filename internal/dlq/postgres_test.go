package dlq

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/streampulse/job-service/internal/database"
	"github.com/streampulse/job-service/internal/jobqueue"
)

func setupPostgresAlertStore(t *testing.T) (*PostgresAlertStore, *jobqueue.PostgresStore, func()) {
	if testing.Short() {
		t.Skip("skipping postgres test in short mode (requires Docker)")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "Failed to start postgres container")

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	config, err := pgxpool.ParseConfig(connStr)
	require.NoError(t, err)

	pool, err := pgxpool.NewWithConfig(ctx, config)
	require.NoError(t, err, "Failed to create connection pool")

	require.NoError(t, database.Migrate(ctx, pool), "Failed to run migrations")

	cleanup := func() {
		pool.Close()
		testcontainers.TerminateContainer(container)
	}

	return NewPostgresAlertStore(pool), jobqueue.NewPostgresStore(pool), cleanup
}

func TestPostgresAlertFlow(t *testing.T) {
	alertStore, jobStore, cleanup := setupPostgresAlertStore(t)
	defer cleanup()

	ctx := context.Background()
	logger := zerolog.Nop()
	manager := NewManager(jobStore, alertStore, NewLogNotifier(&logger), &logger)
	svc := jobqueue.NewService(jobStore, jobqueue.DefaultPolicySet(), &logger)

	job, err := svc.Enqueue(ctx, jobqueue.EnqueueInput{JobType: "upload", MaxAttempts: 1})
	require.NoError(t, err)
	_, err = svc.ClaimNext(ctx, "", "w1")
	require.NoError(t, err)
	_, err = svc.Fail(ctx, job.ID, "encoder failure", nil)
	require.NoError(t, err)

	// The sweep generates exactly one alert, and only once
	alerts, err := manager.ProcessPendingAlerts(ctx, 100)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, job.ID, alerts[0].JobID)
	assert.Equal(t, "encoder failure", alerts[0].ErrorMessage)

	alerts, err = manager.ProcessPendingAlerts(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	// Acknowledgment persists and is immutable
	_, total, err := manager.ListAlerts(ctx, true, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	listed, _, err := manager.ListAlerts(ctx, true, 50, 0)
	require.NoError(t, err)
	acked, err := manager.Acknowledge(ctx, listed[0].ID, "oncall")
	require.NoError(t, err)
	assert.True(t, acked.Acknowledged)

	again, err := manager.Acknowledge(ctx, listed[0].ID, "someone-else")
	require.NoError(t, err)
	require.NotNil(t, again.AcknowledgedBy)
	assert.Equal(t, "oncall", *again.AcknowledgedBy)

	_, total, err = manager.ListAlerts(ctx, true, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	_, err = alertStore.GetAlert(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrAlertNotFound)
}
