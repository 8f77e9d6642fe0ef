package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/streampulse/job-service/config"
	"github.com/streampulse/job-service/internal/database"
	"github.com/streampulse/job-service/internal/dlq"
	"github.com/streampulse/job-service/internal/httpclient"
	"github.com/streampulse/job-service/internal/jobqueue"
	"github.com/streampulse/job-service/internal/storage"
	"github.com/streampulse/job-service/internal/workers"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)

	logger.Info().Msg("Starting job worker")

	dbURL := config.GetDatabaseURL()
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL not set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.Connect(
		ctx,
		dbURL,
		cfg.Database.MaxConnections,
		cfg.Database.MinConnections,
		cfg.Database.MaxConnLifetime,
		cfg.Database.MaxConnIdleTime,
	); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	policies, err := jobqueue.NewPolicySet(cfg.RetryConfigs())
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid retry configuration")
	}

	jobStore := jobqueue.NewPostgresStore(database.Pool())
	alertStore := dlq.NewPostgresAlertStore(database.Pool())
	manager := dlq.NewManager(jobStore, alertStore, dlq.NewLogNotifier(logger), logger)

	service := jobqueue.NewService(jobStore, policies, logger,
		jobqueue.WithLease(cfg.Queue.Lease),
		jobqueue.WithDLQHook(func(ctx context.Context, job *jobqueue.Job) {
			if _, err := manager.GenerateAlert(ctx, job); err != nil {
				logger.Error().Err(err).Str("job_id", job.ID).Msg("Inline DLQ alert failed")
			}
		}),
	)

	store, err := storage.NewLocalStorage(cfg.Storage.BasePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize storage")
	}

	// Each subsystem's outbound client carries that family's backoff
	// policy, so transient upstream errors back off on the same schedule
	// the queue uses between attempts.
	uploadClient := httpclient.New(httpclient.DefaultConfig(), policies.For(jobqueue.FamilyUpload))
	webhookClient := httpclient.New(httpclient.DefaultConfig(), policies.For(jobqueue.FamilyWebhook))
	reconnectClient := httpclient.New(httpclient.DefaultConfig(), policies.For(jobqueue.FamilyStreamReconnect))
	syncClient := httpclient.New(httpclient.DefaultConfig(), policies.For(jobqueue.FamilySync))
	notifyClient := httpclient.New(httpclient.DefaultConfig(), policies.For(jobqueue.FamilyNotification))

	hostname, _ := os.Hostname()
	pool := workers.NewPool(service, workers.Config{
		WorkerID:   fmt.Sprintf("worker-%s-%d", hostname, os.Getpid()),
		NumWorkers: cfg.Workers.NumWorkers,
		PollDelay:  cfg.Workers.PollDelay,
		JobTimeout: cfg.Workers.JobTimeout,
	}, logger)

	pool.Register(jobqueue.FamilyUpload, workers.NewUploadHandler(store, uploadClient))
	pool.Register(jobqueue.FamilyWebhook, workers.NewWebhookHandler(webhookClient))
	pool.Register(jobqueue.FamilyStreamReconnect, workers.NewReconnectHandler(reconnectClient))
	pool.Register(jobqueue.FamilySync, workers.NewSyncHandler(syncClient))
	pool.Register(jobqueue.FamilyNotification, workers.NewNotificationHandler(notifyClient, logger))

	pool.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down worker...")
	cancel()
	pool.Stop()
	logger.Info().Msg("Worker exited")
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "job-worker").Logger()
	return &logger
}
