package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/streampulse/job-service/config"
	_ "github.com/streampulse/job-service/docs"
	"github.com/streampulse/job-service/internal/database"
	"github.com/streampulse/job-service/internal/dlq"
	"github.com/streampulse/job-service/internal/handlers"
	"github.com/streampulse/job-service/internal/jobqueue"
	"github.com/streampulse/job-service/internal/middleware"
	"github.com/streampulse/job-service/internal/sweepers"
	"github.com/streampulse/job-service/internal/telemetry"
)

// @title StreamPulse Job Service API
// @version 1.0
// @description Internal job queue, retry, and dead-letter API
// @BasePath /
func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)

	logger.Info().Msg("Starting job service")

	dbURL := config.GetDatabaseURL()
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL not set")
	}

	ctx := context.Background()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.Telemetry.Environment,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}
	defer shutdownTelemetry(ctx)

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

	logger.Info().Msg("Database connected")

	if err := database.Migrate(ctx, database.Pool()); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

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

	if err := reportStuckJobs(ctx, service, logger); err != nil {
		logger.Warn().Err(err).Msg("Failed to check for stuck jobs")
	}

	alertSweeper := sweepers.NewAlertSweeper(manager, logger, cfg.Alerts.SweepInterval, cfg.Alerts.SweepBatch)
	go alertSweeper.Start(ctx)

	leaseSweeper := sweepers.NewLeaseSweeper(service, logger, cfg.Queue.LeaseSweepInterval, cfg.Queue.SweepBatch)
	go leaseSweeper.Start(ctx)

	go refreshQueueMetrics(ctx, service, logger)

	if cfg.Logging.Level == "info" || cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	setupMiddleware(router, logger)

	h := handlers.New(service, manager)

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	internal := router.Group("/internal")
	internal.Use(middleware.InternalAuthMiddleware())
	internal.Use(middleware.ServiceRateLimitMiddleware(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize))
	{
		internal.GET("/health", handlers.HealthCheck)

		jobs := internal.Group("/jobs")
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
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")
	alertSweeper.Stop()
	leaseSweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}

// reportStuckJobs reclaims jobs whose worker lease lapsed while the
// service was down, so a restart immediately feeds them back through the
// retry path instead of waiting for the first sweep.
func reportStuckJobs(ctx context.Context, service *jobqueue.Service, logger *zerolog.Logger) error {
	reclaimed, err := service.ReclaimExpired(ctx, 1000)
	if err != nil {
		return err
	}
	if reclaimed == 0 {
		logger.Info().Msg("No stuck processing jobs found")
		return nil
	}
	logger.Info().Int("count", reclaimed).Msg("Reclaimed stuck processing jobs on startup")
	return nil
}

// refreshQueueMetrics keeps the queue depth gauges current even when no
// one polls the stats endpoint.
func refreshQueueMetrics(ctx context.Context, service *jobqueue.Service, logger *zerolog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := service.Stats(ctx); err != nil {
				logger.Error().Err(err).Msg("Failed to refresh queue metrics")
			}
		}
	}
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

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "job-service").Logger()
	return &logger
}

func setupMiddleware(router *gin.Engine, logger *zerolog.Logger) {
	router.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		end := time.Now()
		latency := end.Sub(start)

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Msg("HTTP request")
	})
}
