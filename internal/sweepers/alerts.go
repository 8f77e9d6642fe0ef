// Package sweepers contains the periodic maintenance loops: DLQ alert
// generation for jobs the inline path missed, and lease reclaim for jobs
// stuck in processing after a worker crash.
package sweepers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/streampulse/job-service/internal/dlq"
)

// AlertSweeper periodically generates alerts for DLQ jobs whose inline
// alert was missed (crash recovery).
type AlertSweeper struct {
	manager  *dlq.Manager
	logger   *zerolog.Logger
	interval time.Duration
	batch    int
	stopChan chan struct{}
}

// NewAlertSweeper creates a sweeper that runs every interval.
func NewAlertSweeper(manager *dlq.Manager, logger *zerolog.Logger, interval time.Duration, batch int) *AlertSweeper {
	if batch < 1 {
		batch = 100
	}
	return &AlertSweeper{
		manager:  manager,
		logger:   logger,
		interval: interval,
		batch:    batch,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic sweep. Blocks until the context is cancelled
// or Stop is called.
func (s *AlertSweeper) Start(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Msg("Starting DLQ alert sweeper")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("DLQ alert sweeper stopping (context cancelled)")
			return
		case <-s.stopChan:
			s.logger.Info().Msg("DLQ alert sweeper stopping (stop signal)")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("DLQ alert sweep failed")
			}
		}
	}
}

// Stop signals the sweeper to stop.
func (s *AlertSweeper) Stop() {
	close(s.stopChan)
}

// Sweep runs one pass of pending-alert processing.
func (s *AlertSweeper) Sweep(ctx context.Context) error {
	alerts, err := s.manager.ProcessPendingAlerts(ctx, s.batch)
	if err != nil {
		return err
	}
	if len(alerts) > 0 {
		s.logger.Info().
			Int("count", len(alerts)).
			Msg("Generated DLQ alerts")
	}
	return nil
}
