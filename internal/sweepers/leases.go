package sweepers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/streampulse/job-service/internal/jobqueue"
)

// LeaseSweeper reclaims jobs stuck in processing after a worker crash. A
// job past its claimed_until lease is failed through the normal service
// path, so it re-enters the retry/DLQ flow instead of hanging forever.
type LeaseSweeper struct {
	service  *jobqueue.Service
	logger   *zerolog.Logger
	interval time.Duration
	batch    int
	stopChan chan struct{}
}

// NewLeaseSweeper creates a sweeper that runs every interval.
func NewLeaseSweeper(service *jobqueue.Service, logger *zerolog.Logger, interval time.Duration, batch int) *LeaseSweeper {
	if batch < 1 {
		batch = 100
	}
	return &LeaseSweeper{
		service:  service,
		logger:   logger,
		interval: interval,
		batch:    batch,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic sweep. Blocks until the context is cancelled
// or Stop is called.
func (s *LeaseSweeper) Start(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Msg("Starting lease sweeper")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Lease sweeper stopping (context cancelled)")
			return
		case <-s.stopChan:
			s.logger.Info().Msg("Lease sweeper stopping (stop signal)")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Lease sweep failed")
			}
		}
	}
}

// Stop signals the sweeper to stop.
func (s *LeaseSweeper) Stop() {
	close(s.stopChan)
}

// Sweep runs one reclaim pass.
func (s *LeaseSweeper) Sweep(ctx context.Context) error {
	reclaimed, err := s.service.ReclaimExpired(ctx, s.batch)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		s.logger.Warn().
			Int("reclaimed", reclaimed).
			Msg("Reclaimed jobs with expired leases")
	}
	return nil
}
