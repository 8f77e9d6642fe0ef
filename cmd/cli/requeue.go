package main

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	requeueKeepAttempts bool
	requeueConcurrency  int
)

// requeueCmd represents the requeue command
var requeueCmd = &cobra.Command{
	Use:   "requeue <job-id> [job-id...]",
	Short: "Requeue jobs back into the queue",
	Long: `Force jobs back to the queued state. This is the only path out of the
dead-letter queue. Attempts are reset unless --keep-attempts is given.`,
	Example: `  job-service requeue 6f1c9a2e-...-d41d
  job-service requeue --keep-attempts 6f1c9a2e-...-d41d 8a2b7c3d-...-beef`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRequeue,
}

func init() {
	rootCmd.AddCommand(requeueCmd)

	requeueCmd.Flags().BoolVar(&requeueKeepAttempts, "keep-attempts", false, "Preserve the attempt counter instead of resetting it")
	requeueCmd.Flags().IntVar(&requeueConcurrency, "concurrency", 4, "Number of concurrent requeue operations")
}

func runRequeue(cmd *cobra.Command, args []string) error {
	service, _, err := newService()
	if err != nil {
		return err
	}

	var failed atomic.Int64
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(requeueConcurrency)

	for _, id := range args {
		id := id
		g.Go(func() error {
			job, err := service.Requeue(ctx, id, !requeueKeepAttempts)
			if err != nil {
				logger.Error().Err(err).Str("job_id", id).Msg("Requeue failed")
				failed.Add(1)
				return nil
			}
			if job == nil {
				logger.Warn().Str("job_id", id).Msg("Job is currently processing, skipped")
				failed.Add(1)
				return nil
			}
			logger.Info().
				Str("job_id", id).
				Str("job_type", job.JobType).
				Int("attempts", job.Attempts).
				Msg("Job requeued")
			return nil
		})
	}
	_ = g.Wait()

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d jobs could not be requeued", n, len(args))
	}
	return nil
}
