package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show queue statistics",
	Long:    `Display aggregate job counts per status: queue depth, retries pending, processing, completed, failed, and dead-lettered.`,
	Example: `  job-service stats`,
	Args:    cobra.NoArgs,
	RunE:    runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	service, _, err := newService()
	if err != nil {
		return err
	}

	stats, err := service.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("failed to fetch stats: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "METRIC\tCOUNT")
	fmt.Fprintln(w, "------\t-----")
	fmt.Fprintf(w, "queued\t%d\n", stats.QueuedDepth)
	fmt.Fprintf(w, "retry pending\t%d\n", stats.RetryPending)
	fmt.Fprintf(w, "processing\t%d\n", stats.Processing)
	fmt.Fprintf(w, "completed\t%d\n", stats.Completed)
	fmt.Fprintf(w, "failed\t%d\n", stats.Failed)
	fmt.Fprintf(w, "dlq\t%d\n", stats.DLQCount)
	fmt.Fprintf(w, "total\t%d\n", stats.Total)
	w.Flush()

	return nil
}
