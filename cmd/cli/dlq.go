package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/streampulse/job-service/internal/jobqueue"
)

var (
	dlqJobType string
	dlqLimit   int
	dlqOffset  int
	dlqOutFile string
)

// dlqCmd groups dead-letter queue operations
var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect and export the dead-letter queue",
}

// dlqListCmd represents the dlq list command
var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dead-letter jobs",
	Example: `  job-service dlq list
  job-service dlq list --job-type upload --limit 20`,
	Args: cobra.NoArgs,
	RunE: runDLQList,
}

// dlqExportCmd represents the dlq export command
var dlqExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export dead-letter jobs to an XLSX report",
	Example: `  job-service dlq export --out dlq-report.xlsx
  job-service dlq export --job-type webhook --out webhook-failures.xlsx`,
	Args: cobra.NoArgs,
	RunE: runDLQExport,
}

func init() {
	rootCmd.AddCommand(dlqCmd)
	dlqCmd.AddCommand(dlqListCmd)
	dlqCmd.AddCommand(dlqExportCmd)

	dlqCmd.PersistentFlags().StringVar(&dlqJobType, "job-type", "", "Filter by job type")
	dlqCmd.PersistentFlags().IntVar(&dlqLimit, "limit", 50, "Maximum number of jobs")
	dlqCmd.PersistentFlags().IntVar(&dlqOffset, "offset", 0, "Number of jobs to skip")
	dlqExportCmd.Flags().StringVar(&dlqOutFile, "out", "dlq-report.xlsx", "Output file path")
}

func runDLQList(cmd *cobra.Command, args []string) error {
	service, _, err := newService()
	if err != nil {
		return err
	}

	jobs, total, err := service.ListDLQ(context.Background(), dlqJobType, dlqLimit, dlqOffset)
	if err != nil {
		return fmt.Errorf("failed to list DLQ jobs: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "JOB ID\tTYPE\tATTEMPTS\tREASON\tMOVED AT")
	fmt.Fprintln(w, "------\t----\t--------\t------\t--------")
	for _, job := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\t%s\n",
			job.ID, job.JobType, job.Attempts, job.MaxAttempts,
			stringOrDash(job.DLQReason), timeOrDash(job.MovedToDLQAt))
	}
	w.Flush()

	fmt.Printf("\n%d of %d dead-letter jobs\n", len(jobs), total)
	return nil
}

func runDLQExport(cmd *cobra.Command, args []string) error {
	service, _, err := newService()
	if err != nil {
		return err
	}

	jobs, _, err := service.ListDLQ(context.Background(), dlqJobType, dlqLimit, dlqOffset)
	if err != nil {
		return fmt.Errorf("failed to list DLQ jobs: %w", err)
	}
	if len(jobs) == 0 {
		fmt.Println("No dead-letter jobs to export")
		return nil
	}

	if err := writeDLQReport(dlqOutFile, jobs); err != nil {
		return err
	}

	logger.Info().Str("file", dlqOutFile).Int("jobs", len(jobs)).Msg("DLQ report written")
	return nil
}

func writeDLQReport(path string, jobs []*jobqueue.Job) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	headers := []string{"Job ID", "Job Type", "Priority", "Attempts", "Max Attempts", "Error", "DLQ Reason", "Moved To DLQ At", "Created At", "User ID", "Account ID"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, job := range jobs {
		values := []interface{}{
			job.ID,
			job.JobType,
			job.Priority,
			job.Attempts,
			job.MaxAttempts,
			stringOrDash(job.Error),
			stringOrDash(job.DLQReason),
			timeOrDash(job.MovedToDLQAt),
			job.CreatedAt.Format(time.RFC3339),
			stringOrDash(job.UserID),
			stringOrDash(job.AccountID),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return fmt.Errorf("failed to build cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row+2, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func stringOrDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func timeOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
