package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	alertsUnackedOnly bool
	alertsLimit       int
	ackBy             string
)

// alertsCmd groups DLQ alert operations
var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List and acknowledge dead-letter alerts",
}

// alertsListCmd represents the alerts list command
var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dead-letter alerts",
	Example: `  job-service alerts list
  job-service alerts list --unacked`,
	Args: cobra.NoArgs,
	RunE: runAlertsList,
}

// alertsAckCmd represents the alerts ack command
var alertsAckCmd = &cobra.Command{
	Use:     "ack <alert-id>",
	Short:   "Acknowledge a dead-letter alert",
	Example: `  job-service alerts ack 3c1f...b2 --by oncall@streampulse.io`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAlertsAck,
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.AddCommand(alertsListCmd)
	alertsCmd.AddCommand(alertsAckCmd)

	alertsListCmd.Flags().BoolVar(&alertsUnackedOnly, "unacked", false, "Only unacknowledged alerts")
	alertsListCmd.Flags().IntVar(&alertsLimit, "limit", 50, "Maximum number of alerts")
	alertsAckCmd.Flags().StringVar(&ackBy, "by", "", "Acknowledger identity")
	alertsAckCmd.MarkFlagRequired("by")
}

func runAlertsList(cmd *cobra.Command, args []string) error {
	_, manager, err := newService()
	if err != nil {
		return err
	}

	alerts, total, err := manager.ListAlerts(context.Background(), alertsUnackedOnly, alertsLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list alerts: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ALERT ID\tJOB ID\tTYPE\tATTEMPTS\tACKED\tCREATED AT")
	fmt.Fprintln(w, "--------\t------\t----\t--------\t-----\t----------")
	for _, alert := range alerts {
		acked := "no"
		if alert.Acknowledged {
			acked = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			alert.ID, alert.JobID, alert.JobType, alert.Attempts,
			acked, alert.CreatedAt.Format(time.RFC3339))
	}
	w.Flush()

	fmt.Printf("\n%d of %d alerts\n", len(alerts), total)
	return nil
}

func runAlertsAck(cmd *cobra.Command, args []string) error {
	_, manager, err := newService()
	if err != nil {
		return err
	}

	alert, err := manager.Acknowledge(context.Background(), args[0], ackBy)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}

	logger.Info().
		Str("alert_id", alert.ID).
		Str("job_id", alert.JobID).
		Str("acknowledged_by", ackBy).
		Msg("Alert acknowledged")
	return nil
}
