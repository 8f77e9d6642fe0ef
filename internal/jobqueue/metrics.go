package jobqueue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// jobsEnqueued counts jobs accepted into the queue.
	jobsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobqueue_jobs_enqueued_total",
		Help: "Total number of jobs enqueued by job type",
	}, []string{"job_type"})

	// jobsClaimed counts successful claims.
	jobsClaimed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobqueue_jobs_claimed_total",
		Help: "Total number of jobs claimed by job type",
	}, []string{"job_type"})

	// jobsCompleted counts successful completions.
	jobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobqueue_jobs_completed_total",
		Help: "Total number of jobs completed by job type",
	}, []string{"job_type"})

	// jobsFailed counts failure reports by outcome (retry or dlq).
	jobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobqueue_jobs_failed_total",
		Help: "Total number of job failures by job type and outcome",
	}, []string{"job_type", "outcome"})

	// jobsRequeued counts operator requeues.
	jobsRequeued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobqueue_jobs_requeued_total",
		Help: "Total number of manual requeues by job type",
	}, []string{"job_type"})

	// leasesReclaimed counts processing jobs recovered after lease expiry.
	leasesReclaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobqueue_leases_reclaimed_total",
		Help: "Total number of jobs reclaimed after an expired worker lease",
	})

	// jobDuration tracks wall time from claim to completion or failure.
	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jobqueue_job_duration_seconds",
		Help:    "Time from claim to completion or failure by job type",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 1800},
	}, []string{"job_type"})

	// queueDepth is refreshed from Stats by the server's gauge ticker.
	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "jobqueue_depth",
		Help: "Number of jobs by status",
	}, []string{"status"})
)

// RecordStats publishes aggregate counts as gauges.
func RecordStats(stats *QueueStats) {
	queueDepth.WithLabelValues(string(StatusQueued)).Set(float64(stats.QueuedDepth))
	queueDepth.WithLabelValues(string(StatusProcessing)).Set(float64(stats.Processing))
	queueDepth.WithLabelValues(string(StatusCompleted)).Set(float64(stats.Completed))
	queueDepth.WithLabelValues(string(StatusFailed)).Set(float64(stats.Failed))
	queueDepth.WithLabelValues(string(StatusDLQ)).Set(float64(stats.DLQCount))
}

func observeJobDuration(job *Job, end time.Time) {
	if job.StartedAt == nil {
		return
	}
	jobDuration.WithLabelValues(job.JobType).Observe(end.Sub(*job.StartedAt).Seconds())
}
