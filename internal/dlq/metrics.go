package dlq

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// dlqAlertsCreated counts alerts generated per job type.
	dlqAlertsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobqueue_dlq_alerts_total",
		Help: "Total number of DLQ alerts created by job type",
	}, []string{"job_type"})
)
