package queue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepilot_queue_jobs_total",
		Help: "Processed queue jobs by type and result",
	}, []string{"type", "result"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradepilot_queue_job_duration_seconds",
		Help:    "Queue job handling time",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"type"})

	jobsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepilot_queue_enqueued_total",
		Help: "Messages accepted by the queue",
	}, []string{"type", "backend"})
)

func observeJob(msgType string, started time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	jobsProcessed.WithLabelValues(msgType, result).Inc()
	jobDuration.WithLabelValues(msgType).Observe(time.Since(started).Seconds())
}
