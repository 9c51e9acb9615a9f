// Package metrics exposes Prometheus instrumentation for the transcription
// pipeline. Collectors register against the default registry and are served
// by the /metrics endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcriptor_jobs_started_total",
		Help: "Transcription jobs handed to a worker, by source type.",
	}, []string{"source"})

	jobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcriptor_jobs_finished_total",
		Help: "Finished transcription jobs, by terminal status.",
	}, []string{"status"})

	jobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transcriptor_jobs_in_flight",
		Help: "Transcription jobs currently being processed.",
	})

	jobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "transcriptor_job_duration_seconds",
		Help:    "Wall-clock processing time per job.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	pollAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "transcriptor_poll_attempts",
		Help:    "Remote status polls needed per transcription.",
		Buckets: prometheus.LinearBuckets(1, 5, 12),
	})
)

// JobStarted records a job entering processing.
func JobStarted(source string) {
	jobsStarted.WithLabelValues(source).Inc()
	jobsInFlight.Inc()
}

// JobFinished records a terminal transition and how long processing took.
func JobFinished(status string, took time.Duration) {
	jobsFinished.WithLabelValues(status).Inc()
	jobsInFlight.Dec()
	jobDuration.Observe(took.Seconds())
}

// ObservePollAttempts records how many status polls a transcription needed
// before reaching a terminal outcome.
func ObservePollAttempts(n int) {
	pollAttempts.Observe(float64(n))
}
