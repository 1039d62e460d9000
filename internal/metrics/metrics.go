// Package metrics exposes Prometheus collectors for the outreach service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	outreachJobsTotal          *prometheus.CounterVec
	outreachStageSeconds       *prometheus.HistogramVec
	outreachStageFailuresTotal *prometheus.CounterVec
	outreachQueueDepth         prometheus.Gauge
	outreachActiveWorkers      prometheus.Gauge
	outreachRecoveredJobsTotal prometheus.Counter
	outreachRetriesTotal       prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		outreachJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_jobs_total",
				Help: "Total number of jobs finished, labeled by terminal status.",
			},
			[]string{"status"},
		)

		outreachStageSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "outreach_stage_duration_seconds",
				Help:    "Histogram of pipeline stage durations, labeled by stage.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"stage"},
		)

		outreachStageFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_stage_failures_total",
				Help: "Total number of stage failures, labeled by stage.",
			},
			[]string{"stage"},
		)

		outreachQueueDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "outreach_queue_depth",
				Help: "Number of jobs currently waiting in the dispatch queue.",
			},
		)

		outreachActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "outreach_active_workers",
				Help: "Number of workers currently processing a job.",
			},
		)

		outreachRecoveredJobsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "outreach_recovered_jobs_total",
				Help: "Total number of jobs failed by the startup recovery sweep.",
			},
		)

		outreachRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "outreach_retries_total",
				Help: "Total number of jobs re-enqueued by the retry controller.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveJob increments the job counter for the given terminal status.
func ObserveJob(status string) {
	outreachJobsTotal.WithLabelValues(status).Inc()
}

// ObserveStage records the duration of a completed pipeline stage.
func ObserveStage(stage string, duration time.Duration) {
	outreachStageSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveStageFailure increments the failure counter for the given stage.
func ObserveStageFailure(stage string) {
	outreachStageFailuresTotal.WithLabelValues(stage).Inc()
}

// SetQueueDepth records the current dispatch queue depth.
func SetQueueDepth(depth int) {
	outreachQueueDepth.Set(float64(depth))
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	outreachActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	outreachActiveWorkers.Dec()
}

// ObserveRecoveredJobs adds to the recovery sweep counter.
func ObserveRecoveredJobs(count int) {
	if count > 0 {
		outreachRecoveredJobsTotal.Add(float64(count))
	}
}

// ObserveRetry increments the retry counter.
func ObserveRetry() {
	outreachRetriesTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
