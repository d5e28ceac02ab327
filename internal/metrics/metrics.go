// Package metrics exposes prometheus instrumentation for the proxy.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JobsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediaboost_jobs_submitted_total",
		Help: "Enhancement jobs accepted for processing",
	}, []string{"kind"})

	JobFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediaboost_job_failures_total",
		Help: "Enhancement requests that failed, by pipeline stage",
	}, []string{"stage"})

	PartsUploaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediaboost_parts_uploaded_total",
		Help: "Multipart upload parts transferred successfully",
	})

	UploadedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediaboost_uploaded_bytes_total",
		Help: "Source bytes transferred to part destinations",
	})

	SubmitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mediaboost_submit_duration_seconds",
		Help:    "Time from video request arrival until the remote job is finalized",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	StatusPolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediaboost_status_polls_total",
		Help: "Status probes proxied to the remote API",
	})
)

// Handler serves the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
