// Package metrics exposes the Prometheus instrumentation for the scan
// pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// JobsProcessed counts finished jobs by outcome: ingested, review,
	// requeued, failed.
	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cardscan",
		Name:      "jobs_processed_total",
		Help:      "Scan jobs processed, labeled by outcome.",
	}, []string{"outcome"})

	// JobDuration tracks end-to-end processing time per job.
	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cardscan",
		Name:      "job_duration_seconds",
		Help:      "End-to-end scan job processing duration.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	// OCRAttempts counts individual recognition passes by crop kind and
	// whether the pass produced usable text.
	OCRAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cardscan",
		Name:      "ocr_attempts_total",
		Help:      "Individual OCR passes, labeled by crop kind and result.",
	}, []string{"kind", "result"})

	// OCRAttemptDuration tracks per-pass recognition latency.
	OCRAttemptDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cardscan",
		Name:      "ocr_attempt_duration_seconds",
		Help:      "Single OCR pass duration, labeled by crop kind.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"kind"})

	// CatalogPages counts pages fetched from the printing catalog.
	CatalogPages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cardscan",
		Name:      "catalog_pages_fetched_total",
		Help:      "Printing catalog result pages fetched.",
	})

	// QueueDepth reports the number of jobs currently queued.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cardscan",
		Name:      "queue_depth",
		Help:      "Jobs currently waiting in the queue.",
	})
)

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
