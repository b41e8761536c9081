package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfextract",
			Name:      "pages_processed_total",
			Help:      "Total pages processed by result",
		},
		[]string{"result"},
	)

	imagesExtracted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfextract",
			Name:      "images_extracted_total",
			Help:      "Total images written to the image store by result",
		},
		[]string{"result"},
	)

	objectsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfextract",
			Name:      "objects_skipped_total",
			Help:      "Content objects skipped during assembly by reason (decode, save, text)",
		},
		[]string{"reason"},
	)

	extractDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pdfextract",
			Name:      "extract_duration_seconds",
			Help:      "Duration of whole-document extractions",
			Buckets:   prometheus.DefBuckets,
		},
	)

	jobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfextract",
			Name:      "jobs_processed_total",
			Help:      "Async extraction jobs by result (success, failed, cancelled)",
		},
		[]string{"result"},
	)

	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "pdfextract",
			Name:      "queue_depth",
			Help:      "Queue depth gauges for stream, delayed and dlq",
		},
		[]string{"type"},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(pagesProcessed, imagesExtracted, objectsSkipped, extractDuration, jobsProcessed, queueDepth)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func IncPageProcessed(result string)  { pagesProcessed.WithLabelValues(result).Inc() }
func IncImageExtracted(result string) { imagesExtracted.WithLabelValues(result).Inc() }
func IncObjectSkipped(reason string)  { objectsSkipped.WithLabelValues(reason).Inc() }
func IncJobProcessed(result string)   { jobsProcessed.WithLabelValues(result).Inc() }

func ObserveExtract(dur time.Duration) { extractDuration.Observe(dur.Seconds()) }

func SetQueueDepth(kind string, v int64) { queueDepth.WithLabelValues(kind).Set(float64(v)) }
