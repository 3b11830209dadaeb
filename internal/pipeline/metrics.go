package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics bundles the pipeline instrumentation so tests can observe a
// single handle instead of package globals.
type metrics struct {
	invoicesTotal *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	fallbacksUsed *prometheus.CounterVec
	retriesTotal  prometheus.Counter
	lineItemCount prometheus.Histogram
	confidence    prometheus.Histogram
}

var pipelineMetrics = &metrics{
	invoicesTotal: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finvoice_invoices_total",
			Help: "Total number of invoices processed",
		},
		[]string{"status"}, // status: done, error
	),

	stageDuration: promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finvoice_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"}, // stage: ocr, parsing, validation
	),

	fallbacksUsed: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finvoice_fallbacks_total",
			Help: "Total number of deterministic fallback activations",
		},
		[]string{"component"}, // component: extractor, agent
	),

	retriesTotal: promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "finvoice_ocr_retries_total",
			Help: "Total number of OCR retry attempts",
		},
	),

	lineItemCount: promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "finvoice_line_items_extracted",
			Help:    "Number of line items extracted per invoice",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	),

	confidence: promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "finvoice_overall_confidence",
			Help:    "Overall confidence score per invoice",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	),
}

func (m *metrics) observeStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (m *metrics) countInvoice(status string) {
	if m == nil {
		return
	}
	m.invoicesTotal.WithLabelValues(status).Inc()
}

func (m *metrics) countFallback(component string) {
	if m == nil {
		return
	}
	m.fallbacksUsed.WithLabelValues(component).Inc()
}

func (m *metrics) observeResult(r *Result) {
	if m == nil || r == nil {
		return
	}
	if r.StructuredInvoice != nil {
		m.lineItemCount.Observe(float64(len(r.StructuredInvoice.LineItems)))
	}
	m.confidence.Observe(r.Confidence)
}
