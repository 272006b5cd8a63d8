package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records ingestion, query and upstream resilience events.
// It satisfies both usecase.Observer and resilience.Observer.
type PipelineMetrics struct {
	service string

	ingestTotal     *prometheus.CounterVec
	ingestDuration  prometheus.Histogram
	ingestChunks    prometheus.Histogram
	unembeddedTotal prometheus.Counter
	queryTotal      *prometheus.CounterVec
	queryDuration   prometheus.Histogram
	retrievedChunks prometheus.Histogram
	retryTotal      *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
}

func NewPipelineMetrics(service string, registerer prometheus.Registerer) *PipelineMetrics {
	constLabels := prometheus.Labels{"service": service}

	m := &PipelineMetrics{
		service: service,
		ingestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "ingest",
			Name:        "documents_total",
			Help:        "Document ingestions by media type or failed stage.",
			ConstLabels: constLabels,
		}, []string{"status", "label"}),
		ingestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "ingest",
			Name:        "duration_seconds",
			Help:        "Extraction, chunking and embedding time per document.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			ConstLabels: constLabels,
		}),
		ingestChunks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "ingest",
			Name:        "chunks",
			Help:        "Chunks produced per document.",
			Buckets:     prometheus.ExponentialBuckets(1, 2, 12),
			ConstLabels: constLabels,
		}),
		unembeddedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "ingest",
			Name:        "unembedded_chunks_total",
			Help:        "Chunks stored without an embedding after a per-chunk failure.",
			ConstLabels: constLabels,
		}),
		queryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "query",
			Name:        "requests_total",
			Help:        "Questions answered or failed by stage.",
			ConstLabels: constLabels,
		}, []string{"status", "stage"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "query",
			Name:        "duration_seconds",
			Help:        "Retrieval plus generation time per question.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}),
		retrievedChunks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "query",
			Name:        "retrieved_chunks",
			Help:        "Chunks handed to the generator per question.",
			Buckets:     []float64{0, 1, 2, 3, 5, 8, 13, 21},
			ConstLabels: constLabels,
		}),
		retryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "upstream",
			Name:        "retries_total",
			Help:        "Retried upstream calls by operation.",
			ConstLabels: constLabels,
		}, []string{"operation"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "upstream",
			Name:        "breaker_open",
			Help:        "1 while the circuit breaker of an operation is open, 0.5 while half-open.",
			ConstLabels: constLabels,
		}, []string{"operation"}),
	}

	registerer.MustRegister(
		m.ingestTotal,
		m.ingestDuration,
		m.ingestChunks,
		m.unembeddedTotal,
		m.queryTotal,
		m.queryDuration,
		m.retrievedChunks,
		m.retryTotal,
		m.breakerState,
	)
	return m
}

func (m *PipelineMetrics) IngestCompleted(mediaType string, chunks, embedded int, elapsed time.Duration) {
	if mediaType == "" {
		mediaType = "unknown"
	}
	m.ingestTotal.WithLabelValues("success", mediaType).Inc()
	m.ingestDuration.Observe(elapsed.Seconds())
	m.ingestChunks.Observe(float64(chunks))
	if missing := chunks - embedded; missing > 0 {
		m.unembeddedTotal.Add(float64(missing))
	}
}

func (m *PipelineMetrics) IngestFailed(stage string) {
	m.ingestTotal.WithLabelValues("error", stage).Inc()
}

func (m *PipelineMetrics) QueryCompleted(retrieved int, elapsed time.Duration) {
	m.queryTotal.WithLabelValues("success", "").Inc()
	m.queryDuration.Observe(elapsed.Seconds())
	m.retrievedChunks.Observe(float64(retrieved))
}

func (m *PipelineMetrics) QueryFailed(stage string) {
	m.queryTotal.WithLabelValues("error", stage).Inc()
}

func (m *PipelineMetrics) RetryAttempt(operation string) {
	m.retryTotal.WithLabelValues(operation).Inc()
}

func (m *PipelineMetrics) BreakerStateChange(operation, state string) {
	var value float64
	switch state {
	case "open":
		value = 1
	case "half-open":
		value = 0.5
	}
	m.breakerState.WithLabelValues(operation).Set(value)
}
