package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	documentsTotal      *prometheus.CounterVec
	extractedChars      prometheus.Histogram
	analysisDuration    prometheus.Histogram
	questionsTotal      *prometheus.CounterVec
	partialBatchTotal   *prometheus.CounterVec
	sourceFallbackTotal *prometheus.CounterVec
	sessions            prometheus.Gauge
}

func New(service string) *Metrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "docuquest",
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "Total HTTP requests processed.",
			ConstLabels: constLabels,
		},
		[]string{"method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "docuquest",
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"method", "path"},
	)
	documentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "docuquest",
			Subsystem:   "ingest",
			Name:        "documents_total",
			Help:        "Documents ingested by outcome (created, reused, rejected).",
			ConstLabels: constLabels,
		},
		[]string{"outcome"},
	)
	extractedChars := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "docuquest",
			Subsystem:   "ingest",
			Name:        "extracted_characters",
			Help:        "Characters of text extracted per upload.",
			Buckets:     prometheus.ExponentialBuckets(64, 4, 8),
			ConstLabels: constLabels,
		},
	)
	analysisDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "docuquest",
			Subsystem:   "ingest",
			Name:        "analysis_duration_seconds",
			Help:        "Content analysis duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
	)
	questionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "docuquest",
			Subsystem:   "quiz",
			Name:        "questions_total",
			Help:        "Questions issued by difficulty and request kind.",
			ConstLabels: constLabels,
		},
		[]string{"difficulty", "kind"},
	)
	partialBatchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "docuquest",
			Subsystem:   "quiz",
			Name:        "partial_batches_total",
			Help:        "Batches that returned fewer questions than requested.",
			ConstLabels: constLabels,
		},
		[]string{"difficulty"},
	)
	sourceFallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "docuquest",
			Subsystem:   "quiz",
			Name:        "source_fallback_total",
			Help:        "Batches served by the heuristic generator instead of the model source.",
			ConstLabels: constLabels,
		},
		[]string{"reason"},
	)
	sessions := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "docuquest",
			Subsystem:   "session",
			Name:        "live",
			Help:        "Document sessions held in memory.",
			ConstLabels: constLabels,
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		documentsTotal,
		extractedChars,
		analysisDuration,
		questionsTotal,
		partialBatchTotal,
		sourceFallbackTotal,
		sessions,
	)

	return &Metrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		documentsTotal:      documentsTotal,
		extractedChars:      extractedChars,
		analysisDuration:    analysisDuration,
		questionsTotal:      questionsTotal,
		partialBatchTotal:   partialBatchTotal,
		sourceFallbackTotal: sourceFallbackTotal,
		sessions:            sessions,
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(r.Method, path, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath maps a request path onto its route pattern so label
// cardinality stays bounded. Anything that is not a route becomes "other".
func normalizePath(path string) string {
	switch path {
	case "/healthz", "/metrics", "/documents":
		return path
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if parts[0] != "documents" || len(parts) < 2 || parts[1] == "" {
		return "other"
	}
	switch {
	case len(parts) == 2:
		return "/documents/{document_id}"
	case len(parts) == 3 && parts[2] == "stats":
		return "/documents/{document_id}/stats"
	case len(parts) == 4 && parts[2] == "questions":
		return "/documents/{document_id}/questions/{difficulty}"
	case len(parts) == 5 && parts[2] == "questions" && parts[4] == "more":
		return "/documents/{document_id}/questions/{difficulty}/more"
	}
	return "other"
}

func (m *Metrics) RecordDocument(outcome string, extractedChars int) {
	m.documentsTotal.WithLabelValues(outcome).Inc()
	m.extractedChars.Observe(float64(extractedChars))
}

func (m *Metrics) RecordAnalysis(d time.Duration) {
	m.analysisDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordBatch(difficulty, kind string, requested, generated int) {
	if generated > 0 {
		m.questionsTotal.WithLabelValues(difficulty, kind).Add(float64(generated))
	}
	if generated < requested {
		m.partialBatchTotal.WithLabelValues(difficulty).Inc()
	}
}

func (m *Metrics) RecordFallback(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.sourceFallbackTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetSessions(n int) {
	m.sessions.Set(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
