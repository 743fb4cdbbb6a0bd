package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hse"

// ScoreBuckets cover the 0..100 audit score range.
var ScoreBuckets = []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

type HTTPServerMetrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	answersSavedTotal       *prometheus.CounterVec
	validationFailuresTotal *prometheus.CounterVec
	completionsTotal        *prometheus.CounterVec
	completionScore         *prometheus.HistogramVec
	publishRetriesTotal     *prometheus.CounterVec
	breakerState            *prometheus.GaugeVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	answersSavedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "answers_saved_total",
			Help:      "Total accepted answers by kind.",
		},
		[]string{"service", "kind"},
	)
	validationFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "answer_validation_failures_total",
			Help:      "Total rejected answers by reason.",
		},
		[]string{"service", "reason"},
	)
	completionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "completions_total",
			Help:      "Total completion attempts by outcome.",
		},
		[]string{"service", "outcome"},
	)
	completionScore := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "completion_score",
			Help:      "Distribution of overall scores of completed audits.",
			Buckets:   ScoreBuckets,
		},
		[]string{"service"},
	)
	publishRetriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "retries_total",
			Help:      "Total retried calls by operation.",
		},
		[]string{"service", "operation"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_open",
			Help:      "1 while the circuit breaker of an operation is not closed.",
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		answersSavedTotal,
		validationFailuresTotal,
		completionsTotal,
		completionScore,
		publishRetriesTotal,
		breakerState,
	)

	return &HTTPServerMetrics{
		service:                 service,
		registry:                registry,
		requestTotal:            requestTotal,
		requestDuration:         requestDuration,
		requestInFlight:         requestInFlight,
		answersSavedTotal:       answersSavedTotal,
		validationFailuresTotal: validationFailuresTotal,
		completionsTotal:        completionsTotal,
		completionScore:         completionScore,
		publishRetriesTotal:     publishRetriesTotal,
		breakerState:            breakerState,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses audit ids so label cardinality stays bounded.
func normalizePath(path string) string {
	rest, ok := strings.CutPrefix(path, "/v1/audits/")
	if !ok || rest == "" {
		return path
	}
	id, action, hasAction := strings.Cut(rest, "/")
	if id == "" {
		return path
	}
	if !hasAction {
		return "/v1/audits/{audit_id}"
	}
	return "/v1/audits/{audit_id}/" + action
}

func (m *HTTPServerMetrics) RecordAnswerSaved(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	m.answersSavedTotal.WithLabelValues(m.service, kind).Inc()
}

func (m *HTTPServerMetrics) RecordValidationFailure(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.validationFailuresTotal.WithLabelValues(m.service, reason).Inc()
}

// RecordCompletion counts one completion attempt. The score is observed only
// for successful completions.
func (m *HTTPServerMetrics) RecordCompletion(outcome string, score float64) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.completionsTotal.WithLabelValues(m.service, outcome).Inc()
	if outcome == "completed" {
		m.completionScore.WithLabelValues(m.service).Observe(score)
	}
}

func (m *HTTPServerMetrics) ObserveRetry(operation string) {
	m.publishRetriesTotal.WithLabelValues(m.service, operation).Inc()
}

func (m *HTTPServerMetrics) ObserveBreakerState(operation, state string) {
	open := 0.0
	if state != "closed" {
		open = 1
	}
	m.breakerState.WithLabelValues(m.service, operation).Set(open)
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
