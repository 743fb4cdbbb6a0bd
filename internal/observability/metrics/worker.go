package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	service  string
	registry *prometheus.Registry

	eventsTotal    *prometheus.CounterVec
	eventDuration  *prometheus.HistogramVec
	eventsInFlight prometheus.Gauge
	eventLag       *prometheus.HistogramVec
	auditScore     *prometheus.HistogramVec
	lastScore      *prometheus.GaugeVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "audit_events_total",
			Help:      "Total handled audit completion events by status.",
		},
		[]string{"service", "status"},
	)
	eventDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "audit_event_duration_seconds",
			Help:      "Audit event handling duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	eventsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "audit_events_in_flight",
			Help:      "Number of audit events being handled.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	eventLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "event_lag_seconds",
			Help:      "Delay between audit completion and event handling.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	auditScore := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "audit_score",
			Help:      "Overall scores of completed audits.",
			Buckets:   ScoreBuckets,
		},
		[]string{"service"},
	)
	lastScore := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "facility_last_score",
			Help:      "Overall score of the most recent completed audit per facility.",
		},
		[]string{"service", "facility_id"},
	)

	registry.MustRegister(eventsTotal, eventDuration, eventsInFlight, eventLag, auditScore, lastScore)

	return &WorkerMetrics{
		service:        service,
		registry:       registry,
		eventsTotal:    eventsTotal,
		eventDuration:  eventDuration,
		eventsInFlight: eventsInFlight,
		eventLag:       eventLag,
		auditScore:     auditScore,
		lastScore:      lastScore,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartEvent() {
	m.eventsInFlight.Inc()
}

func (m *WorkerMetrics) FinishEvent(duration time.Duration, err error) {
	m.eventsInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.eventsTotal.WithLabelValues(m.service, status).Inc()
	m.eventDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveEventLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.eventLag.WithLabelValues(m.service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) ObserveAuditScore(facilityID string, score float64) {
	m.auditScore.WithLabelValues(m.service).Observe(score)
	if facilityID != "" {
		m.lastScore.WithLabelValues(m.service, facilityID).Set(score)
	}
}
