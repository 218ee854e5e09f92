package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the verification service.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	verificationsTotal   *prometheus.CounterVec
	qualityRejectsTotal  *prometheus.CounterVec
	visionCallsTotal     *prometheus.CounterVec
	visionCallDuration   *prometheus.HistogramVec
	auditEntriesTotal    *prometheus.CounterVec
	voiceExtractionTotal *prometheus.CounterVec
}

func New(service string) *Metrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kyc",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kyc",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kyc",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	verificationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kyc",
			Subsystem: "pipeline",
			Name:      "verifications_total",
			Help:      "Full verification decisions by outcome.",
		},
		[]string{"service", "outcome"},
	)
	qualityRejectsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kyc",
			Subsystem: "pipeline",
			Name:      "quality_rejects_total",
			Help:      "Frames rejected by the quality gate, by issue.",
		},
		[]string{"service", "issue"},
	)
	visionCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kyc",
			Subsystem: "vision",
			Name:      "calls_total",
			Help:      "Remote vision calls by operation and outcome.",
		},
		[]string{"service", "operation", "outcome"},
	)
	visionCallDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kyc",
			Subsystem: "vision",
			Name:      "call_duration_seconds",
			Help:      "Remote vision call duration in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"service", "operation"},
	)
	auditEntriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kyc",
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Audit entries appended, by step and status.",
		},
		[]string{"service", "step", "status"},
	)
	voiceExtractionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kyc",
			Subsystem: "voice",
			Name:      "extractions_total",
			Help:      "Voice field extractions, by field and outcome.",
		},
		[]string{"service", "field", "outcome"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		verificationsTotal,
		qualityRejectsTotal,
		visionCallsTotal,
		visionCallDuration,
		auditEntriesTotal,
		voiceExtractionTotal,
	)

	return &Metrics{
		registry:             registry,
		requestTotal:         requestTotal.MustCurryWith(prometheus.Labels{"service": service}),
		requestDuration:      requestDuration.MustCurryWith(prometheus.Labels{"service": service}).(*prometheus.HistogramVec),
		requestInFlight:      requestInFlight,
		verificationsTotal:   verificationsTotal.MustCurryWith(prometheus.Labels{"service": service}),
		qualityRejectsTotal:  qualityRejectsTotal.MustCurryWith(prometheus.Labels{"service": service}),
		visionCallsTotal:     visionCallsTotal.MustCurryWith(prometheus.Labels{"service": service}),
		visionCallDuration:   visionCallDuration.MustCurryWith(prometheus.Labels{"service": service}).(*prometheus.HistogramVec),
		auditEntriesTotal:    auditEntriesTotal.MustCurryWith(prometheus.Labels{"service": service}),
		voiceExtractionTotal: voiceExtractionTotal.MustCurryWith(prometheus.Labels{"service": service}),
	}
}

// Handler serves the metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	m.requestTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (m *Metrics) RequestStarted() { m.requestInFlight.Inc() }
func (m *Metrics) RequestDone()    { m.requestInFlight.Dec() }

func (m *Metrics) ObserveVerification(approved bool) {
	outcome := "rejected"
	if approved {
		outcome = "approved"
	}
	m.verificationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveQualityReject(issue string) {
	m.qualityRejectsTotal.WithLabelValues(issue).Inc()
}

func (m *Metrics) ObserveVisionCall(operation string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.visionCallsTotal.WithLabelValues(operation, outcome).Inc()
	m.visionCallDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveAuditEntry(step, status string) {
	m.auditEntriesTotal.WithLabelValues(step, status).Inc()
}

func (m *Metrics) ObserveVoiceExtraction(field, outcome string) {
	m.voiceExtractionTotal.WithLabelValues(field, outcome).Inc()
}
