package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's collectors. All methods are safe on a nil
// receiver so services can run without instrumentation in tests.
type Metrics struct {
	// Access decisions by outcome ("granted"/"denied") and method
	Decisions *prometheus.CounterVec

	DecisionLatency prometheus.Histogram

	// Enrollment handshake resolutions by result ("completed", "failed") and reason
	Enrollments *prometheus.CounterVec

	// Cascade deletes by root entity and result ("complete"/"incomplete")
	Cascades *prometheus.CounterVec

	// Events dropped because a subscriber's buffer was full
	DroppedEvents prometheus.Counter

	Subscribers prometheus.Gauge
}

// New registers every collector on reg. Passing a fresh registry per test
// avoids duplicate-registration panics.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "janus_access_decisions_total",
			Help: "Access decisions by outcome and verification method",
		}, []string{"outcome", "method"}),

		DecisionLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "janus_access_decision_duration_seconds",
			Help:    "Duration of an access decision including the audit write",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),

		Enrollments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "janus_enrollments_total",
			Help: "Resolved enrollment handshakes by result and failure reason",
		}, []string{"result", "reason"}),

		Cascades: f.NewCounterVec(prometheus.CounterOpts{
			Name: "janus_cascade_deletes_total",
			Help: "Cascade deletions by root entity and result",
		}, []string{"entity", "result"}),

		DroppedEvents: f.NewCounter(prometheus.CounterOpts{
			Name: "janus_notify_dropped_events_total",
			Help: "Events dropped for slow subscribers",
		}),

		Subscribers: f.NewGauge(prometheus.GaugeOpts{
			Name: "janus_notify_subscribers",
			Help: "Currently attached event subscribers",
		}),
	}
}

func (m *Metrics) ObserveDecision(authorized bool, method string, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "denied"
	if authorized {
		outcome = "granted"
	}
	m.Decisions.WithLabelValues(outcome, method).Inc()
	m.DecisionLatency.Observe(d.Seconds())
}

func (m *Metrics) IncEnrollment(result, reason string) {
	if m != nil {
		m.Enrollments.WithLabelValues(result, reason).Inc()
	}
}

func (m *Metrics) IncCascade(entity string, complete bool) {
	if m == nil {
		return
	}
	result := "complete"
	if !complete {
		result = "incomplete"
	}
	m.Cascades.WithLabelValues(entity, result).Inc()
}

func (m *Metrics) IncDropped() {
	if m != nil {
		m.DroppedEvents.Inc()
	}
}

func (m *Metrics) AddSubscribers(delta float64) {
	if m != nil {
		m.Subscribers.Add(delta)
	}
}
