package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"donorslot/internal/store"
)

// Metrics holds the booking service's Prometheus collectors.
type Metrics struct {
	// Create outcomes by result: "booked", "slot_taken", "too_soon", ...
	BookingOutcomes *prometheus.CounterVec

	// Cancellations by result
	Cancellations *prometheus.CounterVec

	// Store round-trip latency by backend, operation and outcome
	StoreLatency *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		BookingOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donorslot_booking_outcomes_total",
			Help: "Appointment create attempts by result",
		}, []string{"result"}),

		Cancellations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donorslot_cancellations_total",
			Help: "Appointment cancel attempts by result",
		}, []string{"result"}),

		StoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "donorslot_store_operation_duration_seconds",
			Help:    "Duration of appointment store operations",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"backend", "op", "outcome"}),
	}
}

// IncrementBookingOutcome records the result of one create call.
func (m *Metrics) IncrementBookingOutcome(result string) {
	if m != nil {
		m.BookingOutcomes.WithLabelValues(result).Inc()
	}
}

// IncrementCancellation records the result of one cancel call.
func (m *Metrics) IncrementCancellation(result string) {
	if m != nil {
		m.Cancellations.WithLabelValues(result).Inc()
	}
}

// ObserveStoreOp records one store call.
func (m *Metrics) ObserveStoreOp(backend, op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(err, store.ErrUnavailable) {
			outcome = "unavailable"
		}
	}
	m.StoreLatency.WithLabelValues(backend, op, outcome).Observe(d.Seconds())
}
