package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type RoundMetrics struct {
	operations *prometheus.CounterVec
	callbacks  *prometheus.CounterVec
	requests   *prometheus.CounterVec
	attendees  prometheus.Gauge
	prizes     prometheus.Gauge
}

var (
	roundOnce     sync.Once
	roundRegistry *RoundMetrics
)

// Round returns the process-wide round metrics, registering them on first use.
func Round() *RoundMetrics {
	roundOnce.Do(func() {
		roundRegistry = &RoundMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "luckyroll_operations_total",
				Help: "Count of round operations by action and result.",
			}, []string{"action", "result"}),
			callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "luckyroll_oracle_callbacks_total",
				Help: "Count of oracle callbacks by job kind and outcome.",
			}, []string{"job", "outcome"}),
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "luckyroll_randomness_requests_total",
				Help: "Count of randomness requests emitted by job kind.",
			}, []string{"job"}),
			attendees: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "luckyroll_attendees",
				Help: "Attendees registered in the current round.",
			}),
			prizes: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "luckyroll_prizes",
				Help: "Prizes configured for the current round.",
			}),
		}
		prometheus.MustRegister(
			roundRegistry.operations,
			roundRegistry.callbacks,
			roundRegistry.requests,
			roundRegistry.attendees,
			roundRegistry.prizes,
		)
	})
	return roundRegistry
}

func (m *RoundMetrics) ObserveOperation(action string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(action, result).Inc()
}

func (m *RoundMetrics) ObserveCallback(job, outcome string) {
	if m == nil {
		return
	}
	m.callbacks.WithLabelValues(job, outcome).Inc()
}

func (m *RoundMetrics) ObserveRequest(job string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(job).Inc()
}

func (m *RoundMetrics) SetAttendees(n int) {
	if m == nil {
		return
	}
	m.attendees.Set(float64(n))
}

func (m *RoundMetrics) AddAttendee() {
	if m == nil {
		return
	}
	m.attendees.Inc()
}

func (m *RoundMetrics) SetPrizes(n int) {
	if m == nil {
		return
	}
	m.prizes.Set(float64(n))
}
