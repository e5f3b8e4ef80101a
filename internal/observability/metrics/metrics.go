package metrics

import "github.com/prometheus/client_golang/prometheus"

// JourneyMetrics exposes counters/histograms for booking journeys.
type JourneyMetrics struct {
	outcomesTotal      *prometheus.CounterVec
	availabilityTotal  *prometheus.CounterVec
	stepLatencySeconds *prometheus.HistogramVec
}

func NewJourneyMetrics(reg prometheus.Registerer) *JourneyMetrics {
	m := &JourneyMetrics{
		outcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "videolink",
			Subsystem: "journey",
			Name:      "outcomes_total",
			Help:      "Terminal journey outcomes",
		}, []string{"kind", "mode", "outcome"}),
		availabilityTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "videolink",
			Subsystem: "journey",
			Name:      "availability_checks_total",
			Help:      "Availability check results",
		}, []string{"kind", "result"}),
		stepLatencySeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "videolink",
			Subsystem: "journey",
			Name:      "step_latency_seconds",
			Help:      "Latency of journey step submissions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.outcomesTotal, m.availabilityTotal, m.stepLatencySeconds)
	return m
}

func (m *JourneyMetrics) ObserveOutcome(kind, mode, outcome string) {
	if m == nil {
		return
	}
	m.outcomesTotal.WithLabelValues(kind, mode, outcome).Inc()
}

func (m *JourneyMetrics) ObserveAvailability(kind string, ok bool) {
	if m == nil {
		return
	}
	result := "available"
	if !ok {
		result = "unavailable"
	}
	m.availabilityTotal.WithLabelValues(kind, result).Inc()
}

func (m *JourneyMetrics) ObserveStepLatency(step string, seconds float64) {
	if m == nil {
		return
	}
	m.stepLatencySeconds.WithLabelValues(step).Observe(seconds)
}
