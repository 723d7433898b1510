package evaluation

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for gate activity.
type Metrics struct {
	evaluations *prometheus.CounterVec
	degraded    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// Degradation reasons.
const (
	ReasonParse    = "parse"
	ReasonTimeout  = "timeout"
	ReasonUpstream = "upstream"
	ReasonOffline  = "offline"
)

// MustNewMetrics registers the gate collectors with reg, reusing collectors
// that are already registered. Other registration errors panic.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	evaluations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orbit",
			Subsystem: "evaluation",
			Name:      "total",
			Help:      "Completed evaluations by approval and risk level.",
		},
		[]string{"approved", "risk_level"},
	)
	degraded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orbit",
			Subsystem: "evaluation",
			Name:      "dimension_degraded_total",
			Help:      "Dimensions that fell back to their conservative default.",
		},
		[]string{"dimension", "reason"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "orbit",
			Subsystem: "evaluation",
			Name:      "dimension_seconds",
			Help:      "Time spent scoring each dimension.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"dimension"},
	)

	evaluations = register(reg, evaluations)
	degraded = register(reg, degraded)
	duration = register(reg, duration)

	return &Metrics{evaluations: evaluations, degraded: degraded, duration: duration}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) observeEvaluation(r *Result) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(strconv.FormatBool(r.Approved), string(r.RiskLevel)).Inc()
}

func (m *Metrics) observeDegraded(d Dimension, reason string) {
	if m == nil {
		return
	}
	m.degraded.WithLabelValues(string(d), reason).Inc()
}

func (m *Metrics) observeDuration(d Dimension, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(string(d)).Observe(elapsed.Seconds())
}
