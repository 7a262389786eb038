// Package metrics registers the service's Prometheus instruments. Recording
// helpers are safe to call before Init; they just no-op until registration
// has run.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "compliance_"

var (
	registerOnce sync.Once

	evaluationsTotal   *prometheus.CounterVec
	evaluationLatency  prometheus.Histogram
	violationsTotal    *prometheus.CounterVec
	simulationLatency  prometheus.Histogram
	notificationsTotal *prometheus.CounterVec
)

// Init registers all instruments on the default registry. Call once from
// main before serving.
func Init() {
	registerOnce.Do(func() {
		evaluationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "evaluations_total",
				Help: "Total evaluation runs by result",
			},
			[]string{"result"},
		)
		evaluationLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "evaluation_duration_seconds",
				Help:    "Evaluation run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		)
		violationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "violations_total",
				Help: "Violations persisted by rule code and severity",
			},
			[]string{"rule_code", "severity"},
		)
		simulationLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "simulation_duration_seconds",
				Help:    "Simulation run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		)
		notificationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Notification deliveries by channel and result",
			},
			[]string{"channel", "result"},
		)

		prometheus.MustRegister(
			evaluationsTotal,
			evaluationLatency,
			violationsTotal,
			simulationLatency,
			notificationsTotal,
		)
	})
}

func RecordEvaluation(result string) {
	if evaluationsTotal != nil {
		evaluationsTotal.WithLabelValues(result).Inc()
	}
}

func ObserveEvaluationDuration(d time.Duration) {
	if evaluationLatency != nil {
		evaluationLatency.Observe(d.Seconds())
	}
}

func RecordViolation(ruleCode, severity string) {
	if violationsTotal != nil {
		violationsTotal.WithLabelValues(ruleCode, severity).Inc()
	}
}

func ObserveSimulationDuration(d time.Duration) {
	if simulationLatency != nil {
		simulationLatency.Observe(d.Seconds())
	}
}

func RecordNotification(channel, result string) {
	if notificationsTotal != nil {
		notificationsTotal.WithLabelValues(channel, result).Inc()
	}
}
