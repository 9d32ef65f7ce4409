// Package metrics exposes the Prometheus instrumentation shared by the
// evaluation engine and the serve command.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moulinette_evaluations_total",
		Help: "Total evaluations by global result",
	}, []string{"result"})
	EvaluationDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "moulinette_evaluation_duration_ms",
		Help:    "Evaluation duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	QualityFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "moulinette_quality_fallbacks_total",
		Help: "Total plantation quality checks degraded to the local compute",
	})
	QualityRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "moulinette_quality_requests_total",
		Help: "Total publicodes quality service calls",
	})
	ConfigReloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moulinette_config_reloads_total",
		Help: "Department config reloads by status",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(EvaluationsTotal)
	prometheus.MustRegister(EvaluationDurationMs)
	prometheus.MustRegister(QualityFallbacksTotal)
	prometheus.MustRegister(QualityRequestsTotal)
	prometheus.MustRegister(ConfigReloadsTotal)
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler { return promhttp.Handler() }
