// Package metrics exposes Prometheus counters for evaluations and storage failures
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every ECMS collector
var Registry = prometheus.NewRegistry()

var (
	evaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecms",
		Name:      "evaluations_total",
		Help:      "Observations evaluated, by record kind and resulting label.",
	}, []string{"kind", "label"})

	storageErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecms",
		Name:      "storage_errors_total",
		Help:      "Failed record store operations, by record kind.",
	}, []string{"kind"})
)

func init() {
	Registry.MustRegister(evaluations, storageErrors)
}

// ObserveEvaluation counts one evaluation
func ObserveEvaluation(kind, label string) {
	evaluations.WithLabelValues(kind, label).Inc()
}

// ObserveStorageError counts one failed store operation
func ObserveStorageError(kind string) {
	storageErrors.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
