// Package metrics holds the prometheus collectors of the dapp client.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "calc"

// Registry collectors are registered here rather than the global default
var Registry = prometheus.NewRegistry()

var (
	submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Submitted calculations by opcode.",
	}, []string{"opcode"})

	statusTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_transitions_total",
		Help:      "Transaction status transitions by target status.",
	}, []string{"status"})

	nodeCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "node_calls_total",
		Help:      "JSON-RPC calls to the ledger node.",
	}, []string{"method", "result"})

	inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "submissions_in_flight",
		Help:      "Submissions not yet finalized or failed.",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		submissionsTotal,
		statusTransitions,
		nodeCalls,
		inFlight,
	)
}

// ObserveSubmission counts a submission and marks it in flight
func ObserveSubmission(opcode string) {
	submissionsTotal.WithLabelValues(opcode).Inc()
	inFlight.Inc()
}

// ObserveTransition counts a status change
func ObserveTransition(status string) {
	statusTransitions.WithLabelValues(status).Inc()
}

// SubmissionDone marks a submission as no longer tracked
func SubmissionDone() {
	inFlight.Dec()
}

// ObserveNodeCall counts a node call by outcome
func ObserveNodeCall(method string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	nodeCalls.WithLabelValues(method, result).Inc()
}

// Handler serves the registry in the prometheus exposition format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
