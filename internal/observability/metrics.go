package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Command outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var (
	registerOnce sync.Once

	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gmpctl",
			Subsystem: "session",
			Name:      "commands_total",
			Help:      "Commands executed, by command and outcome.",
		},
		[]string{"command", "outcome"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gmpctl",
			Subsystem: "session",
			Name:      "command_duration_seconds",
			Help:      "Command round trip duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"command", "outcome"},
	)
	connects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gmpctl",
			Subsystem: "session",
			Name:      "connects_total",
			Help:      "Connect attempts, by network and success.",
		},
		[]string{"network", "success"},
	)
	discardedDocuments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gmpctl",
			Subsystem: "transport",
			Name:      "discarded_documents_total",
			Help:      "Received documents dropped because their root tag was not the one awaited.",
		},
		[]string{"root"},
	)
	bulkCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gmpctl",
			Subsystem: "bulk",
			Name:      "calls_total",
			Help:      "Calls issued by bulk retrieval, by command and mode (all, page).",
		},
		[]string{"command", "mode"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(commands, commandDuration, connects, discardedDocuments, bulkCalls)
	})
}

func RecordCommand(command, outcome string, duration time.Duration) {
	RegisterMetrics()
	commands.WithLabelValues(command, outcome).Inc()
	commandDuration.WithLabelValues(command, outcome).Observe(duration.Seconds())
}

func RecordConnect(network string, success bool) {
	RegisterMetrics()
	connects.WithLabelValues(network, strconv.FormatBool(success)).Inc()
}

func RecordDiscardedDocument(root string) {
	RegisterMetrics()
	discardedDocuments.WithLabelValues(root).Inc()
}

// RecordBulkCall counts one call of a bulk retrieval; paged is false for the
// initial all-rows call.
func RecordBulkCall(command string, paged bool) {
	RegisterMetrics()
	mode := "all"
	if paged {
		mode = "page"
	}
	bulkCalls.WithLabelValues(command, mode).Inc()
}
