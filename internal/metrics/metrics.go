package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "persona_engine"

// Turn outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

var (
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "turns_total",
		Help:      "Turns processed, by personality mode and outcome.",
	}, []string{"mode", "outcome"})

	modelErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "model_errors_total",
		Help:      "Model invocations that failed after all retries.",
	}, []string{"backend"})

	invocationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "model_invocation_seconds",
		Help:      "Wall time of model invocations.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
	}, []string{"backend"})

	memoryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "memory_failures_total",
		Help:      "Memory store operations that failed and were skipped.",
	}, []string{"op"})

	persistenceFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persistence_failures_total",
		Help:      "Completed turns that could not be written to conversation history.",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Turn requests waiting in the queue.",
	})

	lockContention = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conversation_lock_contention_total",
		Help:      "Requests requeued because their conversation was locked.",
	})
)

func TurnCompleted(mode, outcome string) {
	turnsTotal.WithLabelValues(mode, outcome).Inc()
}

func ModelError(backend string) {
	modelErrors.WithLabelValues(backend).Inc()
}

// ObserveInvocation records how long a model call took since start.
func ObserveInvocation(backend string, start time.Time) {
	invocationDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
}

func MemoryFailure(op string) {
	memoryFailures.WithLabelValues(op).Inc()
}

func PersistenceFailure() {
	persistenceFailures.Inc()
}

func SetQueueDepth(n int64) {
	queueDepth.Set(float64(n))
}

func LockContention() {
	lockContention.Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
