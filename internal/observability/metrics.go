// Package observability provides metrics and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "galaxy_redis_errors_total",
		Help: "Total number of Redis errors by operation",
	}, []string{"operation"})

	// SessionResolutions counts session lookups by flavor and outcome.
	SessionResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "galaxy_session_resolutions_total",
		Help: "Session resolutions by flavor (guest, user) and result",
	}, []string{"flavor", "result"})

	// RequestTransitions counts applied request state transitions.
	RequestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "galaxy_request_transitions_total",
		Help: "Galaxy request transitions by event",
	}, []string{"event"})
)

// Session resolution results.
const (
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultMinted  = "minted"
	ResultError   = "error"
	FlavorGuest   = "guest"
	FlavorSession = "user"
)

// ObserveSession records one session resolution.
func ObserveSession(flavor, result string) {
	SessionResolutions.WithLabelValues(flavor, result).Inc()
}

// ObserveTransition records an applied request transition.
func ObserveTransition(event string) {
	RequestTransitions.WithLabelValues(event).Inc()
}
