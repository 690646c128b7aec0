// pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	TokenExchanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alchemy_token_exchanges_total",
		Help: "Authorization-code exchanges against the provider token endpoint.",
	}, []string{"outcome"})

	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alchemy_token_refreshes_total",
		Help: "Refresh-token grants against the provider token endpoint.",
	}, []string{"outcome"})

	GraphQLRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alchemy_graphql_requests_total",
		Help: "Queries proxied to the provider GraphQL endpoint.",
	}, []string{"outcome"})
)

// Observe increments vec with the outcome derived from err.
func Observe(vec *prometheus.CounterVec, err error) {
	if err != nil {
		vec.WithLabelValues(OutcomeError).Inc()
		return
	}
	vec.WithLabelValues(OutcomeOK).Inc()
}
