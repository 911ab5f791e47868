package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	CodeExchangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "integrations_code_exchanges_total",
		Help: "Total authorization-code exchanges, by provider and outcome.",
	}, []string{"provider", "outcome"})

	TokenRefreshesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "integrations_token_refreshes_total",
		Help: "Total refresh-token grants, by provider and outcome.",
	}, []string{"provider", "outcome"})

	DisconnectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "integrations_disconnects_total",
		Help: "Total disconnect requests, by provider.",
	}, []string{"provider"})

	EventsSanitizedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "integrations_events_sanitized_total",
		Help: "Total calendar events that survived sanitization.",
	})
)

// Register attaches all integration metrics to reg. Call once at
// startup; counters work unregistered, so tests need no setup.
func Register(reg prometheus.Registerer) {
	for _, c := range []prometheus.Collector{
		CodeExchangesTotal,
		TokenRefreshesTotal,
		DisconnectsTotal,
		EventsSanitizedTotal,
	} {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msg("Failed to register metric")
		}
	}
}
