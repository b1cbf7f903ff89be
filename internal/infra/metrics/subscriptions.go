package metrics

import (
	"reseller-billing/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		expiryWarnedTotal,
		expiryDowngradedTotal,
		expiryFailuresTotal,
		accountsByTier,
	)
}

var (
	expiryWarnedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscription_expiry_warnings_total",
			Help: "Accounts warned about an upcoming expiry.",
		},
	)

	expiryDowngradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscription_downgrades_total",
			Help: "Accounts downgraded to the free tier after expiry.",
		},
	)

	expiryFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscription_expiry_failures_total",
			Help: "Per-account failures during the expiry sweep.",
		},
	)

	accountsByTier = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "accounts_total",
			Help: "Current number of accounts by tier.",
		},
		[]string{"tier"},
	)
)

func ObserveExpiryRun(warned, downgraded, failed int) {
	expiryWarnedTotal.Add(float64(warned))
	expiryDowngradedTotal.Add(float64(downgraded))
	expiryFailuresTotal.Add(float64(failed))
}

func SetAccountsByTier(counts map[model.Tier]int) {
	for _, t := range model.AllTiers() {
		accountsByTier.WithLabelValues(string(t)).Set(float64(counts[t]))
	}
}
