package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(entitlementChecksTotal) }

var entitlementChecksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "entitlement_checks_total",
		Help: "Feature access decisions, labeled by feature and result.",
	},
	[]string{"feature", "allowed"},
)

func IncEntitlementCheck(feature string, allowed bool) {
	entitlementChecksTotal.WithLabelValues(norm(feature), strconv.FormatBool(allowed)).Inc()
}
