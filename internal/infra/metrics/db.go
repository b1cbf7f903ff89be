package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolConns, dbPoolEmptyAcquires) }

var (
	dbPoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "billing_db_pool_connections",
			Help: "Postgres pool connections by state.",
		},
		[]string{"state"}, // 'total', 'idle', 'in_use', 'max'
	)

	// pgxpool reports a cumulative count; it is mirrored as a gauge.
	dbPoolEmptyAcquires = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "billing_db_pool_empty_acquires",
			Help: "Acquires that had to wait because the pool had no idle connection.",
		},
	)
)

// DBPoolStats is the subset of pgxpool.Stat the service reports.
type DBPoolStats struct {
	Total, Idle, InUse, Max int32
	EmptyAcquires           int64
}

func SetDBPoolStats(s DBPoolStats) {
	dbPoolConns.WithLabelValues("total").Set(float64(s.Total))
	dbPoolConns.WithLabelValues("idle").Set(float64(s.Idle))
	dbPoolConns.WithLabelValues("in_use").Set(float64(s.InUse))
	dbPoolConns.WithLabelValues("max").Set(float64(s.Max))
	dbPoolEmptyAcquires.Set(float64(s.EmptyAcquires))
}
