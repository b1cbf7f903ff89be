package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobRunsTotal) }

var jobRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "job_runs_total",
		Help: "Background job runs, labeled by job and outcome.",
	},
	[]string{"job", "status"}, // status: 'ok', 'error', 'skipped', 'cancelled'
)

func IncJobRun(job, status string) {
	jobRunsTotal.WithLabelValues(norm(job), norm(status)).Inc()
}
