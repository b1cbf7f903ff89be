package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		notificationsCreatedTotal,
		notificationDispatchTotal,
	)
}

var (
	notificationsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "In-app notifications created, labeled by type.",
		},
		[]string{"type"},
	)

	// channel: email|telegram ; status: sent|error|skipped
	notificationDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_dispatch_total",
			Help: "Outbound notification deliveries by channel, kind and status.",
		},
		[]string{"channel", "kind", "status"},
	)
)

func IncNotificationCreated(typ string) {
	notificationsCreatedTotal.WithLabelValues(norm(typ)).Inc()
}

func IncNotificationDispatch(channel, kind, status string) {
	notificationDispatchTotal.WithLabelValues(norm(channel), norm(kind), norm(status)).Inc()
}
