package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		invoicesCreatedTotal,
		invoiceTransitionsTotal,
		invoiceRevenueTotal,
	)
}

var (
	invoicesCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoices_created_total",
			Help: "Invoices created, labeled by target plan.",
		},
		[]string{"plan"},
	)

	invoiceTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoice_transitions_total",
			Help: "Invoice state transitions, labeled by the new status.",
		},
		[]string{"status"}, // 'paid', 'expired'
	)

	invoiceRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoice_revenue_total",
			Help: "The total monetary value of paid invoices, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncInvoiceCreated(plan string) {
	invoicesCreatedTotal.WithLabelValues(norm(plan)).Inc()
}

func IncInvoiceTransition(status string) {
	invoiceTransitionsTotal.WithLabelValues(norm(status)).Inc()
}

func AddInvoiceRevenue(currency string, amount int64) {
	invoiceRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}
