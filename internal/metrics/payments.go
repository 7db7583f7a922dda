package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func init() {
	register(
		checkoutSessionsTotal,
		webhookEventsTotal,
		receiptsTotal,
		receiptEmailsTotal,
		paymentsRevenueTotal,
	)
}

var (
	checkoutSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_sessions_total",
			Help: "Checkout attempts by result (created/gateway_error/not_found).",
		},
		[]string{"result"},
	)

	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Gateway notifications by reconciliation outcome.",
		},
		[]string{"outcome"},
	)

	receiptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receipts_total",
			Help: "Receipt generation attempts by result.",
		},
		[]string{"result"},
	)

	receiptEmailsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receipt_emails_total",
			Help: "Receipt email deliveries by status (sent/failed/skipped).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "Total value of confirmed payments, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncCheckout(result string) {
	checkoutSessionsTotal.WithLabelValues(norm(result)).Inc()
}

func IncWebhook(outcome string) {
	webhookEventsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncReceipt(result string) {
	receiptsTotal.WithLabelValues(norm(result)).Inc()
}

func IncReceiptEmail(status string) {
	receiptEmailsTotal.WithLabelValues(norm(status)).Inc()
}

func AddRevenue(currency string, amount decimal.Decimal) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(amount.InexactFloat64())
}
