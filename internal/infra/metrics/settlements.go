package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		settlementsTotal,
		settlementRevenueTotal,
		inventoryExhaustedTotal,
		subscriptionTransitionsTotal,
	)
}

var (
	settlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Order settlement attempts by result (settled/duplicate/out_of_stock/declined/unknown_ref/error).",
		},
		[]string{"result"},
	)

	settlementRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_revenue_cents_total",
			Help: "Total minor-unit value of settled purchases, labeled by currency.",
		},
		[]string{"currency"},
	)

	inventoryExhaustedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "settlement_inventory_exhausted_total",
			Help: "Settlement transactions aborted because course inventory hit zero.",
		},
	)

	subscriptionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_transitions_total",
			Help: "Subscription status transitions applied by the settlement engine.",
		},
		[]string{"to"},
	)
)

func IncSettlement(result string) {
	settlementsTotal.WithLabelValues(norm(result)).Inc()
}

func AddSettlementRevenue(currency string, amountCents int64) {
	settlementRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amountCents))
}

func IncInventoryExhausted() {
	inventoryExhaustedTotal.Inc()
}

func IncSubscriptionTransition(to string) {
	subscriptionTransitionsTotal.WithLabelValues(norm(to)).Inc()
}
