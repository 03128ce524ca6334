package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(gatewayLatencyMs)
}

var gatewayLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "payment_gateway_latency_ms",
		Help:    "Payment provider call latency distribution in milliseconds.",
		Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
	},
	[]string{"op", "success"},
)

func ObserveGatewayCall(op string, latencyMs int64, success bool) {
	gatewayLatencyMs.WithLabelValues(norm(op), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}
