// Package metrics tracks per-invocation trading counters. Because scan and
// monitor run as short-lived scheduled processes with no scrape target, the
// registry is pushed to a Pushgateway at the end of each invocation when one
// is configured.
package metrics

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	ordersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swingbot_orders_placed_total",
			Help: "Orders confirmed by the broker",
		},
		[]string{"symbol", "direction"},
	)

	ordersFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swingbot_orders_failed_total",
			Help: "Orders that failed at the broker",
		},
		[]string{"symbol"},
	)

	signalsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swingbot_signals_rejected_total",
			Help: "Signals rejected before submission",
		},
		[]string{"reason"},
	)

	positionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swingbot_positions_closed_total",
			Help: "Positions closed by the monitoring loop",
		},
		[]string{"symbol", "reason"},
	)

	openPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "swingbot_open_positions",
			Help: "Open positions at the end of the invocation",
		},
	)

	storeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swingbot_store_errors_total",
			Help: "Fatal trade store transaction errors",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(ordersPlaced)
	prometheus.MustRegister(ordersFailed)
	prometheus.MustRegister(signalsRejected)
	prometheus.MustRegister(positionsClosed)
	prometheus.MustRegister(openPositions)
	prometheus.MustRegister(storeErrors)
}

// RecordOrderPlaced records a broker-confirmed entry.
func RecordOrderPlaced(symbol, direction string) {
	ordersPlaced.WithLabelValues(symbol, direction).Inc()
}

// RecordOrderFailed records a broker failure during placement.
func RecordOrderFailed(symbol string) {
	ordersFailed.WithLabelValues(symbol).Inc()
}

// RecordRejection records a signal rejected before submission.
func RecordRejection(reason string) {
	signalsRejected.WithLabelValues(reason).Inc()
}

// RecordExit records a position closed by the monitoring loop.
func RecordExit(symbol, reason string) {
	positionsClosed.WithLabelValues(symbol, reason).Inc()
}

// SetOpenPositions records the open position count.
func SetOpenPositions(n int) {
	openPositions.Set(float64(n))
}

// RecordStoreError records a fatal store transaction error.
func RecordStoreError(op string) {
	storeErrors.WithLabelValues(op).Inc()
}

// Push sends the default registry to a Pushgateway. A failed push is logged
// and ignored; metrics delivery never fails an invocation.
func Push(gateway, job string) {
	if gateway == "" {
		return
	}
	if err := push.New(gateway, job).Gatherer(prometheus.DefaultGatherer).Push(); err != nil {
		log.Printf("metrics: push to %s failed: %v", gateway, err)
	}
}
