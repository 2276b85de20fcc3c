// Package metrics exposes the Prometheus collectors of the registration service.
//
// Collectors are package globals registered on the default registry the first
// time InitMetrics (or any Record* helper) runs, and scraped from /metrics.
//
//	metrics.InitMetrics()
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
//
// Label values are small closed sets (operation names, results, effect names);
// never put ids in a label.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
	HTTPRequestsInProgress prometheus.Gauge

	// Inventory ledger: operation = reserve | release | confirm, result = success | failure
	InventoryOperationsTotal *prometheus.CounterVec

	// Tent quota rejections: reason = team_required | quota_exceeded | insufficient_inventory | not_found
	TentQuotaRejectionsTotal *prometheus.CounterVec

	// Payment confirmation: source = direct | webhook,
	// outcome = confirmed | duplicate | skipped | in_progress | failed
	PaymentConfirmationsTotal *prometheus.CounterVec

	// Best-effort side effects that failed after a payment committed.
	SideEffectFailuresTotal *prometheus.CounterVec

	// Cart mutations: operation = add | update | remove | checkout
	CartOperationDuration *prometheus.HistogramVec

	initOnce sync.Once
)

// InitMetrics creates and registers every collector. Safe to call repeatedly.
func InitMetrics() {
	initOnce.Do(func() {
		HTTPRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests.",
			},
			[]string{"method", "path", "status"},
		)

		HTTPRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"method", "path"},
		)

		HTTPRequestsInProgress = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_progress",
				Help: "HTTP requests currently being served.",
			},
		)

		InventoryOperationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_operations_total",
				Help: "Inventory ledger operations by operation and result.",
			},
			[]string{"operation", "result"},
		)

		TentQuotaRejectionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tent_quota_rejections_total",
				Help: "Tent reservations rejected by the quota check.",
			},
			[]string{"reason"},
		)

		PaymentConfirmationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_confirmations_total",
				Help: "Payment confirmation attempts by entry point and outcome.",
			},
			[]string{"source", "outcome"},
		)

		SideEffectFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_side_effect_failures_total",
				Help: "Post-payment side effects that failed and were skipped.",
			},
			[]string{"effect"},
		)

		CartOperationDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cart_operation_duration_seconds",
				Help:    "Cart mutation latency in seconds.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"operation"},
		)
	})
}

// RecordInventoryOperation counts one ledger primitive call.
func RecordInventoryOperation(operation string, success bool) {
	InitMetrics()
	IncCounterVec(InventoryOperationsTotal, map[string]string{
		"operation": operation,
		"result":    resultLabel(success),
	})
}

// RecordTentRejection counts a tent reservation refused for reason.
func RecordTentRejection(reason string) {
	InitMetrics()
	IncCounterVec(TentQuotaRejectionsTotal, map[string]string{"reason": reason})
}

// RecordPaymentConfirmation counts one confirmation attempt.
func RecordPaymentConfirmation(source, outcome string) {
	InitMetrics()
	IncCounterVec(PaymentConfirmationsTotal, map[string]string{
		"source":  source,
		"outcome": outcome,
	})
}

// RecordSideEffectFailure counts a swallowed post-payment failure.
func RecordSideEffectFailure(effect string) {
	InitMetrics()
	IncCounterVec(SideEffectFailuresTotal, map[string]string{"effect": effect})
}

// ObserveCartOperation records how long a cart mutation took.
func ObserveCartOperation(operation string, start time.Time) {
	InitMetrics()
	ObserveHistogramVec(CartOperationDuration, map[string]string{"operation": operation}, time.Since(start).Seconds())
}

// TrackInFlight counts a request as in progress until the returned func is called.
func TrackInFlight() func() {
	InitMetrics()
	HTTPRequestsInProgress.Inc()
	return HTTPRequestsInProgress.Dec
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, path string, status int, start time.Time) {
	InitMetrics()
	IncCounterVec(HTTPRequestsTotal, map[string]string{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	})
	ObserveHistogramVec(HTTPRequestDuration, map[string]string{
		"method": method,
		"path":   path,
	}, time.Since(start).Seconds())
}

// IncCounterVec increments a labelled counter.
func IncCounterVec(counter *prometheus.CounterVec, labels map[string]string) {
	counter.With(labels).Inc()
}

// ObserveHistogramVec records a labelled observation.
func ObserveHistogramVec(histogram *prometheus.HistogramVec, labels map[string]string, value float64) {
	histogram.With(labels).Observe(value)
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
