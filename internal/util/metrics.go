package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersShippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_shipped_total",
		Help: "Total number of orders with a carrier shipment created and marked shipped",
	})

	OrdersIgnoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_ignored_total",
		Help: "Total number of order events ignored because they were not invoiced",
	})

	OrdersDuplicateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_duplicate_total",
		Help: "Total number of order events for orders already processed",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_sync_failed_total",
		Help: "Total number of failed sync attempts",
	}, []string{"reason"})

	RemoteCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "remote_call_latency_seconds",
		Help:    "Latency of carrier and storefront calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"platform", "operation", "status"})

	RetryAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retry_attempts_total",
		Help: "Total number of retried remote calls",
	}, []string{"operation"})

	ReconciliationScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconciliation_scans_total",
		Help: "Total number of delivery reconciliation scans",
	})

	ReconciliationScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reconciliation_scan_duration_seconds",
		Help:    "Duration of a full reconciliation scan",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	DeliveriesConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deliveries_confirmed_total",
		Help: "Total number of orders confirmed delivered",
	})

	ReconciliationErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconciliation_errors_total",
		Help: "Total number of per-order reconciliation failures",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
