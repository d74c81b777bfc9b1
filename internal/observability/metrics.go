// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Simulation metrics
	DaysProcessed    prometheus.Counter
	OperationsOpened prometheus.Counter
	OperationsClosed *prometheus.CounterVec
	PartialSales     prometheus.Counter

	// Capital metrics
	AvailableCapital prometheus.Gauge
	CapitalInUse     prometheus.Gauge

	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "b3_swing_lab"
	}

	return &Metrics{
		DaysProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "days_processed_total",
			Help:      "Total number of business days processed",
		}),
		OperationsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "operations_opened_total",
			Help:      "Total number of operations opened",
		}),
		OperationsClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "operations_closed_total",
			Help:      "Total number of operations closed by exit reason",
		}, []string{"reason"}),
		PartialSales: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "partial_sales_total",
			Help:      "Total number of partial sales executed",
		}),

		AvailableCapital: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "capital",
			Name:      "available",
			Help:      "Uncommitted capital in currency units",
		}),
		CapitalInUse: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "capital",
			Name:      "in_use_fraction",
			Help:      "Fraction of total capital committed to open positions",
		}),

		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "total",
			Help:      "Total number of strategy runs by status",
		}, []string{"variant", "status"}),
		RunDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Strategy run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"variant"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordDayProcessed increments the days processed counter.
func RecordDayProcessed() {
	DefaultMetrics.DaysProcessed.Inc()
}

// RecordOperationOpened increments the operations opened counter.
func RecordOperationOpened() {
	DefaultMetrics.OperationsOpened.Inc()
}

// RecordOperationClosed records a closed operation by its exit reason.
func RecordOperationClosed(reason string) {
	DefaultMetrics.OperationsClosed.WithLabelValues(reason).Inc()
}

// RecordPartialSale increments the partial sales counter.
func RecordPartialSale() {
	DefaultMetrics.PartialSales.Inc()
}

// UpdateCapital updates the capital gauges.
func UpdateCapital(available, inUseFraction float64) {
	DefaultMetrics.AvailableCapital.Set(available)
	DefaultMetrics.CapitalInUse.Set(inUseFraction)
}

// RecordRun records a completed strategy run.
func RecordRun(variant, status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(variant, status).Inc()
	DefaultMetrics.RunDuration.WithLabelValues(variant).Observe(durationSeconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
