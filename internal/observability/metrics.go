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
	// Demand analysis metrics
	DemandRunsTotal      *prometheus.CounterVec
	DemandRunDuration    prometheus.Histogram
	ItemsAnalyzed        prometheus.Counter
	EstimatedItems       prometheus.Counter
	TrendClassifications *prometheus.CounterVec

	// Price analytics metrics
	PriceRequestsTotal *prometheus.CounterVec
	PriceRequestErrors *prometheus.CounterVec

	// Data source metrics
	SourceFetchDuration *prometheus.HistogramVec
	SourceFetchErrors   *prometheus.CounterVec
	RecordsFetched      *prometheus.CounterVec

	// Alert metrics
	AlertsBroadcast  prometheus.Counter
	AlertSubscribers prometheus.Gauge
	AlertScans       *prometheus.CounterVec

	// Ingestion metrics
	PriceChangesStored prometheus.Counter
	RawRecordsStored   prometheus.Counter

	// Health metrics
	LastSuccessfulDemandRun prometheus.Gauge
	LastAlertScan           prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "agrimarket"
	}

	return &Metrics{
		// Demand analysis metrics
		DemandRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "demand",
			Name:      "runs_total",
			Help:      "Total number of demand analysis runs by status",
		}, []string{"status"}),
		DemandRunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "demand",
			Name:      "run_duration_seconds",
			Help:      "Demand analysis run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ItemsAnalyzed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "demand",
			Name:      "items_analyzed_total",
			Help:      "Total number of items analyzed",
		}),
		EstimatedItems: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "demand",
			Name:      "estimated_items_total",
			Help:      "Total number of items reported with placeholder statistics",
		}),
		TrendClassifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "demand",
			Name:      "trend_classifications_total",
			Help:      "Total number of trend classifications by label",
		}, []string{"trend"}),

		// Price analytics metrics
		PriceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prices",
			Name:      "requests_total",
			Help:      "Total number of price analytics requests by mode and status",
		}, []string{"mode", "status"}),
		PriceRequestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prices",
			Name:      "validation_errors_total",
			Help:      "Total number of rejected price analytics requests by reason",
		}, []string{"reason"}),

		// Data source metrics
		SourceFetchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "fetch_duration_seconds",
			Help:      "Data source read latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"source", "operation"}),
		SourceFetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "fetch_errors_total",
			Help:      "Total number of data source read errors",
		}, []string{"source", "operation"}),
		RecordsFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "records_fetched_total",
			Help:      "Total number of records read from data sources",
		}, []string{"source"}),

		// Alert metrics
		AlertsBroadcast: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "broadcast_total",
			Help:      "Total number of significant price change alerts broadcast",
		}),
		AlertSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "subscribers",
			Help:      "Number of connected alert subscribers",
		}),
		AlertScans: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "scans_total",
			Help:      "Total number of alert scans by status",
		}, []string{"status"}),

		// Ingestion metrics
		PriceChangesStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "price_changes_stored_total",
			Help:      "Total number of price change records stored",
		}),
		RawRecordsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "raw_records_stored_total",
			Help:      "Total number of raw market records stored",
		}),

		// Health metrics
		LastSuccessfulDemandRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_demand_run_timestamp",
			Help:      "Unix timestamp of last demand run that used real data",
		}),
		LastAlertScan: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_alert_scan_timestamp",
			Help:      "Unix timestamp of last completed alert scan",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordDemandRun records a completed demand analysis run.
func RecordDemandRun(status string, items, estimated int, durationSeconds float64) {
	DefaultMetrics.DemandRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.DemandRunDuration.Observe(durationSeconds)
	DefaultMetrics.ItemsAnalyzed.Add(float64(items))
	DefaultMetrics.EstimatedItems.Add(float64(estimated))
}

// RecordTrend increments the classification counter for a trend label.
func RecordTrend(trend string) {
	DefaultMetrics.TrendClassifications.WithLabelValues(trend).Inc()
}

// MarkDemandSuccess sets the last successful demand run timestamp.
func MarkDemandSuccess(unix int64) {
	DefaultMetrics.LastSuccessfulDemandRun.Set(float64(unix))
}

// RecordPriceRequest records a price analytics request.
func RecordPriceRequest(mode, status string) {
	DefaultMetrics.PriceRequestsTotal.WithLabelValues(mode, status).Inc()
}

// RecordPriceValidationError records a rejected price analytics request.
func RecordPriceValidationError(reason string) {
	DefaultMetrics.PriceRequestErrors.WithLabelValues(reason).Inc()
}

// RecordSourceFetch records data source read metrics.
func RecordSourceFetch(source, operation string, seconds float64, records int, err error) {
	DefaultMetrics.SourceFetchDuration.WithLabelValues(source, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.SourceFetchErrors.WithLabelValues(source, operation).Inc()
		return
	}
	DefaultMetrics.RecordsFetched.WithLabelValues(source).Add(float64(records))
}

// RecordAlertsBroadcast adds n to the broadcast alert counter.
func RecordAlertsBroadcast(n int) {
	DefaultMetrics.AlertsBroadcast.Add(float64(n))
}

// SetAlertSubscribers updates the subscriber gauge.
func SetAlertSubscribers(n int) {
	DefaultMetrics.AlertSubscribers.Set(float64(n))
}

// RecordAlertScan records an alert scan outcome.
func RecordAlertScan(status string, unix int64) {
	DefaultMetrics.AlertScans.WithLabelValues(status).Inc()
	if status == "success" {
		DefaultMetrics.LastAlertScan.Set(float64(unix))
	}
}

// RecordStored records ingested rows by kind ("price_changes" or "raw_records").
func RecordStored(kind string, n int) {
	switch kind {
	case "price_changes":
		DefaultMetrics.PriceChangesStored.Add(float64(n))
	case "raw_records":
		DefaultMetrics.RawRecordsStored.Add(float64(n))
	}
}
