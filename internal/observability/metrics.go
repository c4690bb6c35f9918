package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for the disruption pipeline.
type Metrics struct {
	FetchTotal     *prometheus.CounterVec // labels: outcome={success,transport_error,status_error,payload_error}, trigger={initial,auto,manual}
	FetchDuration  prometheus.Histogram
	RecordCount    prometheus.Gauge
	DroppedRecords prometheus.Counter
	NewSevere      prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchTotal,
		m.FetchDuration,
		m.RecordCount,
		m.DroppedRecords,
		m.NewSevere,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "road_disruptions",
			Name:      "fetch_total",
			Help:      "Fetch cycles by outcome and trigger.",
		}, []string{"outcome", "trigger"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "road_disruptions",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a complete fetch-normalize-replace cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		RecordCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "road_disruptions",
			Name:      "records",
			Help:      "Normalized records in the authoritative set.",
		}),
		DroppedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "road_disruptions",
			Name:      "dropped_records_total",
			Help:      "Upstream items dropped during normalization.",
		}),
		NewSevere: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "road_disruptions",
			Name:      "new_severe_total",
			Help:      "New Severe disruptions detected by automatic refreshes.",
		}),
	}
}
