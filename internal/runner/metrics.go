package runner

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hempies/catalogsync/internal/domain"
)

// Run outcomes used as metric labels
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeStopped   = "stopped"
)

// Metrics holds the prometheus collectors for sync runs
type Metrics struct {
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
	records  *prometheus.CounterVec
	active   prometheus.Gauge
}

// NewMetrics registers the run collectors with reg. A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogsync_runs_total",
			Help: "Sync runs by trigger and outcome",
		}, []string{"trigger", "outcome"}),

		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalogsync_run_duration_seconds",
			Help:    "Duration of sync runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800},
		}),

		records: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogsync_records_total",
			Help: "Destination rows touched, by table and action",
		}, []string{"table", "action"}),

		active: factory.NewGauge(prometheus.GaugeOpts{
			Name: "catalogsync_run_active",
			Help: "1 while a sync run is in progress",
		}),
	}
}

func (m *Metrics) runStarted() {
	if m == nil {
		return
	}
	m.active.Set(1)
}

func (m *Metrics) runFinished(trigger, outcome string, elapsed time.Duration, result domain.SyncResult) {
	if m == nil {
		return
	}
	m.active.Set(0)
	m.runs.WithLabelValues(trigger, outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
	m.observeStats("vendors", result.Vendors)
	m.observeStats("products", result.Products)
}

func (m *Metrics) observeStats(table string, stats domain.RunStats) {
	m.records.WithLabelValues(table, "created").Add(float64(stats.Created))
	m.records.WithLabelValues(table, "updated").Add(float64(stats.Updated))
	m.records.WithLabelValues(table, "skipped").Add(float64(stats.Skipped))
	m.records.WithLabelValues(table, "removed").Add(float64(stats.Removed))
	m.records.WithLabelValues(table, "failed").Add(float64(stats.Failed))
}
