package gc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics wraps the three interface-level metrics from spec.md §6,
// translated to Prometheus naming convention. Grounded on the thanos
// compactor's promauto.With(reg).NewCounter idiom.
type metrics struct {
	runsTotal       prometheus.Counter
	scanDuration    prometheus.Histogram
	compactDuration prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		runsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "persistence_gc_runs_total",
			Help: "Total number of completed GC compaction cycles.",
		}),
		scanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "persistence_gc_scan_duration_seconds",
			Help: "Duration of the scan phase.",
		}),
		compactDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "persistence_gc_compaction_duration_seconds",
			Help: "Duration of the compaction phase.",
		}),
	}
}
