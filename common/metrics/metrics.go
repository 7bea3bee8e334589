package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache population and lookup metrics, exposed on the telemetry metrics port.
var (
	// PopulateRuns counts cache population attempts by outcome ("ok"/"error")
	PopulateRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weblab_repocache_populate_runs_total",
		Help: "Number of repository cache population runs",
	}, []string{"outcome"})

	// PopulateDuration observes how long a full populate takes
	PopulateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "weblab_repocache_populate_duration_seconds",
		Help:    "Duration of repository cache population runs",
		Buckets: prometheus.DefBuckets,
	})

	// PopulateVersions observes how many versions a populate run ingested
	PopulateVersions = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "weblab_repocache_populate_versions",
		Help:    "Number of versions ingested per population run",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})

	// CacheMisses counts version lookups that found no cached row
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weblab_repocache_misses_total",
		Help: "Number of cache-miss errors from version lookups",
	})

	// ExperimentsSubmitted counts experiment submissions accepted by the API
	ExperimentsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weblab_experiments_submitted_total",
		Help: "Number of experiments submitted",
	})
)
