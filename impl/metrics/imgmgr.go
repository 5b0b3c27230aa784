package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// These are the metrics functions exposed by the package. By default they are all
// NOP functions to minimize overhead when metrics are not enabled. The 'addImgmgrMetrics'
// function initializes these with functions having implementations if metrics are
// enabled.

var IncIngests withLabel = func(string) {}
var ObserveIngestSeconds observe = func(float64) {}
var DeltaVersionCount delta = func(float64) {}
var IncDeletes noLabel = func() {}
var IncRejectedDeletes noLabel = func() {}
var IncApiHits noLabel = func() {}

type withLabel func(string)
type noLabel func()
type delta func(float64)
type observe func(float64)

// "result" below is the outcome of an ingest: "ok", "duplicate", or the failure kind
const (
	ingests_total          = "ingests_total"
	ingest_duration_secs   = "ingest_duration_seconds"
	version_count          = "version_count"
	deletes_total          = "deletes_total"
	rejected_deletes_total = "rejected_deletes_total"
	api_hits_total         = "api_hits_total"
	result_label           = "result"
	namespace              = "imgmgr"
)

var once sync.Once

// addImgmgrMetrics creates all the image manager metrics and registers them with the
// prometheus library. It also assigns a function to actually implement the metric.
// Unless this function is called, all the metric functions exposed by the package
// will be NOP functions. Only the first call has any effect.
func addImgmgrMetrics() {
	once.Do(func() {
		ingestsTotal := promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:      ingests_total,
				Namespace: namespace,
				Help:      "Total image archives ingested by result",
			},
			[]string{result_label},
		)
		IncIngests = func(result string) {
			ingestsTotal.With(prometheus.Labels{result_label: result}).Add(1)
		}

		///
		ingestSeconds := promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:      ingest_duration_secs,
				Namespace: namespace,
				Help:      "Time to validate and extract an image archive",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
			},
		)
		ObserveIngestSeconds = func(secs float64) {
			ingestSeconds.Observe(secs)
		}

		///
		versionCount := promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:      version_count,
				Namespace: namespace,
				Help:      "Number of versions in the registry",
			},
		)
		DeltaVersionCount = func(delta float64) {
			versionCount.Add(delta)
		}

		///
		deletesTotal := promauto.NewCounter(
			prometheus.CounterOpts{
				Name:      deletes_total,
				Namespace: namespace,
				Help:      "Total versions removed",
			},
		)
		IncDeletes = func() {
			deletesTotal.Add(1)
		}

		///
		rejectedDeletesTotal := promauto.NewCounter(
			prometheus.CounterOpts{
				Name:      rejected_deletes_total,
				Namespace: namespace,
				Help:      "Total requests to remove the functional version that were refused",
			},
		)
		IncRejectedDeletes = func() {
			rejectedDeletesTotal.Add(1)
		}

		///
		apiHitsTotal := promauto.NewCounter(
			prometheus.CounterOpts{
				Name:      api_hits_total,
				Namespace: namespace,
				Help:      "Total calls to the versions REST API",
			},
		)
		IncApiHits = func() {
			apiHitsTotal.Add(1)
		}
	})
}
