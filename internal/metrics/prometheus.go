package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Fetcher metrics
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_cache_lookups_total",
			Help: "Total number of snapshot cache lookups",
		},
		[]string{"result"}, // result: hit|miss|insufficient|bypass
	)

	UpstreamCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_upstream_calls_total",
			Help: "Total number of upstream options API calls",
		},
		[]string{"status"}, // status: success|error
	)

	UpstreamLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "minerva_upstream_latency_seconds",
			Help:    "Upstream options API latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	SnapshotsStored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_snapshots_stored_total",
			Help: "Total number of snapshots written to the store",
		},
		[]string{"status"}, // status: success|partial|error
	)

	// Embedding metrics
	EmbeddingCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_embedding_calls_total",
			Help: "Total number of embedding generation calls",
		},
		[]string{"status"}, // status: success|error
	)

	// Detector metrics
	DetectorRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_detector_runs_total",
			Help: "Total number of anomaly detection runs",
		},
		[]string{"status"}, // status: success|no_reference|error
	)

	DetectorAnomalies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_detector_anomalies_total",
			Help: "Total anomalies reported, by level",
		},
		[]string{"level"},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(CacheLookups)
	prometheus.MustRegister(UpstreamCalls)
	prometheus.MustRegister(UpstreamLatency)
	prometheus.MustRegister(SnapshotsStored)
	prometheus.MustRegister(EmbeddingCalls)
	prometheus.MustRegister(DetectorRuns)
	prometheus.MustRegister(DetectorAnomalies)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordUpstreamCall records one upstream API call with its outcome
func RecordUpstreamCall(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	UpstreamCalls.WithLabelValues(status).Inc()
	UpstreamLatency.Observe(duration.Seconds())
}
