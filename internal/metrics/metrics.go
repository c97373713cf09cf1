// Package metrics exposes Prometheus instrumentation for the flowlens
// pipeline: run outcomes, ingestion counts, and anomaly totals.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunsTotal counts completed pipeline runs by outcome
	// (ok, empty, error).
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowlens_runs_total",
		Help: "Completed pipeline runs by outcome.",
	}, []string{"outcome"})

	// RecordsIngested counts flow records accepted per vantage point.
	RecordsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowlens_records_ingested_total",
		Help: "Flow records accepted during ingestion.",
	}, []string{"vantage_point"})

	// RecordsDropped counts unparseable records per vantage point.
	RecordsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowlens_records_dropped_total",
		Help: "Flow records dropped as unparseable.",
	}, []string{"vantage_point"})

	// FeatureVectors counts feature vectors extracted.
	FeatureVectors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowlens_feature_vectors_total",
		Help: "Feature vectors extracted across all runs.",
	})

	// AnomaliesFlagged counts samples flagged anomalous.
	AnomaliesFlagged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowlens_anomalies_flagged_total",
		Help: "Samples whose reconstruction error exceeded the adaptive threshold.",
	})

	// StoreWriteFailures counts failed run transactions.
	StoreWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowlens_store_write_failures_total",
		Help: "Run transactions that failed and rolled back.",
	})

	// RunDuration observes end-to-end run latency in seconds.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flowlens_run_duration_seconds",
		Help:    "End-to-end duration of one pipeline run.",
		Buckets: prometheus.DefBuckets,
	})
)

// Serve exposes /metrics on the given address. It blocks, so callers
// run it in a goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
