// Package observability exposes Prometheus metrics for collection runs.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_tiles_total",
			Help: "Processed flow tiles by outcome.",
		},
		[]string{"outcome"},
	)

	featuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collector_features_total",
			Help: "Street features accumulated across all tiles.",
		},
	)

	incidentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collector_incidents_total",
			Help: "Incident features collected.",
		},
	)

	samplesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_samples_total",
			Help: "Per-segment speed samples by outcome.",
		},
		[]string{"outcome"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of provider calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"upstream"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func ObserveTile(outcome string) {
	tilesTotal.WithLabelValues(outcome).Inc()
}

func AddFeatures(n int) {
	featuresTotal.Add(float64(n))
}

func AddIncidents(n int) {
	incidentsTotal.Add(float64(n))
}

func ObserveSample(outcome string) {
	samplesTotal.WithLabelValues(outcome).Inc()
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream).Observe(durationSeconds)
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
