// Package metrics holds the Prometheus instrumentation of the client runtime.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Remote places API
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "places_api_calls_total",
			Help: "Total number of calls to the remote places API",
		},
		[]string{"operation", "outcome"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "places_api_call_duration_seconds",
			Help:    "Duration of calls to the remote places API in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Reverse geocoding
	GeocodeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocode_requests_total",
			Help: "Total number of reverse geocode lookups",
		},
		[]string{"outcome"}, // "ok", "error", "rejected"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Clustering
	PartitionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cluster_partition_duration_seconds",
			Help:    "Time spent partitioning the place list for a viewport",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
		},
	)

	GridCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cluster_grid_cache_hits_total",
			Help: "Total number of partitions served from a cached zoom grid",
		},
	)

	GridCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cluster_grid_cache_misses_total",
			Help: "Total number of zoom grids built from the place list",
		},
	)

	// Creation workflow
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "place_submissions_total",
			Help: "Total number of place submissions by terminal outcome",
		},
		[]string{"outcome"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_uploads_total",
			Help: "Total number of individual image upload attempts",
		},
		[]string{"outcome"},
	)

	// Viewport bridge
	BridgeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_requests_total",
			Help: "Total number of viewport bridge requests",
		},
		[]string{"method", "status"},
	)

	StreamConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_stream_connections_active",
			Help: "Number of connected marker stream clients",
		},
	)
)

// RecordAPICall records one remote API call.
func RecordAPICall(operation string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	APICallsTotal.WithLabelValues(operation, outcome).Inc()
	APICallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordGeocode(outcome string) {
	GeocodeRequestsTotal.WithLabelValues(outcome).Inc()
}

func RecordUpload(err error) {
	if err != nil {
		UploadsTotal.WithLabelValues("error").Inc()
		return
	}
	UploadsTotal.WithLabelValues("ok").Inc()
}

func RecordSubmission(outcome string) {
	SubmissionsTotal.WithLabelValues(outcome).Inc()
}

func RecordBridgeRequest(method string, status int) {
	BridgeRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func RecordPartition(duration time.Duration, cached bool) {
	PartitionDuration.Observe(duration.Seconds())
	if cached {
		GridCacheHits.Inc()
	} else {
		GridCacheMisses.Inc()
	}
}

// TrackStreamConnection tracks connected marker stream clients
func TrackStreamConnection(inc bool) {
	if inc {
		StreamConnections.Inc()
	} else {
		StreamConnections.Dec()
	}
}
