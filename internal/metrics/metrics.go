// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venueadmin_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "venueadmin_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "venueadmin_api_active_requests",
			Help: "Number of requests currently being served",
		},
	)

	// AuthDecisions counts authorization gate outcomes.
	// result: "import_secret", "session", "unauthenticated", "forbidden"
	AuthDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venueadmin_auth_decisions_total",
			Help: "Total number of authorization decisions by result",
		},
		[]string{"result"},
	)

	// Venue writes by operation (create, update, delete) and outcome.
	VenueWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venueadmin_venue_writes_total",
			Help: "Total number of venue write operations",
		},
		[]string{"operation", "outcome"},
	)

	UploadGrants = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venueadmin_upload_grants_total",
			Help: "Total number of presigned upload grants issued",
		},
		[]string{"kind"},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
		return
	}
	APIActiveRequests.Dec()
}

// RecordAuthDecision counts one gate outcome.
func RecordAuthDecision(result string) {
	AuthDecisions.WithLabelValues(result).Inc()
}

// RecordVenueWrite counts a venue mutation; err decides the outcome label.
func RecordVenueWrite(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	VenueWrites.WithLabelValues(operation, outcome).Inc()
}

// RecordUploadGrant counts an issued upload grant.
func RecordUploadGrant(kind string) {
	UploadGrants.WithLabelValues(kind).Inc()
}
