package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huellas_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records repository latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "huellas_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PostsCreated counts new posts by kind and ownership mode.
	PostsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huellas_posts_created_total",
		Help: "Posts created by kind and ownership mode",
	}, []string{"kind", "ownership"})

	// StatusChanges counts accepted status transitions.
	StatusChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huellas_post_status_changes_total",
		Help: "Post status transitions by kind and target status",
	}, []string{"kind", "status"})

	// OwnershipRejections counts failed ownership proofs.
	OwnershipRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huellas_ownership_rejections_total",
		Help: "Rejected ownership proofs by kind and operation",
	}, []string{"kind", "operation"})

	// ReportsFiled counts user reports by reason.
	ReportsFiled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huellas_reports_filed_total",
		Help: "Reports filed by reason",
	}, []string{"reason"})

	// Suspensions counts moderator suspensions by kind.
	Suspensions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huellas_post_suspensions_total",
		Help: "Posts suspended by moderators",
	}, []string{"kind"})

	// GeocodeLatency records geocoder latency by operation and outcome.
	GeocodeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "huellas_geocode_latency_seconds",
		Help:    "Geocoding provider latency in seconds",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"operation", "outcome"})

	// UploadBytes records stored image sizes by bucket.
	UploadBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "huellas_upload_bytes",
		Help:    "Size of stored uploads in bytes",
		Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
	}, []string{"bucket"})

	// ListingCache counts listing cache lookups by result.
	ListingCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huellas_listing_cache_total",
		Help: "Listing cache lookups by result",
	}, []string{"result"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// ObserveGeocode records one provider call.
func ObserveGeocode(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	GeocodeLatency.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}
