package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_gallery_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_gallery_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Variant cache metrics
var (
	VariantCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_gallery_variant_cache_hits_total",
			Help: "Total number of variant cache hits",
		},
	)

	VariantCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_gallery_variant_cache_misses_total",
			Help: "Total number of variant cache misses",
		},
	)

	VariantCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_gallery_variant_cache_entries",
			Help: "Number of variants currently cached",
		},
	)

	VariantCacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_gallery_variant_cache_size_bytes",
			Help: "Best-effort estimate of cached variant bytes",
		},
	)

	VariantCacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_variant_cache_evictions_total",
			Help: "Total number of variant cache evictions by reason",
		},
		[]string{"reason"}, // "overwrite", "evict", "expired", "sweep", "clear"
	)

	VariantRevokeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_gallery_variant_revoke_errors_total",
			Help: "Total number of handle revocations that failed",
		},
	)

	PlaceholderRendersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_gallery_placeholder_renders_total",
			Help: "Total number of placeholder images rendered",
		},
	)
)

// Transcode metrics
var (
	TranscodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_transcodes_total",
			Help: "Total number of variant transcodes",
		},
		[]string{"size", "status"}, // status: "success", "error_decode", "error_encode", "error", "superseded"
	)

	TranscodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_gallery_transcode_duration_seconds",
			Help:    "Variant transcode duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"size"},
	)

	TranscodesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_gallery_transcodes_in_flight",
			Help: "Number of distinct variant keys with a transcode in flight",
		},
	)

	SourceFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_source_fetch_total",
			Help: "Total number of source image fetches",
		},
		[]string{"scheme", "status"}, // scheme: "file", "http", "blob", "data"
	)
)

// Batch metrics
var (
	BatchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_batch_runs_total",
			Help: "Total number of batch runs",
		},
		[]string{"status"}, // "complete", "aborted"
	)

	BatchItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_batch_items_total",
			Help: "Total number of batch items processed",
		},
		[]string{"status"}, // "success", "error"
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_uploads_total",
			Help: "Total number of ingested uploads",
		},
		[]string{"status"}, // "completed", "error"
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_gallery_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_filesystem_stale_errors_total",
			Help: "Total number of stale file handle errors",
		},
		[]string{"operation", "volume"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_gallery_memory_usage_ratio",
			Help: "Heap allocation as a ratio of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_gallery_memory_paused",
			Help: "Whether batch processing is paused for memory pressure (1 = paused)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_gallery_memory_gc_pauses_total",
			Help: "Total number of times processing paused for memory pressure",
		},
	)
)

// Album registry metrics
var (
	AlbumsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_gallery_albums_total",
			Help: "Total number of albums",
		},
	)

	AlbumImagesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_gallery_album_images_total",
			Help: "Total number of images across all albums",
		},
	)

	AlbumViewsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photo_gallery_album_views",
			Help: "Album views by kind",
		},
		[]string{"kind"}, // "total", "unique"
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photo_gallery_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
