// Package metrics provides Prometheus instrumentation for the photo gallery service.
//
// All metrics are registered on the default registry with promauto and are
// prefixed with "photo_gallery_".
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of total requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Variant Cache Metrics
//
//   - VariantCacheHits / VariantCacheMisses: lookups served from or missing the cache
//   - VariantCacheEntries / VariantCacheBytes: current footprint (set by the Collector)
//   - VariantCacheEvictions: removals by reason (overwrite, evict, expired, sweep, clear)
//   - VariantRevokeErrors: handle releases that failed and were tolerated
//   - PlaceholderRendersTotal: placeholder images actually rendered (cache misses)
//
// ## Transcode Metrics
//
//   - TranscodesTotal: Counter by size class and status
//   - TranscodeDuration: Histogram by size class
//   - TranscodesInFlight: Gauge of keys with a running transcode
//   - SourceFetchTotal: source reads by scheme (file, http, blob, data) and status
//
// ## Batch Metrics
//
//   - BatchRunsTotal, BatchItemsTotal, UploadsTotal
//
// ## Database, Filesystem and Memory Metrics
//
//   - DBQueryTotal / DBQueryDuration by operation
//   - FilesystemRetry* and FilesystemStaleErrors by operation and volume
//   - MemoryUsageRatio, MemoryPaused, MemoryGCPauses
//
// # Collector
//
// [Collector] periodically reads album statistics from a [StatsProvider] and
// the cache footprint from a [CacheStatsProvider]:
//
//	collector := metrics.NewCollector(db, svc, 1*time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Variant cache hit rate:
//
//	rate(photo_gallery_variant_cache_hits_total[5m]) /
//	(rate(photo_gallery_variant_cache_hits_total[5m]) + rate(photo_gallery_variant_cache_misses_total[5m]))
//
// P95 transcode latency per size class:
//
//	histogram_quantile(0.95, sum(rate(photo_gallery_transcode_duration_seconds_bucket[5m])) by (le, size))
package metrics
