package metrics

// SizeLabels are the size classes used as label values. Kept here rather than
// imported so the metrics package stays a leaf.
var SizeLabels = []string{"thumbnail", "medium", "large"}

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, reason := range []string{"overwrite", "evict", "expired", "sweep", "clear"} {
		VariantCacheEvictions.WithLabelValues(reason)
	}

	for _, size := range SizeLabels {
		for _, status := range []string{"success", "error_decode", "error_encode", "error", "superseded"} {
			TranscodesTotal.WithLabelValues(size, status)
		}
		TranscodeDuration.WithLabelValues(size)
	}

	for _, scheme := range []string{"file", "http", "blob", "data"} {
		SourceFetchTotal.WithLabelValues(scheme, "success")
		SourceFetchTotal.WithLabelValues(scheme, "error")
	}

	BatchRunsTotal.WithLabelValues("complete")
	BatchRunsTotal.WithLabelValues("aborted")
	BatchItemsTotal.WithLabelValues("success")
	BatchItemsTotal.WithLabelValues("error")
	UploadsTotal.WithLabelValues("completed")
	UploadsTotal.WithLabelValues("error")

	volumes := []string{"assets", "cache", "database", "unknown"}
	for _, op := range []string{"stat", "open", "remove"} {
		for _, vol := range volumes {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
		}
	}

	for _, op := range []string{"initialize_schema", "list_albums", "get_album", "create_album",
		"delete_album", "append_images", "update_album", "record_view", "seed_albums", "album_stats",
		"has_image", "views_by_date", "most_viewed", "view_stats", "clean_old_views", "export_views",
		"get_metadata", "set_metadata", "delete_metadata"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	AlbumViewsTotal.WithLabelValues("total")
	AlbumViewsTotal.WithLabelValues("unique")
}
