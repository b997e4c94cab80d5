package metrics

// InitializeMetrics pre-populates expected label combinations so that every
// metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	kinds := []string{"image", "video"}
	jobStatuses := []string{"success", "success_with_warning", "error"}

	for _, k := range kinds {
		for _, s := range jobStatuses {
			PipelineJobsTotal.WithLabelValues(k, s)
		}
		MediaAssetsTotal.WithLabelValues(k)
	}

	for _, stage := range []string{"capture", "transcode", "store_original", "store_derived", "record_update"} {
		PipelineStageDuration.WithLabelValues(stage)
	}

	for _, reason := range []string{"decode_error", "encode_error", "storage_error"} {
		PipelineDerivedSkipped.WithLabelValues(reason)
	}

	for _, format := range []string{"webp", "jpeg"} {
		TranscodeEncodesTotal.WithLabelValues(format, "success")
		TranscodeEncodesTotal.WithLabelValues(format, "error")
	}

	for _, format := range []string{"jpeg", "png", "gif", "webp", "bmp", "tiff", "unknown"} {
		TranscodeImageDecodeByFormat.WithLabelValues(format)
	}

	for _, op := range []string{"put", "delete"} {
		StorageOperationsTotal.WithLabelValues(op, "success")
		StorageOperationsTotal.WithLabelValues(op, "error")
		StorageOperationDuration.WithLabelValues(op)
		StorageRetryAttempts.WithLabelValues(op)
		StorageRetrySuccess.WithLabelValues(op)
		StorageRetryFailures.WithLabelValues(op)
	}

	for _, role := range []string{"original", "derived"} {
		StorageBytesWritten.WithLabelValues(role)
	}

	for _, op := range []string{"initialize_schema", "upsert_asset", "get_asset",
		"list_assets", "clear_asset", "list_missing_derived", "get_stats"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, s := range []string{"derived", "skipped", "failed"} {
		RederiveAssetsProcessed.WithLabelValues(s)
	}
}
