package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_media_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "product_media_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "product_media_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Pipeline metrics
var (
	PipelineJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_media_pipeline_jobs_total",
			Help: "Total number of media derivation jobs",
		},
		[]string{"kind", "status"}, // status: "success", "success_with_warning", "error"
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "product_media_pipeline_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"}, // "capture", "transcode", "store_original", "store_derived", "record_update"
	)

	PipelineDerivedSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_media_pipeline_derived_skipped_total",
			Help: "Jobs that completed without a derived asset, by reason",
		},
		[]string{"reason"}, // "decode_error", "encode_error", "storage_error"
	)

	UploadsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "product_media_uploads_in_flight",
			Help: "Number of entities with an upload currently in progress",
		},
	)
)

// Frame capture metrics
var (
	CaptureFFmpegDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "product_media_capture_ffmpeg_duration_seconds",
			Help:    "Duration of ffmpeg frame extraction in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	CaptureRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "product_media_capture_retries_total",
			Help: "Frame extractions that needed the no-seek fallback pass",
		},
	)
)

// Transcoder metrics
var (
	TranscodeEncodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_media_transcode_encodes_total",
			Help: "Total number of derived-image encodes",
		},
		[]string{"format", "status"}, // format: "webp", "jpeg"
	)

	TranscodeImageDecodeByFormat = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_media_transcode_decodes_by_format_total",
			Help: "Source image decodes by detected format",
		},
		[]string{"format"},
	)
)

// Blob storage metrics
var (
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_media_storage_operations_total",
			Help: "Total number of blob storage operations",
		},
		[]string{"operation", "status"}, // operation: "put", "delete"
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "product_media_storage_operation_duration_seconds",
			Help:    "Blob storage operation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	StorageRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_media_storage_retry_attempts_total",
			Help: "Retry attempts for transient blob storage failures",
		},
		[]string{"operation"},
	)

	StorageRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_media_storage_retry_success_total",
			Help: "Blob storage operations that succeeded after retrying",
		},
		[]string{"operation"},
	)

	StorageRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_media_storage_retry_failures_total",
			Help: "Blob storage operations that failed after exhausting retries",
		},
		[]string{"operation"},
	)

	StorageBytesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_media_storage_bytes_written_total",
			Help: "Total bytes written to blob storage",
		},
		[]string{"role"}, // "original", "derived"
	)
)

// Record store metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_media_db_queries_total",
			Help: "Total number of record store queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "product_media_db_query_duration_seconds",
			Help:    "Record store query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "product_media_db_connections_open",
			Help: "Number of open record store connections",
		},
	)
)

// Media library metrics
var (
	MediaAssetsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "product_media_assets_total",
			Help: "Total number of recorded media assets by kind",
		},
		[]string{"kind"},
	)

	MediaAssetsWithDerived = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "product_media_assets_with_derived",
			Help: "Number of recorded media assets carrying a derived URL",
		},
	)
)

// Batch re-derivation metrics
var (
	RederiveRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "product_media_rederive_runs_total",
			Help: "Total number of batch re-derivation runs",
		},
	)

	RederiveAssetsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_media_rederive_assets_total",
			Help: "Assets processed by batch re-derivation, by outcome",
		},
		[]string{"status"}, // "derived", "skipped", "failed"
	)

	RederiveRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "product_media_rederive_running",
			Help: "Whether a batch re-derivation is in progress (1 = running, 0 = idle)",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "product_media_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
