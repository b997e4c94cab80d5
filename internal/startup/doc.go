// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// This package centralizes all application configuration and provides consistent
// logging throughout the application lifecycle.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig].
// A .env file in the working directory is honored when present. The
// following environment variables are supported:
//
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - DATABASE_DIR: Path to record database directory (default: /database)
//   - STORAGE_BACKEND: Blob storage backend, s3 or memory (default: s3)
//   - S3_REGION, S3_ACCESS_KEY, S3_SECRET_KEY, S3_BUCKET: S3 connection settings
//   - S3_ENDPOINT: Custom S3-compatible endpoint (MinIO, R2)
//   - S3_PUBLIC_BASE_URL: Public base URL for stored objects (CDN origin)
//   - S3_USE_PATH_STYLE: Use path-style S3 addressing (default: false)
//   - CAPTURE_TIMEOUT: FFmpeg frame capture timeout as Go duration (default: 10s)
//   - POSTER_SEEK: Seek offset for video poster frames as Go duration (default: 0)
//   - DERIVED_QUALITY: Encode quality for derived images, 0 to 1 (default: 0.80)
//   - POSTER_QUALITY: Encode quality for video posters, 0 to 1 (default: 0.95)
//   - MAX_UPLOAD_BYTES: Maximum accepted upload size (default: 512 MiB)
//   - REDERIVE_WORKER_LIMIT: Concurrency cap for rederive runs (default: 8)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//   - Version: Application version
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - GoVersion: Go compiler version
//
// # Lifecycle Logging
//
// The package provides structured logging functions for consistent output:
//   - [LogRecordStoreInit]: Record store initialization timing
//   - [LogPipelineInit]: Pipeline setup and encoder availability
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated]: Graceful shutdown start
//   - [LogShutdownComplete]: Shutdown completion
package startup
