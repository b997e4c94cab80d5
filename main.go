package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"product-media/internal/capture"
	"product-media/internal/derive"
	"product-media/internal/handlers"
	"product-media/internal/logging"
	"product-media/internal/metrics"
	"product-media/internal/middleware"
	"product-media/internal/progress"
	"product-media/internal/records"
	"product-media/internal/startup"
	"product-media/internal/storage"
	"product-media/internal/transcode"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize record store
	storeStart := time.Now()
	store, err := records.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize record store: %v", err)
	}
	defer store.Close()
	startup.LogRecordStoreInit(time.Since(storeStart))

	// Initialize encoders
	if err := transcode.InitVips(); err != nil {
		logging.Warn("libvips initialization failed: %v", err)
	}
	defer transcode.ShutdownVips()
	startup.LogPipelineInit(capture.Available(), transcode.IsVipsAvailable())

	// Initialize blob storage
	blobs, err := newBlobStore(config)
	if err != nil {
		startup.LogFatal("Failed to initialize blob storage: %v", err)
	}

	// Initialize derivation pipeline
	tracker := progress.NewTracker()
	pipeline := derive.New(
		capture.New(config.CaptureTimeout),
		transcode.New(config.Quality, config.PosterQuality),
		blobs,
		store,
		tracker,
		derive.Options{
			PosterSeek:          config.PosterSeek,
			Retry:               storage.DefaultRetryConfig(),
			RederiveWorkerLimit: config.RederiveWorkerLimit,
		},
	)

	// Initialize metrics
	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	collector := metrics.NewCollector(store, 30*time.Second)
	collector.Start()
	defer collector.Stop()

	// Initialize handlers
	h := handlers.New(store, pipeline, tracker, config)

	// Setup router
	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Apply metrics middleware
	metricsHandler := middleware.Metrics(middleware.DefaultMetricsConfig())(router)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(metricsHandler)

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Start metrics server
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = startMetricsServer(config.MetricsPort)
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, collector)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

// newBlobStore builds the configured blob storage backend.
func newBlobStore(config *startup.Config) (storage.BlobStore, error) {
	if config.StorageBackend == "memory" {
		return storage.NewMemoryStore(), nil
	}

	return storage.NewS3Store(context.Background(), storage.S3Config{
		Region:        config.S3Region,
		AccessKey:     config.S3AccessKey,
		SecretKey:     config.S3SecretKey,
		Bucket:        config.S3Bucket,
		BaseEndpoint:  config.S3Endpoint,
		PublicBaseURL: config.S3PublicBaseURL,
		UsePathStyle:  config.S3UsePathStyle,
	})
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/version", h.GetVersion).Methods("GET")
	api.HandleFunc("/media", h.ListMedia).Methods("GET")
	api.HandleFunc("/uploads/status", h.GetUploadStatus).Methods("GET")
	api.HandleFunc("/rederive", h.Rederive).Methods("POST")

	// Per-entity media routes
	api.HandleFunc("/products/{id}/media", h.UploadMedia).Methods("POST")
	api.HandleFunc("/products/{id}/media", h.GetMedia).Methods("GET")
	api.HandleFunc("/products/{id}/media/{kind}", h.DeleteMedia).Methods("DELETE")

	return r
}

// startMetricsServer serves Prometheus metrics on a separate port.
func startMetricsServer(port string) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logging.Error("Metrics server error: %v", err)
		}
	}()

	return srv
}

func handleShutdown(srv, metricsSrv *http.Server, collector *metrics.Collector) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
