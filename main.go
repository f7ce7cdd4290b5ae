package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"photo-gallery/internal/albums"
	"photo-gallery/internal/database"
	"photo-gallery/internal/filesystem"
	"photo-gallery/internal/handlers"
	"photo-gallery/internal/logging"
	"photo-gallery/internal/memory"
	"photo-gallery/internal/metrics"
	"photo-gallery/internal/middleware"
	"photo-gallery/internal/startup"
	"photo-gallery/internal/variants"

	"github.com/gorilla/mux"
)

// snapshotTimeout bounds the cache snapshot read at startup and write at shutdown.
const snapshotTimeout = 10 * time.Second

func main() {
	startTime := time.Now()

	// Set GOMEMLIMIT before anything allocates
	memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Label filesystem retry metrics by volume
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"assets":   config.AssetsDir,
		"cache":    config.CacheDir,
		"database": config.DatabaseDir,
	}))

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))

	seed, err := albums.LoadSeed(config.AlbumSeed)
	if err != nil {
		startup.LogFatal("Failed to load album seed: %v", err)
	}
	inserted, err := db.Seed(context.Background(), seed)
	if err != nil {
		startup.LogFatal("Failed to seed albums: %v", err)
	}
	startup.LogAlbumsSeeded(inserted)

	// Initialize variant service
	svc, err := newVariantService(config, db)
	if err != nil {
		startup.LogFatal("Failed to initialize variant service: %v", err)
	}

	// Memory monitor throttles preload batches
	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	collector := metrics.NewCollector(db, svc, 1*time.Minute)
	collector.Start()

	// Initialize handlers
	h := handlers.New(db, svc, config, monitor)

	// Setup router
	router := setupRouter(h, config)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(router)

	// Apply compression middleware
	compressionConfig := middleware.DefaultCompressionConfig()
	handler := middleware.Compression(compressionConfig)(loggedHandler)

	// Create server
	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	// Start graceful shutdown handler
	done := make(chan struct{})
	go func() {
		handleShutdown(srv, db, svc, monitor, collector)
		close(done)
	}()

	h.SetReady(true)
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

// newVariantService builds the blob store, fetchers and transcoder selected
// by config, restores the persisted cache and starts the sweep.
func newVariantService(config *startup.Config, db *database.Database) (*variants.Service, error) {
	backend := variants.Backend(config.VariantBackend)
	if backend == variants.BackendVips {
		if err := variants.InitVips(); err != nil {
			logging.Warn("libvips unavailable, falling back to imaging: %v", err)
			backend = variants.BackendImaging
		}
	}

	var store variants.BlobStore = variants.NewMemoryBlobStore()
	if config.VariantStore == "disk" && config.DiskStoreEnabled {
		disk, err := variants.NewDiskBlobStore(config.VariantDir)
		if err != nil {
			return nil, err
		}
		store = disk
	}

	// Uploaded originals are kept apart from the variant store. Sources
	// stays a nil interface when uploads are disabled.
	opts := variants.Options{
		MaxAge:        config.VariantMaxAge,
		SweepInterval: config.VariantSweepInterval,
		Workers:       config.VariantWorkers,
	}
	if config.UploadsEnabled {
		uploads, err := variants.NewUploadStore(config.UploadDir)
		if err != nil {
			return nil, err
		}
		opts.Sources = uploads
	}

	fetcher := &variants.SourceFetcher{
		Files: variants.NewFileFetcher(config.AssetsDir),
		HTTP:  variants.NewHTTPFetcher(config.FetchRateLimit, config.FetchAllowedHosts),
		Blobs: variants.NewBlobFetcher(store, opts.Sources),
	}
	transcoder := variants.NewTranscoder(fetcher, store, backend)

	svc := variants.NewService(transcoder, store, opts)

	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()
	restored, err := svc.LoadSnapshot(ctx, db)
	if err != nil {
		// A stale or unreadable snapshot only costs re-transcoding
		logging.Warn("Failed to restore variant cache: %v", err)
	}

	svc.Start()
	startup.LogVariantsInit(string(transcoder.Backend()), config.VariantStore, restored)
	return svc, nil
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	if config.MetricsEnabled {
		r.Handle("/metrics", h.MetricsHandler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Albums
	api.HandleFunc("/albums", h.ListAlbums).Methods("GET")
	api.HandleFunc("/albums", h.CreateAlbum).Methods("POST")
	api.HandleFunc("/albums/{id}", h.GetAlbum).Methods("GET")
	api.HandleFunc("/albums/{id}", h.UpdateAlbum).Methods("PATCH")
	api.HandleFunc("/albums/{id}", h.DeleteAlbum).Methods("DELETE")
	api.HandleFunc("/albums/{id}/views", h.RecordView).Methods("POST")
	api.HandleFunc("/albums/{id}/views", h.AlbumViewsByDate).Methods("GET")
	api.HandleFunc("/albums/{id}/preload", h.PreloadAlbum).Methods("POST")
	api.HandleFunc("/albums/{id}/images", h.UploadImages).Methods("POST")
	api.HandleFunc("/stats", h.GetStats).Methods("GET")

	// View analytics
	api.HandleFunc("/analytics", h.GetAnalytics).Methods("GET")
	api.HandleFunc("/analytics/export", h.ExportViews).Methods("GET")
	api.HandleFunc("/analytics/views", h.CleanViews).Methods("DELETE")

	// Variants
	api.HandleFunc("/variants", h.GetVariants).Methods("GET")
	api.HandleFunc("/variant/{size}/{src:.+}", h.ServeVariant).Methods("GET", "HEAD")
	api.HandleFunc("/blob/{ref:.+}", h.ServeBlob).Methods("GET", "HEAD")
	api.HandleFunc("/cache", h.GetCacheInfo).Methods("GET")
	api.HandleFunc("/cache", h.ClearCache).Methods("DELETE")

	// Album sources such as assets/slideshow/x.jpg resolve against the asset root
	r.PathPrefix("/assets/").Handler(http.FileServer(http.Dir(config.AssetsDir)))

	return r
}

// stopVariantService waits for running transcodes and then saves the cache,
// so variants committed during shutdown are part of the snapshot.
func stopVariantService(ctx context.Context, svc *variants.Service, store variants.SnapshotStore) (int, error) {
	svc.Stop()

	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()
	return svc.SaveSnapshot(ctx, store)
}

func handleShutdown(srv *http.Server, db *database.Database, svc *variants.Service, monitor *memory.Monitor, collector *metrics.Collector) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	startup.LogShutdownStep("Stopping memory monitor")
	monitor.Stop()
	startup.LogShutdownStepComplete("Memory monitor stopped")

	startup.LogShutdownStep("Stopping variant service")
	n, err := stopVariantService(ctx, svc, db)
	variants.ShutdownVips()
	startup.LogShutdownStepComplete("Variant service stopped")
	if err != nil {
		logging.Warn("Failed to save variant cache: %v", err)
	} else {
		startup.LogShutdownStepComplete(fmt.Sprintf("Saved %d cached variants", n))
	}

	startup.LogShutdownStep("Closing database")
	if err := db.Close(); err != nil {
		logging.Warn("Database close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Database closed")
	}

	startup.LogShutdownComplete()
}
