// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig].
// A .env file in the working directory (or the file named by ENV_FILE) is
// read first with godotenv; variables already present in the environment
// take precedence. The following variables are supported:
//
//   - PORT: HTTP server port (default: 8080)
//   - CACHE_DIR: Cache directory; disk variants live under variants/ (default: /cache)
//   - DATABASE_DIR: Path to database directory (default: /database)
//   - ASSETS_DIR: Root for file sources such as assets/slideshow/x.jpg (default: /assets)
//   - ALBUM_SEED: TOML album catalogue; empty uses the embedded seed
//   - VARIANT_BACKEND: imaging or vips (default: imaging)
//   - VARIANT_STORE: memory or disk (default: memory)
//   - VARIANT_MAX_AGE: Freshness window of cached variants (default: 720h)
//   - VARIANT_SWEEP_INTERVAL: Background sweep period, negative disables (default: 6h)
//   - VARIANT_BATCH_SIZE / VARIANT_BATCH_DELAY: Preload grouping (default: 3, 100ms)
//   - VARIANT_WORKERS: Concurrent transcodes (default: derived from CPUs)
//   - FETCH_RATE_LIMIT: Remote source requests per second (default: 10)
//   - METRICS_ENABLED: Serve /metrics (default: true)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_STATIC_FILES: Log blob and variant image requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - MEMORY_LIMIT / MEMORY_RATIO / GOMEMLIMIT: Go heap limit, see package memory
//
// # Directory Setup
//
//   - Database directory: Required, must be writable
//   - Variant directory: Only with VARIANT_STORE=disk; falls back to memory if not writable
//   - Assets directory: Checked but not created (should be mounted)
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogDatabaseInit], [LogAlbumsSeeded], [LogVariantsInit]
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted], [LogShutdownInitiated], [LogShutdownComplete]
//
// # Example Usage
//
//	config, err := startup.LoadConfig()
//	if err != nil {
//	    startup.LogFatal("Configuration error: %v", err)
//	}
//
//	startup.LogServerStarted(startup.ServerConfig{
//	    Port:            config.Port,
//	    MetricsEnabled:  config.MetricsEnabled,
//	    StartupDuration: time.Since(startTime),
//	})
package startup
