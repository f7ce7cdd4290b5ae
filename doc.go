// Photo Gallery serves a photography portfolio: an album registry backed by
// SQLite and an image variant service that produces thumbnail, medium and
// large renditions of every album image on demand.
//
// # Application Lifecycle
//
//  1. Memory Configuration: Sets GOMEMLIMIT from environment or container limits
//  2. Configuration Loading: Reads .env and environment variables, validates directories
//  3. Database Initialization: Opens the SQLite database and seeds albums when empty
//  4. Component Initialization:
//     - Variant Service: blob store, source fetchers, transcoder and cache,
//     restored from the snapshot saved at the last shutdown
//     - Memory Monitor: pauses preload batches under memory pressure
//     - Metrics Collector: publishes album and cache gauges every minute
//  5. HTTP Server Setup: Configures routes, middleware, and starts server
//  6. Graceful Shutdown: Handles SIGINT/SIGTERM, snapshots the cache, stops all components
//
// # HTTP Server
//
// A single server (default port 8080) serves:
//
//   - /api/albums: album listing, search, creation, deletion, views, preload and upload
//   - /api/variants, /api/variant/{size}/{src}: variant lookup and image bytes
//   - /api/blob/{ref}: stored uploads and variants
//   - /api/cache: cache inspection and clearing
//   - /assets/: album source images from ASSETS_DIR
//   - /health, /livez, /readyz, /version, /metrics
//
// # Environment Variables
//
//   - PORT: HTTP server port (default: 8080)
//   - CACHE_DIR: Directory for disk-backed variants
//   - DATABASE_DIR: Directory for the SQLite database
//   - ASSETS_DIR: Root that file album sources resolve against
//   - ALBUM_SEED: TOML file of seed albums (default: built-in albums)
//   - VARIANT_BACKEND: imaging or vips (default: imaging)
//   - VARIANT_STORE: memory or disk (default: memory)
//   - VARIANT_MAX_AGE: freshness window of cached variants (default: 720h)
//   - LOG_LEVEL: Logging level (debug/info/warn/error)
//   - GOMEMLIMIT / MEMORY_LIMIT / MEMORY_RATIO: heap limit configuration
//
// # Build Requirements
//
// CGO is required for SQLite. The vips backend additionally needs libvips:
//
//	go build -o photo-gallery .
package main
