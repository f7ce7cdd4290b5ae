package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"photo-gallery/internal/logging"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	Port            string
	CacheDir        string
	DatabaseDir     string
	AssetsDir       string
	AlbumSeed       string
	LogStaticFiles  bool
	LogHealthChecks bool
	MetricsEnabled  bool

	// Variant pipeline
	VariantBackend       string
	VariantStore         string
	VariantMaxAge        time.Duration
	VariantSweepInterval time.Duration
	VariantBatchSize     int
	VariantBatchDelay    time.Duration
	VariantWorkers       int
	FetchRateLimit       float64
	// FetchAllowedHosts limits http(s) sources to these hosts and their
	// subdomains. Empty allows any public host.
	FetchAllowedHosts []string

	// Derived paths
	DatabasePath string
	VariantDir   string
	UploadDir    string

	// UploadsEnabled is false when the upload directory is not writable.
	UploadsEnabled bool

	// DiskStoreEnabled is false when the disk store was requested but the
	// variant directory is not writable; the memory store is used instead.
	DiskStoreEnabled bool
}

// LoadConfig loads and validates configuration from environment variables.
// A .env file (or the file named by ENV_FILE) is read first; variables
// already set in the environment win.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	envFile := loadDotEnv()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	if envFile != "" {
		logging.Info("  Loaded environment from %s", envFile)
	}

	port := getEnv("PORT", "8080")
	cacheDir := getEnv("CACHE_DIR", "/cache")
	databaseDir := getEnv("DATABASE_DIR", "/database")
	assetsDir := getEnv("ASSETS_DIR", "/assets")
	albumSeed := getEnv("ALBUM_SEED", "")
	backend := strings.ToLower(getEnv("VARIANT_BACKEND", "imaging"))
	store := strings.ToLower(getEnv("VARIANT_STORE", "memory"))
	maxAge := getEnvDuration("VARIANT_MAX_AGE", 720*time.Hour)
	sweepInterval := getEnvDuration("VARIANT_SWEEP_INTERVAL", 6*time.Hour)
	batchSize := getEnvInt("VARIANT_BATCH_SIZE", 3)
	batchDelay := getEnvDuration("VARIANT_BATCH_DELAY", 100*time.Millisecond)
	variantWorkers := getEnvInt("VARIANT_WORKERS", 0)
	fetchRate := getEnvFloat("FETCH_RATE_LIMIT", 10)
	allowedHosts := getEnvList("FETCH_ALLOWED_HOSTS")
	uploadDir := getEnv("UPLOAD_DIR", "")
	logStaticFiles := getEnvBool("LOG_STATIC_FILES", false)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)

	if backend != "imaging" && backend != "vips" {
		logging.Warn("  Invalid VARIANT_BACKEND %q, using default: imaging", backend)
		backend = "imaging"
	}
	if store != "memory" && store != "disk" {
		logging.Warn("  Invalid VARIANT_STORE %q, using default: memory", store)
		store = "memory"
	}
	if batchSize <= 0 {
		logging.Warn("  Invalid VARIANT_BATCH_SIZE %d, using default: 3", batchSize)
		batchSize = 3
	}
	if batchDelay < 0 {
		logging.Warn("  Invalid VARIANT_BATCH_DELAY %v, using default: 100ms", batchDelay)
		batchDelay = 100 * time.Millisecond
	}
	if maxAge <= 0 {
		logging.Warn("  Invalid VARIANT_MAX_AGE %v, using default: 720h", maxAge)
		maxAge = 720 * time.Hour
	}

	seedLabel := albumSeed
	if seedLabel == "" {
		seedLabel = "(embedded)"
	}

	logging.Info("  PORT:                    %s", port)
	logging.Info("  CACHE_DIR:               %s", cacheDir)
	logging.Info("  DATABASE_DIR:            %s", databaseDir)
	logging.Info("  ASSETS_DIR:              %s", assetsDir)
	logging.Info("  ALBUM_SEED:              %s", seedLabel)
	logging.Info("  VARIANT_BACKEND:         %s", backend)
	logging.Info("  VARIANT_STORE:           %s", store)
	logging.Info("  VARIANT_MAX_AGE:         %v", maxAge)
	logging.Info("  VARIANT_SWEEP_INTERVAL:  %v", sweepInterval)
	logging.Info("  VARIANT_BATCH_SIZE:      %d", batchSize)
	logging.Info("  VARIANT_BATCH_DELAY:     %v", batchDelay)
	logging.Info("  VARIANT_WORKERS:         %s", workersLabel(variantWorkers))
	logging.Info("  FETCH_RATE_LIMIT:        %.1f req/s", fetchRate)
	logging.Info("  FETCH_ALLOWED_HOSTS:     %s", hostsLabel(allowedHosts))
	logging.Info("  METRICS_ENABLED:         %v", metricsEnabled)
	logging.Info("  LOG_STATIC_FILES:        %v", logStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:       %v", logHealthChecks)
	logging.Info("  LOG_LEVEL:               %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	var err error
	for _, dir := range []struct {
		name string
		path *string
	}{
		{"cache", &cacheDir},
		{"database", &databaseDir},
		{"assets", &assetsDir},
	} {
		*dir.path, err = filepath.Abs(*dir.path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s directory path: %w", dir.name, err)
		}
		logging.Info("  %s directory (absolute): %s", dir.name, *dir.path)
	}

	// Uploads are originals and default to the persistent database volume
	if uploadDir == "" {
		uploadDir = filepath.Join(databaseDir, "uploads")
	}
	if uploadDir, err = filepath.Abs(uploadDir); err != nil {
		return nil, fmt.Errorf("failed to resolve upload directory path: %w", err)
	}
	logging.Info("  upload directory (absolute): %s", uploadDir)

	// Assets are mounted read-only, so only check they exist
	if err := ensureDirectory(assetsDir, "assets"); err != nil {
		logging.Warn("  Assets directory issue: %v", err)
	}

	config := &Config{
		Port:                 port,
		CacheDir:             cacheDir,
		DatabaseDir:          databaseDir,
		AssetsDir:            assetsDir,
		AlbumSeed:            albumSeed,
		LogStaticFiles:       logStaticFiles,
		LogHealthChecks:      logHealthChecks,
		MetricsEnabled:       metricsEnabled,
		VariantBackend:       backend,
		VariantStore:         store,
		VariantMaxAge:        maxAge,
		VariantSweepInterval: sweepInterval,
		VariantBatchSize:     batchSize,
		VariantBatchDelay:    batchDelay,
		VariantWorkers:       variantWorkers,
		FetchRateLimit:       fetchRate,
		FetchAllowedHosts:    allowedHosts,
		DatabasePath:         filepath.Join(databaseDir, "gallery.db"),
		VariantDir:           filepath.Join(cacheDir, "variants"),
		UploadDir:            uploadDir,
	}

	if err := ensureDirectory(databaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}

	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	if store == "disk" {
		config.DiskStoreEnabled = setupOptionalDir(config.VariantDir, "variants")
		if !config.DiskStoreEnabled {
			config.VariantStore = "memory"
		}
	}

	config.UploadsEnabled = setupOptionalDir(config.UploadDir, "uploads")

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:      ENABLED (required)")
	logging.Info("    Disk variants: %s", enabledString(config.DiskStoreEnabled))
	logging.Info("    Uploads:       %s", enabledString(config.UploadsEnabled))
	logging.Info("    Metrics:       %s", enabledString(config.MetricsEnabled))

	return config, nil
}

// loadDotEnv reads ENV_FILE (default ".env") into the process environment
// without overriding variables that are already set. It returns the file
// it loaded, or "" when there was none.
func loadDotEnv() string {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	if err := godotenv.Load(path); err != nil {
		logging.Warn("Failed to load %s: %v", path, err)
		return ""
	}
	return path
}

func workersLabel(n int) string {
	if n <= 0 {
		return "auto"
	}
	return strconv.Itoa(n)
}

func setupOptionalDir(path, name string) bool {
	logging.Debug("  Setting up %s directory: %s", name, path)

	if err := os.MkdirAll(path, 0o755); err != nil {
		logging.Warn("    Failed to create %s directory: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	testFile := filepath.Join(path, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		logging.Warn("    %s directory is not writable: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("    failed to remove test file %s: %v", testFile, err)
		// Still return true since write succeeded
	}

	logging.Debug("    [OK] %s directory ready", name)
	return true
}

func hostsLabel(hosts []string) string {
	if len(hosts) == 0 {
		return "(any public host)"
	}
	return strings.Join(hosts, ", ")
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogVariantsInit logs the variant pipeline setup
func LogVariantsInit(backend, store string, restored int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("VARIANT SERVICE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Backend:           %s", backend)
	logging.Info("  Store:             %s", store)
	logging.Info("  Restored entries:  %d", restored)
}

// LogAlbumsSeeded logs the result of seeding the album registry
func LogAlbumsSeeded(inserted int) {
	if inserted > 0 {
		logging.Info("  [OK] Seeded %d albums", inserted)
		return
	}
	logging.Info("  [OK] Album registry already populated")
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified (e.g., static file server)
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		// Group routes by prefix for cleaner output
		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		// Sort group keys
		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		// Print routes by group
		for _, group := range groupKeys {
			groupRoutes := groups[group]
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groupRoutes {
				methodPadded := fmt.Sprintf("%-6s", route.Method)
				logging.Debug("    %s %s", methodPadded, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logStaticFiles {
		logging.Info("    Static file logging: ON")
	} else {
		logging.Info("    Static file logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	// Remove leading slash
	path = strings.TrimPrefix(path, "/")

	// Get first segment
	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 {
		return ""
	}

	first := parts[0]

	// Special handling for API routes
	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.Port)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Local access:")
	logging.Info("    Application:   http://localhost:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://localhost:%s/metrics", config.Port)
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    ____  __          __           ______      ____
   / __ \/ /_  ____  / /_____     / ____/___ _/ / /__  _______  __
  / /_/ / __ \/ __ \/ __/ __ \   / / __/ __ '/ / / _ \/ ___/ / / /
 / ____/ / / / /_/ / /_/ /_/ /  / /_/ / /_/ / / /  __/ /  / /_/ /
/_/   /_/ /_/\____/\__/\____/   \____/\__,_/_/_/\___/_/   \__, /
                                                         /____/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")

	if name == "assets" && logging.IsDebugEnabled() {
		entries, err := os.ReadDir(path)
		if err == nil {
			fileCount := 0
			dirCount := 0
			for _, e := range entries {
				if e.IsDir() {
					dirCount++
				} else {
					fileCount++
				}
			}
			logging.Debug("    Contents: %d files, %d directories (top level)", fileCount, dirCount)
		}
	}

	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Don't return error since write access was confirmed
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logging.Warn("Invalid number for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getEnvList splits a comma separated variable, dropping blank items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
			out = append(out, item)
		}
	}
	return out
}
