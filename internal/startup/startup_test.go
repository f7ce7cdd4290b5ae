package startup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	// Check that all fields are populated
	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.GoVersion == "" {
		t.Error("Expected GoVersion to be set")
	}
	if info.OS == "" {
		t.Error("Expected OS to be set")
	}
	if info.Arch == "" {
		t.Error("Expected Arch to be set")
	}

	// Verify that runtime values are correct
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
		setEnv       bool
	}{
		{
			name:         "Returns default when env var not set",
			key:          "TEST_UNSET_VAR",
			defaultValue: "default",
			want:         "default",
			setEnv:       false,
		},
		{
			name:         "Returns env value when set",
			key:          "TEST_SET_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
			setEnv:       true,
		},
		{
			name:         "Returns empty string when env var is empty",
			key:          "TEST_EMPTY_VAR",
			defaultValue: "default",
			envValue:     "",
			want:         "",
			setEnv:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv(tt.key, tt.envValue)
			} else {
				// Ensure the variable is not set
				os.Unsetenv(tt.key)
				t.Cleanup(func() {
					os.Unsetenv(tt.key)
				})
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestRouteInfo(t *testing.T) {
	route := RouteInfo{
		Method: "GET",
		Path:   "/api/test",
		Name:   "TestRoute",
	}

	if route.Method != "GET" {
		t.Errorf("Expected Method=GET, got %s", route.Method)
	}
	if route.Path != "/api/test" {
		t.Errorf("Expected Path=/api/test, got %s", route.Path)
	}
	if route.Name != "TestRoute" {
		t.Errorf("Expected Name=TestRoute, got %s", route.Name)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
	}{
		{name: "unset keeps default", envValue: "", defaultValue: true, want: true},
		{name: "true", envValue: "true", defaultValue: false, want: true},
		{name: "false", envValue: "false", defaultValue: true, want: false},
		{name: "one", envValue: "1", defaultValue: false, want: true},
		{name: "zero", envValue: "0", defaultValue: true, want: false},
		{name: "invalid keeps default", envValue: "maybe", defaultValue: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL_VAR", tt.envValue)
			if got := getEnvBool("TEST_BOOL_VAR", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvNumbers(t *testing.T) {
	t.Run("int", func(t *testing.T) {
		t.Setenv("TEST_INT_VAR", "7")
		if got := getEnvInt("TEST_INT_VAR", 3); got != 7 {
			t.Errorf("getEnvInt() = %d, want 7", got)
		}
		t.Setenv("TEST_INT_VAR", "seven")
		if got := getEnvInt("TEST_INT_VAR", 3); got != 3 {
			t.Errorf("getEnvInt(invalid) = %d, want 3", got)
		}
	})

	t.Run("float", func(t *testing.T) {
		t.Setenv("TEST_FLOAT_VAR", "2.5")
		if got := getEnvFloat("TEST_FLOAT_VAR", 10); got != 2.5 {
			t.Errorf("getEnvFloat() = %v, want 2.5", got)
		}
		t.Setenv("TEST_FLOAT_VAR", "fast")
		if got := getEnvFloat("TEST_FLOAT_VAR", 10); got != 10 {
			t.Errorf("getEnvFloat(invalid) = %v, want 10", got)
		}
	})

	t.Run("duration", func(t *testing.T) {
		t.Setenv("TEST_DURATION_VAR", "250ms")
		if got := getEnvDuration("TEST_DURATION_VAR", time.Second); got != 250*time.Millisecond {
			t.Errorf("getEnvDuration() = %v, want 250ms", got)
		}
		t.Setenv("TEST_DURATION_VAR", "soon")
		if got := getEnvDuration("TEST_DURATION_VAR", time.Second); got != time.Second {
			t.Errorf("getEnvDuration(invalid) = %v, want 1s", got)
		}
	})
}

func setConfigEnv(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("ENV_FILE", filepath.Join(root, "missing.env"))
	t.Setenv("CACHE_DIR", filepath.Join(root, "cache"))
	t.Setenv("DATABASE_DIR", filepath.Join(root, "db"))
	t.Setenv("ASSETS_DIR", filepath.Join(root, "assets"))
	return root
}

func TestLoadConfigDefaults(t *testing.T) {
	root := setConfigEnv(t)
	for _, key := range []string{"PORT", "VARIANT_BACKEND", "VARIANT_STORE", "VARIANT_BATCH_SIZE",
		"VARIANT_BATCH_DELAY", "VARIANT_MAX_AGE", "VARIANT_WORKERS", "FETCH_RATE_LIMIT", "ALBUM_SEED",
		"FETCH_ALLOWED_HOSTS", "UPLOAD_DIR"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.VariantBackend != "imaging" || cfg.VariantStore != "memory" {
		t.Errorf("backend/store = %s/%s", cfg.VariantBackend, cfg.VariantStore)
	}
	if cfg.VariantMaxAge != 720*time.Hour || cfg.VariantSweepInterval != 6*time.Hour {
		t.Errorf("max age/sweep = %v/%v", cfg.VariantMaxAge, cfg.VariantSweepInterval)
	}
	if cfg.VariantBatchSize != 3 || cfg.VariantBatchDelay != 100*time.Millisecond {
		t.Errorf("batch = %d/%v", cfg.VariantBatchSize, cfg.VariantBatchDelay)
	}
	if cfg.FetchRateLimit != 10 {
		t.Errorf("FetchRateLimit = %v, want 10", cfg.FetchRateLimit)
	}
	if want := filepath.Join(root, "db", "gallery.db"); cfg.DatabasePath != want {
		t.Errorf("DatabasePath = %q, want %q", cfg.DatabasePath, want)
	}
	if cfg.DiskStoreEnabled {
		t.Error("DiskStoreEnabled should be false for the memory store")
	}
	if want := filepath.Join(root, "db", "uploads"); cfg.UploadDir != want || !cfg.UploadsEnabled {
		t.Errorf("uploads = %q enabled=%v, want %q/true", cfg.UploadDir, cfg.UploadsEnabled, want)
	}
	if len(cfg.FetchAllowedHosts) != 0 {
		t.Errorf("FetchAllowedHosts = %v, want none", cfg.FetchAllowedHosts)
	}
}

func TestLoadConfigUploadsAndHosts(t *testing.T) {
	root := setConfigEnv(t)
	t.Setenv("UPLOAD_DIR", filepath.Join(root, "originals"))
	t.Setenv("FETCH_ALLOWED_HOSTS", " images.example.org, ,CDN.example.net ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.UploadDir != filepath.Join(root, "originals") || !cfg.UploadsEnabled {
		t.Errorf("uploads = %q enabled=%v", cfg.UploadDir, cfg.UploadsEnabled)
	}
	if _, err := os.Stat(cfg.UploadDir); err != nil {
		t.Errorf("upload dir not created: %v", err)
	}
	want := []string{"images.example.org", "cdn.example.net"}
	if len(cfg.FetchAllowedHosts) != len(want) {
		t.Fatalf("FetchAllowedHosts = %v, want %v", cfg.FetchAllowedHosts, want)
	}
	for i := range want {
		if cfg.FetchAllowedHosts[i] != want[i] {
			t.Errorf("FetchAllowedHosts[%d] = %q, want %q", i, cfg.FetchAllowedHosts[i], want[i])
		}
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	root := setConfigEnv(t)
	t.Setenv("VARIANT_BACKEND", "VIPS")
	t.Setenv("VARIANT_STORE", "disk")
	t.Setenv("VARIANT_BATCH_SIZE", "-2")
	t.Setenv("VARIANT_BATCH_DELAY", "1s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.VariantBackend != "vips" {
		t.Errorf("VariantBackend = %q, want vips", cfg.VariantBackend)
	}
	if cfg.VariantStore != "disk" || !cfg.DiskStoreEnabled {
		t.Errorf("store = %q enabled=%v, want disk/true", cfg.VariantStore, cfg.DiskStoreEnabled)
	}
	if _, err := os.Stat(filepath.Join(root, "cache", "variants")); err != nil {
		t.Errorf("variant dir not created: %v", err)
	}
	if cfg.VariantBatchSize != 3 {
		t.Errorf("invalid batch size should fall back to 3, got %d", cfg.VariantBatchSize)
	}
	if cfg.VariantBatchDelay != time.Second {
		t.Errorf("VariantBatchDelay = %v, want 1s", cfg.VariantBatchDelay)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "PHOTO_GALLERY_DOTENV_TEST=from-file\nPHOTO_GALLERY_DOTENV_KEEP=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", path)
	t.Setenv("PHOTO_GALLERY_DOTENV_KEEP", "from-env")
	t.Cleanup(func() { os.Unsetenv("PHOTO_GALLERY_DOTENV_TEST") })

	if got := loadDotEnv(); got != path {
		t.Errorf("loadDotEnv() = %q, want %q", got, path)
	}
	if got := os.Getenv("PHOTO_GALLERY_DOTENV_TEST"); got != "from-file" {
		t.Errorf("PHOTO_GALLERY_DOTENV_TEST = %q, want from-file", got)
	}
	if got := os.Getenv("PHOTO_GALLERY_DOTENV_KEEP"); got != "from-env" {
		t.Errorf("existing variable overridden: %q", got)
	}

	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	if got := loadDotEnv(); got != "" {
		t.Errorf("loadDotEnv(absent) = %q, want empty", got)
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health", "health"},
		{"/api/albums/{id}", "api/albums"},
		{"/api/variant/{size}/{src:.+}", "api/variant"},
		{"/", ""},
	}
	for _, tt := range tests {
		if got := getRouteGroup(tt.path); got != tt.want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
