package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"

	"photo-gallery/internal/albums"
	"photo-gallery/internal/database"
	"photo-gallery/internal/startup"
	"photo-gallery/internal/variants"
)

// testEnv is a handler set over a seeded database, a memory variant store,
// a disk upload store and an asset root holding a.png and b.png.
type testEnv struct {
	h       *Handlers
	db      *database.Database
	svc     *variants.Service
	uploads *variants.DiskBlobStore
	assets  string
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{uint8(x), uint8(y), 0x80, 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tmpDir := t.TempDir()
	assets := filepath.Join(tmpDir, "assets")
	if err := os.MkdirAll(assets, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.png", "b.png"} {
		if err := os.WriteFile(filepath.Join(assets, name), pngBytes(t, 64, 32), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	db, err := database.New(context.Background(), filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	seed, err := albums.LoadSeed("")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Seed(context.Background(), seed); err != nil {
		t.Fatal(err)
	}

	uploads, err := variants.NewUploadStore(filepath.Join(tmpDir, "uploads"))
	if err != nil {
		t.Fatal(err)
	}
	store := variants.NewMemoryBlobStore()
	fetcher := &variants.SourceFetcher{
		Files: variants.NewFileFetcher(assets),
		Blobs: variants.NewBlobFetcher(store, uploads),
	}
	tr := variants.NewTranscoder(fetcher, store, variants.BackendImaging)
	svc := variants.NewService(tr, store, variants.Options{SweepInterval: -1, Workers: 2, Sources: uploads})
	t.Cleanup(svc.Stop)

	config := &startup.Config{VariantBatchSize: 2}
	return &testEnv{
		h:       New(db, svc, config, nil),
		db:      db,
		svc:     svc,
		uploads: uploads,
		assets:  assets,
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode %q: %v", w.Body.String(), err)
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{variants.ErrInvalidArgument, http.StatusBadRequest},
		{albums.ErrInvalidAlbum, http.StatusBadRequest},
		{database.ErrMissingSession, http.StatusBadRequest},
		{database.ErrAlbumNotFound, http.StatusNotFound},
		{variants.ErrNotFound, http.StatusNotFound},
		{errUnregisteredSource, http.StatusForbidden},
		{variants.ErrForbiddenSource, http.StatusForbidden},
		{variants.ErrStopped, http.StatusServiceUnavailable},
		{variants.ErrUploadsDisabled, http.StatusServiceUnavailable},
		{variants.ErrDecode, http.StatusInternalServerError},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusForError(tt.err); got != tt.want {
			t.Errorf("statusForError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestBlobPath(t *testing.T) {
	tests := []struct {
		ref  variants.Ref
		want string
	}{
		{"blob:mem/123", "/api/blob/mem/123"},
		{"blob:disk/abc.jpg", "/api/blob/disk/abc.jpg"},
		{variants.PlaceholderPrefix + "AAAA", variants.PlaceholderPrefix + "AAAA"},
	}
	for _, tt := range tests {
		if got := blobPath(tt.ref); got != tt.want {
			t.Errorf("blobPath(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSONError(w, "boom", http.StatusTeapot)

	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body map[string]string
	decodeBody(t, w, &body)
	if body["error"] != "boom" {
		t.Errorf("body = %v", body)
	}
}

func TestNewUsesConfiguredBatch(t *testing.T) {
	h := New(nil, nil, &startup.Config{VariantBatchSize: 5}, nil)
	if h.batch.Size != 5 {
		t.Errorf("batch size = %d, want 5", h.batch.Size)
	}

	h = New(nil, nil, nil, nil)
	if h.batch.Size != variants.DefaultBatchSize || h.batch.Delay != variants.DefaultBatchDelay {
		t.Errorf("default batch = %+v", h.batch)
	}
}

func TestGetVersion(t *testing.T) {
	env := setupTestEnv(t)

	w := httptest.NewRecorder()
	env.h.GetVersion(w, httptest.NewRequest(http.MethodGet, "/version", http.NoBody))

	var info startup.BuildInfo
	decodeBody(t, w, &info)
	if info.Version != startup.Version || info.GoVersion == "" {
		t.Errorf("build info = %+v", info)
	}
}

func TestMetricsHandler(t *testing.T) {
	h := New(nil, nil, nil, nil)
	w := httptest.NewRecorder()
	h.MetricsHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("go_goroutines")) {
		t.Error("metrics output missing go collector")
	}
}

// routed serves req through a router so path variables resolve.
func routed(path string, fn http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	r.HandleFunc(path, fn)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
