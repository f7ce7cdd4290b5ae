package variants

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"os"
	"strings"
	"testing"
)

// newUploadService returns a service whose uploads land in a disk store
// under a temp dir.
func newUploadService(t *testing.T, tr func(fetcher Fetcher, store BlobStore) Transcoder) (*Service, *MemoryBlobStore, *DiskBlobStore) {
	t.Helper()
	store := NewMemoryBlobStore()
	uploads, err := NewUploadStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	fetcher := &SourceFetcher{Blobs: NewBlobFetcher(store, uploads)}
	svc := NewService(tr(fetcher, store), store, Options{SweepInterval: -1, Workers: 4, Sources: uploads})
	t.Cleanup(svc.Stop)
	return svc, store, uploads
}

func imagingTranscoder(fetcher Fetcher, store BlobStore) Transcoder {
	return NewTranscoder(fetcher, store, BackendImaging)
}

func uploadFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	return len(entries)
}

func TestIngest(t *testing.T) {
	svc, store, uploads := newUploadService(t, imagingTranscoder)

	files := []Upload{
		{Name: "beach.png", Body: bytes.NewReader(solidPNG(t, 64, 32, color.NRGBA{0, 0x80, 0xff, 0xff}))},
		{Name: "notes.txt", ContentType: "text/plain", Body: strings.NewReader("hello")},
		{Name: "fake.png", ContentType: "image/png", Body: strings.NewReader("not really a png")},
	}

	var events []UploadProgress
	records, err := svc.Ingest(context.Background(), files, Thumbnail, func(p UploadProgress) {
		events = append(events, p)
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}

	ok := records[0]
	if ok.Status != UploadCompleted || ok.Progress != 100 || !ok.Source.Revocable() || !ok.Variant.Revocable() {
		t.Errorf("beach.png = %+v", ok)
	}
	if !strings.HasPrefix(string(ok.Source), "blob:upload/") {
		t.Errorf("source = %q, want a durable upload handle", ok.Source)
	}
	if !uploads.Exists(ok.Source) || !store.Exists(ok.Variant) {
		t.Error("ingested source or variant handle missing from its store")
	}
	if n := uploadFiles(t, uploads.dir); n != 1 {
		t.Errorf("upload dir holds %d files, want only the completed upload", n)
	}

	if r := records[1]; r.Status != UploadError || r.Error == "" || r.Source != "" {
		t.Errorf("notes.txt = %+v, want rejected before storing", r)
	}
	if r := records[2]; r.Status != UploadError || !strings.Contains(r.Error, "decode") {
		t.Errorf("fake.png = %+v, want decode error", r)
	}

	// pending for all three, then processing and completion per upload
	var beach []UploadStatus
	for _, e := range events {
		if e.Name == "beach.png" {
			beach = append(beach, e.Status)
		}
	}
	want := []UploadStatus{UploadPending, UploadProcessing, UploadProcessing, UploadCompleted}
	if len(beach) != len(want) {
		t.Fatalf("beach.png events = %v, want %v", beach, want)
	}
	for i := range want {
		if beach[i] != want[i] {
			t.Errorf("beach.png event %d = %s, want %s", i, beach[i], want[i])
		}
	}

	last := -1
	for _, e := range events {
		if e.Name == "beach.png" {
			if e.Progress < last {
				t.Errorf("progress went backwards: %d after %d", e.Progress, last)
			}
			last = e.Progress
		}
	}
}

func TestIngest_Errors(t *testing.T) {
	svc, _, _ := newUploadService(t, func(Fetcher, BlobStore) Transcoder {
		return &stubTranscoder{fn: fixedRef("ref://x")}
	})

	if _, err := svc.Ingest(context.Background(), nil, "poster", nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Ingest() bad class error = %v", err)
	}

	noUploads := newTestService(&stubTranscoder{fn: fixedRef("ref://x")}, nil, nil)
	if _, err := noUploads.Ingest(context.Background(), nil, Thumbnail, nil); !errors.Is(err, ErrUploadsDisabled) {
		t.Errorf("Ingest() without source store error = %v, want ErrUploadsDisabled", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	records, err := svc.Ingest(ctx, []Upload{{Name: "a.png", Body: strings.NewReader("x")}}, Thumbnail, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Ingest() error = %v, want context.Canceled", err)
	}
	if records[0].Status != UploadPending {
		t.Errorf("status = %s, want pending", records[0].Status)
	}
}

func TestIngest_CancelReleasesSource(t *testing.T) {
	gate := make(chan struct{})
	svc, _, uploads := newUploadService(t, func(Fetcher, BlobStore) Transcoder {
		return &stubTranscoder{gate: gate, fn: fixedRef("ref://x")}
	})
	defer close(gate)

	ctx, cancel := context.WithCancel(context.Background())
	records, err := svc.Ingest(ctx, []Upload{{Name: "a.png", Body: bytes.NewReader(solidPNG(t, 4, 4, color.White))}}, Thumbnail,
		func(p UploadProgress) {
			// cancel once the source is stored and the transcode is pending
			if p.Source != "" {
				cancel()
			}
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Ingest() error = %v, want context.Canceled", err)
	}
	if records[0].Source != "" {
		t.Errorf("record still names source %q", records[0].Source)
	}
	if n := uploadFiles(t, uploads.dir); n != 0 {
		t.Errorf("upload dir holds %d files after cancel, want 0", n)
	}
}

func TestReleaseSource(t *testing.T) {
	svc, store, uploads := newUploadService(t, imagingTranscoder)

	records, err := svc.Ingest(context.Background(),
		[]Upload{{Name: "a.png", Body: bytes.NewReader(solidPNG(t, 8, 8, color.White))}}, Medium, nil)
	if err != nil || records[0].Status != UploadCompleted {
		t.Fatalf("Ingest() = %+v, %v", records, err)
	}
	src, variant := records[0].Source, records[0].Variant

	blob, err := svc.OpenBlob(src)
	if err != nil || len(blob.Data) == 0 {
		t.Fatalf("OpenBlob(source) = %v", err)
	}

	if n := svc.ReleaseSource(string(src)); n != 1 {
		t.Errorf("ReleaseSource() evicted %d variants, want 1", n)
	}
	if uploads.Exists(src) || store.Exists(variant) {
		t.Error("source or variant survived ReleaseSource")
	}
	if _, err := svc.OpenBlob(src); !errors.Is(err, ErrNotFound) {
		t.Errorf("OpenBlob(released) error = %v, want ErrNotFound", err)
	}

	// Non-upload sources only lose their variants
	if n := svc.ReleaseSource("assets/x.jpg"); n != 0 {
		t.Errorf("ReleaseSource(uncached) = %d, want 0", n)
	}
}
