package variants

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"photo-gallery/internal/metrics"
)

// UploadStatus is the lifecycle state of one upload.
type UploadStatus string

const (
	UploadPending    UploadStatus = "pending"
	UploadProcessing UploadStatus = "processing"
	UploadCompleted  UploadStatus = "completed"
	UploadError      UploadStatus = "error"
)

// Upload is one user supplied image file.
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// UploadProgress reports the state of one upload. Progress runs 0..100.
type UploadProgress struct {
	Name     string       `json:"name"`
	Source   Ref          `json:"source,omitempty"`
	Variant  Ref          `json:"variant,omitempty"`
	Progress int          `json:"progress"`
	Status   UploadStatus `json:"status"`
	Error    string       `json:"error,omitempty"`
}

// Ingest stores each upload as a "blob:" source in the durable source store
// and produces its class variant. onProgress, when set, receives every state
// change. A failed upload is recorded and the next one proceeds; only an
// invalid class or a cancelled ctx stop the run. Sources of uploads that did
// not complete are released before Ingest returns.
func (s *Service) Ingest(ctx context.Context, uploads []Upload, class SizeClass, onProgress func(UploadProgress)) ([]UploadProgress, error) {
	if _, err := Spec(class); err != nil {
		return nil, err
	}
	if s.sources == nil {
		return nil, ErrUploadsDisabled
	}

	records := make([]UploadProgress, len(uploads))
	for i, u := range uploads {
		records[i] = UploadProgress{Name: u.Name, Status: UploadPending}
	}

	report := func(i int) {
		if onProgress != nil {
			onProgress(records[i])
		}
	}
	fail := func(i int, err error) {
		records[i].Status = UploadError
		records[i].Error = err.Error()
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		log.Warn("upload %q failed: %v", records[i].Name, err)
		report(i)
	}

	for i := range records {
		report(i)
	}

	for i, u := range uploads {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		records[i].Status = UploadProcessing
		records[i].Progress = 10
		report(i)

		data, err := readLimited(u.Body)
		if err != nil {
			fail(i, fmt.Errorf("read: %w", err))
			continue
		}

		contentType := u.ContentType
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(data)
		}
		if !strings.HasPrefix(contentType, "image/") {
			fail(i, fmt.Errorf("%w: %s is not an image", ErrInvalidArgument, contentType))
			continue
		}

		source, err := s.sources.Create(data, contentType)
		if err != nil {
			fail(i, fmt.Errorf("store: %w", err))
			continue
		}
		records[i].Source = source
		records[i].Progress = 50
		report(i)

		variant, err := s.Ensure(ctx, string(source), class)
		if err != nil {
			s.ReleaseSource(string(source))
			records[i].Source = ""
			if ctx.Err() != nil {
				return records, ctx.Err()
			}
			fail(i, err)
			continue
		}

		records[i].Variant = variant
		records[i].Progress = 100
		records[i].Status = UploadCompleted
		metrics.UploadsTotal.WithLabelValues("completed").Inc()
		report(i)
	}

	return records, nil
}
