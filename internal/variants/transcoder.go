package variants

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	// Source decoders beyond the JPEG/PNG/GIF set imaging registers.
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
)

// Encoded describes the output of a transcode.
type Encoded struct {
	Ref    Ref
	Size   int64
	Format string
}

// Transcoder produces one size class variant of a source image. The
// returned Ref is owned by the caller.
type Transcoder interface {
	Transcode(ctx context.Context, source string, class SizeClass) (Encoded, error)
}

// Backend selects the decode and resize implementation.
type Backend string

const (
	BackendImaging Backend = "imaging"
	BackendVips    Backend = "vips"
)

const (
	// MaxSourceDimension is the widest edge a source may have.
	MaxSourceDimension = 16384

	// MaxSourcePixels bounds width*height of a decoded source. At four bytes
	// per pixel this keeps a single decode under ~200MB.
	MaxSourcePixels = 50_000_000
)

// ErrTooLarge is wrapped into ErrDecode when a source exceeds the pixel
// budget.
var ErrTooLarge = errors.New("source image too large")

// checkPixels rejects dimensions outside the decode budget.
func checkPixels(w, h int) error {
	if w > MaxSourceDimension || h > MaxSourceDimension || w*h > MaxSourcePixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels or %d per edge",
			ErrTooLarge, w, h, MaxSourcePixels, MaxSourceDimension)
	}
	return nil
}

// sourceConfig reads the image header without decoding the pixel data.
func sourceConfig(data []byte) (image.Config, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	return cfg, err
}

// Background fills the letterbox area of every variant.
var Background = color.NRGBA{0x1a, 0x1a, 0x1a, 0xff}

// FitRect returns the region a srcW x srcH image occupies when contain-fit
// into a dstW x dstH box: uniformly scaled by min(dstW/srcW, dstH/srcH) and
// centred.
func FitRect(srcW, srcH, dstW, dstH int) image.Rectangle {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return image.Rectangle{}
	}

	scale := math.Min(float64(dstW)/float64(srcW), float64(dstH)/float64(srcH))
	w := min(max(int(math.Round(float64(srcW)*scale)), 1), dstW)
	h := min(max(int(math.Round(float64(srcH)*scale)), 1), dstH)

	x := (dstW - w) / 2
	y := (dstH - h) / 2
	return image.Rect(x, y, x+w, y+h)
}

// scaler decodes data and returns it contain-fit into a dstW x dstH box,
// at the fitted size rather than the full box.
type scaler func(data []byte, dstW, dstH int) (image.Image, error)

// ImageTranscoder fetches a source, contain-fits it onto an opaque square
// canvas and stores the JPEG result in a BlobStore.
type ImageTranscoder struct {
	fetcher Fetcher
	store   BlobStore
	scale   scaler
	backend Backend
}

// NewTranscoder returns a transcoder for backend. The vips backend falls
// back to imaging when libvips has not been initialized.
func NewTranscoder(fetcher Fetcher, store BlobStore, backend Backend) *ImageTranscoder {
	t := &ImageTranscoder{fetcher: fetcher, store: store, scale: scaleImaging, backend: BackendImaging}
	if backend == BackendVips {
		if VipsAvailable() {
			t.scale, t.backend = scaleVips, BackendVips
		} else {
			log.Warn("libvips not available, using imaging backend")
		}
	}
	return t
}

// Backend reports the backend in use.
func (t *ImageTranscoder) Backend() Backend {
	return t.backend
}

func (t *ImageTranscoder) Transcode(ctx context.Context, source string, class SizeClass) (Encoded, error) {
	spec, err := Spec(class)
	if err != nil {
		return Encoded{}, err
	}

	data, err := t.fetcher.Fetch(ctx, source)
	if err != nil {
		return Encoded{}, fmt.Errorf("%w: fetch %s: %w", ErrDecode, source, err)
	}

	scaled, err := t.scale(data, spec.Width, spec.Height)
	if err != nil {
		return Encoded{}, fmt.Errorf("%w: %s: %w", ErrDecode, source, err)
	}

	canvas := compose(scaled, spec.Width, spec.Height)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(spec.JPEGQuality())); err != nil {
		return Encoded{}, fmt.Errorf("%w: %s: %w", ErrEncode, source, err)
	}

	ref, err := t.store.Create(buf.Bytes(), "image/jpeg")
	if err != nil {
		return Encoded{}, fmt.Errorf("%w: store %s: %w", ErrEncode, source, err)
	}

	return Encoded{Ref: ref, Size: int64(buf.Len()), Format: "jpeg"}, nil
}

// compose centres scaled on a dstW x dstH canvas filled with Background.
func compose(scaled image.Image, dstW, dstH int) *image.NRGBA {
	canvas := imaging.New(dstW, dstH, Background)
	b := scaled.Bounds()
	pos := image.Pt((dstW-b.Dx())/2, (dstH-b.Dy())/2)
	return imaging.Paste(canvas, scaled, pos)
}

func scaleImaging(data []byte, dstW, dstH int) (image.Image, error) {
	cfg, err := sourceConfig(data)
	if err != nil {
		return nil, err
	}
	if err := checkPixels(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	fit := FitRect(b.Dx(), b.Dy(), dstW, dstH)
	if fit.Empty() {
		return nil, fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy())
	}
	return imaging.Resize(img, fit.Dx(), fit.Dy(), imaging.Lanczos), nil
}
