package variants

import (
	"bytes"
	"fmt"
	"image"
	"sync"

	"photo-gallery/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"
)

var (
	vipsMu      sync.Mutex
	vipsStarted bool
)

// vipsThreshold maps the application log level onto the lowest libvips
// level worth forwarding.
func vipsThreshold(level logging.LogLevel) vips.LogLevel {
	switch level {
	case logging.LevelDebug:
		return vips.LogLevelInfo
	case logging.LevelWarn:
		return vips.LogLevelError
	case logging.LevelError:
		return vips.LogLevelCritical
	default:
		return vips.LogLevelWarning
	}
}

func forwardVipsLog(domain string, level vips.LogLevel, msg string) {
	switch {
	case level <= vips.LogLevelCritical:
		logging.Error("[%s] %s", domain, msg)
	case level <= vips.LogLevelWarning:
		logging.Warn("[%s] %s", domain, msg)
	default:
		logging.Debug("[%s] %s", domain, msg)
	}
}

// InitVips starts libvips once per process. Call it at startup when
// VARIANT_BACKEND=vips.
func InitVips() error {
	vipsMu.Lock()
	defer vipsMu.Unlock()

	if vipsStarted {
		return nil
	}

	vips.LoggingSettings(forwardVipsLog, vipsThreshold(logging.GetLevel()))
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	vipsStarted = true
	logging.Info("libvips initialized (version: %s)", vips.Version)
	return nil
}

// ShutdownVips releases libvips resources.
func ShutdownVips() {
	vipsMu.Lock()
	defer vipsMu.Unlock()

	if vipsStarted {
		vips.Shutdown()
		vipsStarted = false
		logging.Info("libvips shutdown complete")
	}
}

// VipsAvailable reports whether InitVips has run.
func VipsAvailable() bool {
	vipsMu.Lock()
	defer vipsMu.Unlock()
	return vipsStarted
}

// scaleVips shrinks during decode, which keeps full resolution bitmaps of
// large sources out of memory. The result goes through the same compositing
// path as the imaging backend.
func scaleVips(data []byte, dstW, dstH int) (image.Image, error) {
	// Formats Go cannot parse are checked once vips has read the header.
	if cfg, err := sourceConfig(data); err == nil {
		if err := checkPixels(cfg.Width, cfg.Height); err != nil {
			return nil, err
		}
	}

	ref, err := vips.LoadImageFromBuffer(data, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips load: %w", err)
	}
	defer ref.Close()

	if err := checkPixels(ref.Width(), ref.Height()); err != nil {
		return nil, err
	}

	if err := ref.AutoRotate(); err != nil {
		return nil, fmt.Errorf("vips rotate: %w", err)
	}

	fit := FitRect(ref.Width(), ref.Height(), dstW, dstH)
	if fit.Empty() {
		return nil, fmt.Errorf("empty image %dx%d", ref.Width(), ref.Height())
	}

	if err := ref.Thumbnail(fit.Dx(), fit.Dy(), vips.InterestingNone); err != nil {
		return nil, fmt.Errorf("vips resize: %w", err)
	}

	out, _, err := ref.ExportJpeg(&vips.JpegExportParams{Quality: 95, OptimizeCoding: true})
	if err != nil {
		return nil, fmt.Errorf("vips export: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decode vips output: %w", err)
	}

	// Thumbnail may round one edge differently.
	if b := img.Bounds(); b.Dx() != fit.Dx() || b.Dy() != fit.Dy() {
		img = imaging.Resize(img, fit.Dx(), fit.Dy(), imaging.Lanczos)
	}
	return img, nil
}
