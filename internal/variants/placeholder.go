package variants

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"math"
	"sync"

	"photo-gallery/internal/metrics"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

const (
	defaultPlaceholderSide = 400
	maxPlaceholderSide     = 2048
	placeholderQuality     = 30
)

var (
	gradientStops = []color.NRGBA{
		{0x1f, 0x29, 0x37, 0xff},
		{0x11, 0x18, 0x27, 0xff},
		{0x0f, 0x17, 0x2a, 0xff},
	}
	glyphColor  = color.NRGBA{0x4b, 0x55, 0x63, 0xff}
	borderColor = color.NRGBA{0x37, 0x41, 0x51, 0xff}
)

// Placeholders renders and caches one placeholder image per square bucket.
// Entries are never aged out, only dropped by Clear.
type Placeholders struct {
	mu   sync.Mutex
	refs map[int]Ref
}

// NewPlaceholders returns an empty placeholder cache.
func NewPlaceholders() *Placeholders {
	return &Placeholders{refs: make(map[int]Ref)}
}

// Bucket returns the square side shared by all requests of a nominal size:
// max(width, height), 400 when neither is positive.
func Bucket(width, height int) int {
	side := max(width, height)
	if side <= 0 {
		return defaultPlaceholderSide
	}
	return min(side, maxPlaceholderSide)
}

// Get returns the placeholder for the bucket of (width, height), rendering
// it on first use.
func (p *Placeholders) Get(width, height int) Ref {
	side := Bucket(width, height)

	p.mu.Lock()
	defer p.mu.Unlock()

	if ref, ok := p.refs[side]; ok {
		return ref
	}

	ref := Ref(PlaceholderPrefix + base64.StdEncoding.EncodeToString(renderPlaceholder(side)))
	p.refs[side] = ref
	metrics.PlaceholderRendersTotal.Inc()
	return ref
}

// Len returns the number of cached buckets.
func (p *Placeholders) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.refs)
}

// Clear drops every cached placeholder.
func (p *Placeholders) Clear() {
	p.mu.Lock()
	p.refs = make(map[int]Ref)
	p.mu.Unlock()
}

// renderPlaceholder draws a radial gradient square with a centred camera
// glyph and a one pixel border, encoded as a low quality JPEG.
func renderPlaceholder(side int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, side, side))

	c := float64(side) / 2
	radius := c * math.Sqrt2
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			d := math.Hypot(float64(x)+0.5-c, float64(y)+0.5-c) / radius
			img.SetNRGBA(x, y, gradientAt(d))
		}
	}

	draw.DrawMask(img, img.Bounds(), image.NewUniform(glyphColor), image.Point{},
		cameraMask(side), image.Point{}, draw.Over)

	for i := 0; i < side; i++ {
		img.SetNRGBA(i, 0, borderColor)
		img.SetNRGBA(i, side-1, borderColor)
		img.SetNRGBA(0, i, borderColor)
		img.SetNRGBA(side-1, i, borderColor)
	}

	var buf bytes.Buffer
	// Encoding into a bytes.Buffer only fails on invalid options.
	_ = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(placeholderQuality))
	return buf.Bytes()
}

// gradientAt interpolates the gradient stops at t in [0, 1].
func gradientAt(t float64) color.NRGBA {
	t = math.Max(0, math.Min(1, t))
	seg := t * float64(len(gradientStops)-1)
	i := min(int(seg), len(gradientStops)-2)
	f := seg - float64(i)

	a, b := gradientStops[i], gradientStops[i+1]
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*f))
	}
	return color.NRGBA{lerp(a.R, b.R), lerp(a.G, b.G), lerp(a.B, b.B), 0xff}
}

// cameraMask is an alpha mask of a camera body with a viewfinder bump and a
// hollow lens, about 15% of side wide.
func cameraMask(side int) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, side, side))

	w := max(int(math.Round(float64(side)*0.15)), 6)
	h := max(w*2/3, 4)
	cx, cy := side/2, side/2

	body := image.Rect(cx-w/2, cy-h/2+h/8, cx+w/2, cy+h/2+h/8)
	bump := image.Rect(cx-w/6, body.Min.Y-h/6, cx+w/6, body.Min.Y)
	opaque := image.NewUniform(color.Alpha{A: 0xff})
	draw.Draw(mask, body, opaque, image.Point{}, draw.Src)
	draw.Draw(mask, bump, opaque, image.Point{}, draw.Src)

	lensCX, lensCY := float64(body.Min.X+body.Max.X)/2, float64(body.Min.Y+body.Max.Y)/2
	outer := float64(h) * 0.32
	inner := outer * 0.6
	for y := body.Min.Y; y < body.Max.Y; y++ {
		for x := body.Min.X; x < body.Max.X; x++ {
			d := math.Hypot(float64(x)+0.5-lensCX, float64(y)+0.5-lensCY)
			if d <= outer && d > inner {
				mask.SetAlpha(x, y, color.Alpha{})
			}
		}
	}
	return mask
}
