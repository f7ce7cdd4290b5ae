package variants

import (
	"bytes"
	"encoding/base64"
	"image/jpeg"
	"strings"
	"testing"
)

func TestBucket(t *testing.T) {
	tests := []struct {
		w, h int
		want int
	}{
		{400, 400, 400},
		{390, 400, 400},
		{400, 390, 400},
		{800, 600, 800},
		{0, 0, 400},
		{-5, -1, 400},
		{10000, 10, maxPlaceholderSide},
	}
	for _, tt := range tests {
		if got := Bucket(tt.w, tt.h); got != tt.want {
			t.Errorf("Bucket(%d, %d) = %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestPlaceholders_SharedBucket(t *testing.T) {
	p := NewPlaceholders()

	a := p.Get(400, 400)
	b := p.Get(390, 400)

	if a != b {
		t.Fatal("placeholders for the same bucket differ")
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1 cached bucket", p.Len())
	}
	if !a.IsPlaceholder() || !strings.HasPrefix(string(a), "data:image/jpeg;base64,") {
		t.Errorf("placeholder %q... lacks data URL prefix", string(a)[:30])
	}

	if c := p.Get(800, 800); c == a {
		t.Error("different buckets share a placeholder")
	}
	if p.Len() != 2 {
		t.Errorf("Len() = %d, want 2", p.Len())
	}

	p.Clear()
	if p.Len() != 0 {
		t.Errorf("Len() after Clear() = %d, want 0", p.Len())
	}
}

func TestPlaceholders_RenderedImage(t *testing.T) {
	ref := NewPlaceholders().Get(120, 80)

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(string(ref), PlaceholderPrefix))
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("payload is not a JPEG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 120 {
		t.Errorf("placeholder is %dx%d, want 120x120", b.Dx(), b.Dy())
	}

	// dark everywhere, the glyph is only slightly lighter than the gradient
	r, g, b, _ := img.At(60, 60).RGBA()
	if r>>8 > 0x80 || g>>8 > 0x80 || b>>8 > 0x80 {
		t.Errorf("centre pixel too bright: %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestGradientAt(t *testing.T) {
	if got := gradientAt(0); got != gradientStops[0] {
		t.Errorf("gradientAt(0) = %v, want %v", got, gradientStops[0])
	}
	if got := gradientAt(1); got != gradientStops[2] {
		t.Errorf("gradientAt(1) = %v, want %v", got, gradientStops[2])
	}
	if got := gradientAt(0.5); got != gradientStops[1] {
		t.Errorf("gradientAt(0.5) = %v, want %v", got, gradientStops[1])
	}
	if got := gradientAt(2); got != gradientStops[2] {
		t.Errorf("gradientAt(2) = %v, want clamped", got)
	}
}
