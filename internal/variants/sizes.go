package variants

import (
	"fmt"
	"math"
	"strings"
)

// SizeClass names one of the fixed output presets.
type SizeClass string

const (
	Thumbnail SizeClass = "thumbnail"
	Medium    SizeClass = "medium"
	Large     SizeClass = "large"
)

// SizeSpec is the target box and encode quality of a size class.
// Quality is in the range 0..1.
type SizeSpec struct {
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Quality float64 `json:"quality"`
}

var sizeSpecs = map[SizeClass]SizeSpec{
	Thumbnail: {Width: 400, Height: 400, Quality: 0.80},
	Medium:    {Width: 800, Height: 800, Quality: 0.85},
	Large:     {Width: 1200, Height: 1200, Quality: 0.90},
}

// SizeClasses returns every size class, smallest first.
func SizeClasses() []SizeClass {
	return []SizeClass{Thumbnail, Medium, Large}
}

// Spec returns the preset for class.
func Spec(class SizeClass) (SizeSpec, error) {
	spec, ok := sizeSpecs[class]
	if !ok {
		return SizeSpec{}, fmt.Errorf("%w: unknown size class %q", ErrInvalidArgument, class)
	}
	return spec, nil
}

// ParseSizeClass accepts a size class name in any case.
func ParseSizeClass(s string) (SizeClass, error) {
	class := SizeClass(strings.ToLower(strings.TrimSpace(s)))
	if _, err := Spec(class); err != nil {
		return "", err
	}
	return class, nil
}

// JPEGQuality maps Quality onto the 1..100 scale used by JPEG encoders.
func (s SizeSpec) JPEGQuality() int {
	q := int(math.Round(s.Quality * 100))
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}
