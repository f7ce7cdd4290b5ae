package variants

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

// mapFetcher serves sources from memory.
type mapFetcher map[string][]byte

func (m mapFetcher) Fetch(_ context.Context, source string) ([]byte, error) {
	data, ok := m[source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, source)
	}
	return data, nil
}

// stubTranscoder counts calls per key and delegates to fn. While gate is
// open (non-nil and not closed) every call blocks on it.
type stubTranscoder struct {
	calls atomic.Int32
	gate  chan struct{}
	fn    func(source string, class SizeClass) (Encoded, error)

	mu     sync.Mutex
	perKey map[Key]int
}

func (s *stubTranscoder) Transcode(_ context.Context, source string, class SizeClass) (Encoded, error) {
	s.calls.Add(1)
	s.mu.Lock()
	if s.perKey == nil {
		s.perKey = make(map[Key]int)
	}
	s.perKey[Key{Source: source, Class: class}]++
	s.mu.Unlock()

	if s.gate != nil {
		<-s.gate
	}
	return s.fn(source, class)
}

func (s *stubTranscoder) callsFor(k Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perKey[k]
}

// fixedRef returns the same non-revocable ref for every source.
func fixedRef(ref Ref) func(string, SizeClass) (Encoded, error) {
	return func(string, SizeClass) (Encoded, error) {
		return Encoded{Ref: ref, Size: 42, Format: "jpeg"}, nil
	}
}

// storeBacked creates a real handle in store for every call.
func storeBacked(store BlobStore) func(string, SizeClass) (Encoded, error) {
	return func(source string, class SizeClass) (Encoded, error) {
		ref, err := store.Create([]byte(source+"/"+string(class)), "image/jpeg")
		return Encoded{Ref: ref, Size: int64(len(source)), Format: "jpeg"}, err
	}
}
