package albums

import (
	"slices"
	"testing"
)

func TestPreloadSources(t *testing.T) {
	tests := []struct {
		name  string
		album *Album
		want  []string
	}{
		{
			name:  "cover is first image",
			album: &Album{CoverImage: "1.jpg", Images: []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg"}},
			want:  []string{"1.jpg", "2.jpg", "3.jpg"},
		},
		{
			name:  "separate cover",
			album: &Album{CoverImage: "c.jpg", Images: []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg"}},
			want:  []string{"c.jpg", "1.jpg", "2.jpg", "3.jpg"},
		},
		{
			name:  "no cover falls back to first image",
			album: &Album{Images: []string{"1.jpg", "2.jpg"}},
			want:  []string{"1.jpg", "2.jpg"},
		},
		{
			name:  "duplicates within head",
			album: &Album{CoverImage: "2.jpg", Images: []string{"1.jpg", "2.jpg", "1.jpg"}},
			want:  []string{"2.jpg", "1.jpg"},
		},
		{name: "empty album", album: &Album{}, want: []string{}},
		{name: "nil album", album: nil, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PreloadSources(tt.album)
			if !slices.Equal(got, tt.want) {
				t.Errorf("PreloadSources() = %v, want %v", got, tt.want)
			}
		})
	}
}
