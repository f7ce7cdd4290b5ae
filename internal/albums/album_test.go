package albums

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleAlbums() []Album {
	return []Album{
		{ID: "a", Title: "Night Portraits", Description: "retratos", Category: "portraits", Featured: true,
			Tags: []string{"nocturno", "drama"}, Images: []string{"1.jpg", "2.jpg"}, Date: day("2024-03-15"), Views: 10, UniqueViews: 4},
		{ID: "b", Title: "Urban Shadows", Description: "la ciudad", Category: "urban",
			Tags: []string{"urbano", "nocturno"}, Images: []string{"3.jpg"}, Date: day("2024-02-08"), Views: 5, UniqueViews: 2},
		{ID: "c", Title: "Golden Moments", Description: "hora dorada", Category: "outdoor",
			Tags: []string{"Dorado"}, Images: nil, Date: day("2024-01-20"), Views: 1, UniqueViews: 1},
		{ID: "d", Title: "Undated", Category: "urban"},
	}
}

func ids(list []Album) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.ID
	}
	return out
}

func TestAlbumCover(t *testing.T) {
	tests := []struct {
		name  string
		album Album
		want  string
	}{
		{name: "explicit cover", album: Album{CoverImage: "c.jpg", Images: []string{"a.jpg"}}, want: "c.jpg"},
		{name: "first image fallback", album: Album{Images: []string{"a.jpg", "b.jpg"}}, want: "a.jpg"},
		{name: "empty album", album: Album{}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.album.Cover(); got != tt.want {
				t.Errorf("Cover() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAlbumValidate(t *testing.T) {
	tests := []struct {
		name    string
		album   Album
		wantErr bool
	}{
		{name: "valid", album: Album{Title: "t", Images: []string{"a.jpg"}}},
		{name: "no images is allowed", album: Album{Title: "t"}},
		{name: "blank title", album: Album{Title: "   "}, wantErr: true},
		{name: "blank image", album: Album{Title: "t", Images: []string{"a.jpg", ""}}, wantErr: true},
		{name: "negative views", album: Album{Title: "t", Views: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.album.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAlbum) {
					t.Errorf("Validate() = %v, want ErrInvalidAlbum", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestFilterApply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "no criteria", filter: Filter{}, want: []string{"a", "b", "c", "d"}},
		{name: "category", filter: Filter{Category: "urban"}, want: []string{"b", "d"}},
		{name: "featured", filter: Filter{Featured: true}, want: []string{"a"}},
		{name: "query on title", filter: Filter{Query: "SHADOW"}, want: []string{"b"}},
		{name: "query on description", filter: Filter{Query: "dorada"}, want: []string{"c"}},
		{name: "query on tag", filter: Filter{Query: "nocturno"}, want: []string{"a", "b"}},
		{name: "query on tag ignores case", filter: Filter{Query: "dorado"}, want: []string{"c"}},
		{name: "combined", filter: Filter{Query: "nocturno", Category: "urban"}, want: []string{"b"}},
		{name: "no match", filter: Filter{Query: "zzz"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(tt.filter.Apply(sampleAlbums()))
			if !slices.Equal(got, tt.want) {
				t.Errorf("Apply() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecent(t *testing.T) {
	tests := []struct {
		name    string
		exclude string
		limit   int
		want    []string
	}{
		{name: "newest first", limit: 10, want: []string{"a", "b", "c", "d"}},
		{name: "exclude current", exclude: "a", limit: 10, want: []string{"b", "c", "d"}},
		{name: "limit", limit: 2, want: []string{"a", "b"}},
		{name: "default limit", limit: 0, want: []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Recent(sampleAlbums(), tt.exclude, tt.limit))
			if !slices.Equal(got, tt.want) {
				t.Errorf("Recent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleAlbums())

	if s.TotalAlbums != 4 || s.TotalImages != 3 || s.TotalViews != 16 || s.TotalUniqueViews != 7 {
		t.Errorf("totals = %+v", s)
	}
	if want := []string{"portraits", "urban", "outdoor"}; !slices.Equal(s.Categories, want) {
		t.Errorf("Categories = %v, want %v", s.Categories, want)
	}
	if want := []string{"nocturno", "drama", "urbano", "Dorado"}; !slices.Equal(s.Tags, want) {
		t.Errorf("Tags = %v, want %v", s.Tags, want)
	}

	empty := Summarize(nil)
	if empty.Categories == nil || empty.Tags == nil {
		t.Error("empty summary should carry non-nil slices")
	}
}
