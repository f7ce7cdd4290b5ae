package albums

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
)

// ErrInvalidAlbum is returned when an album fails validation.
var ErrInvalidAlbum = errors.New("invalid album")

// Album is a titled, ordered collection of gallery images.
type Album struct {
	ID          string    `json:"id" toml:"id"`
	Title       string    `json:"title" toml:"title"`
	Description string    `json:"description" toml:"description"`
	Category    string    `json:"category,omitempty" toml:"category"`
	Featured    bool      `json:"featured" toml:"featured"`
	Tags        []string  `json:"tags" toml:"tags"`
	Location    string    `json:"location,omitempty" toml:"location"`
	CoverImage  string    `json:"coverImage,omitempty" toml:"cover_image"`
	Images      []string  `json:"images" toml:"images"`
	Date        time.Time `json:"date" toml:"date"`
	CreatedAt   time.Time `json:"createdAt" toml:"created_at"`
	Views       int       `json:"views" toml:"views"`
	UniqueViews int       `json:"uniqueViews" toml:"unique_views"`
}

// Cover returns the cover image, falling back to the first image.
func (a *Album) Cover() string {
	if a.CoverImage != "" {
		return a.CoverImage
	}
	if len(a.Images) > 0 {
		return a.Images[0]
	}
	return ""
}

// Validate checks the fields a client must supply when creating an album.
func (a *Album) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidAlbum)
	}
	for i, img := range a.Images {
		if strings.TrimSpace(img) == "" {
			return fmt.Errorf("%w: image %d is empty", ErrInvalidAlbum, i)
		}
	}
	if a.Views < 0 || a.UniqueViews < 0 {
		return fmt.Errorf("%w: view counts cannot be negative", ErrInvalidAlbum)
	}
	return nil
}

// Matches reports whether the title, description or any tag contains the
// query, ignoring case. An empty query matches everything.
func (a *Album) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(a.Title), q) ||
		strings.Contains(strings.ToLower(a.Description), q) {
		return true
	}
	return slices.ContainsFunc(a.Tags, func(tag string) bool {
		return strings.Contains(strings.ToLower(tag), q)
	})
}

// Filter narrows an album listing. Zero values disable each criterion.
type Filter struct {
	Query    string
	Category string
	Featured bool
}

// Apply returns the albums matching every set criterion, preserving order.
func (f Filter) Apply(list []Album) []Album {
	out := make([]Album, 0, len(list))
	for i := range list {
		a := &list[i]
		if f.Category != "" && a.Category != f.Category {
			continue
		}
		if f.Featured && !a.Featured {
			continue
		}
		if !a.Matches(f.Query) {
			continue
		}
		out = append(out, *a)
	}
	return out
}

// DefaultRecentLimit is the number of albums Recent returns when limit <= 0.
const DefaultRecentLimit = 6

// Recent returns up to limit albums newest first by Date, skipping excludeID.
// Albums without a date sort last.
func Recent(list []Album, excludeID string, limit int) []Album {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	out := make([]Album, 0, len(list))
	for _, a := range list {
		if a.ID == excludeID {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Stats summarises the registry.
type Stats struct {
	TotalAlbums      int      `json:"totalAlbums"`
	TotalImages      int      `json:"totalImages"`
	TotalViews       int      `json:"totalViews"`
	TotalUniqueViews int      `json:"totalUniqueViews"`
	Categories       []string `json:"categories"`
	Tags             []string `json:"allTags"`
}

// Summarize computes Stats. Categories and tags are distinct and keep the
// order of first appearance.
func Summarize(list []Album) Stats {
	s := Stats{TotalAlbums: len(list), Categories: []string{}, Tags: []string{}}
	seenCat := make(map[string]bool)
	seenTag := make(map[string]bool)
	for _, a := range list {
		s.TotalImages += len(a.Images)
		s.TotalViews += a.Views
		s.TotalUniqueViews += a.UniqueViews
		if a.Category != "" && !seenCat[a.Category] {
			seenCat[a.Category] = true
			s.Categories = append(s.Categories, a.Category)
		}
		for _, t := range a.Tags {
			if !seenTag[t] {
				seenTag[t] = true
				s.Tags = append(s.Tags, t)
			}
		}
	}
	return s
}
