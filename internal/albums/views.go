package albums

import (
	"fmt"
	"strings"
	"time"
)

// View is one recorded album view.
type View struct {
	ID        int64     `json:"id"`
	AlbumID   string    `json:"albumId"`
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
	UserAgent string    `json:"userAgent,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
}

// DailyViews counts the views of one UTC day, formatted YYYY-MM-DD.
type DailyViews struct {
	Date  string `json:"date"`
	Views int    `json:"views"`
}

// ViewCount ranks an album by its view totals.
type ViewCount struct {
	AlbumID     string `json:"albumId"`
	Title       string `json:"title"`
	Views       int    `json:"views"`
	UniqueViews int    `json:"uniqueViews"`
}

// ViewStats summarises recorded views. Seeded base counts carry no sessions
// or timestamps and are not part of it.
type ViewStats struct {
	TotalViews         int     `json:"totalViews"`
	UniqueVisitors     int     `json:"uniqueVisitors"`
	AvgViewsPerVisitor float64 `json:"avgViewsPerVisitor"`
	AlbumsViewed       int     `json:"albumsViewed"`
	ViewsLast30Days    int     `json:"viewsLast30Days"`
	ViewsLast7Days     int     `json:"viewsLast7Days"`
	ViewsToday         int     `json:"viewsToday"`
}

const (
	// DefaultViewWindowDays is the ViewsByDate window when none is given.
	DefaultViewWindowDays = 30
	// DefaultViewRetentionDays is the age beyond which old views are folded
	// into the album base counts.
	DefaultViewRetentionDays = 365
	// DefaultMostViewedLimit caps the most viewed ranking.
	DefaultMostViewedLimit = 10

	maxViewField = 512
)

// ClipViewField trims and bounds a client supplied header value.
func ClipViewField(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxViewField {
		s = s[:maxViewField]
	}
	return s
}

// Patch is a partial album update. Nil fields are left unchanged; Images
// and Tags replace the whole list when present. Identity and view counts
// cannot be patched.
type Patch struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Category    *string    `json:"category"`
	Featured    *bool      `json:"featured"`
	Tags        []string   `json:"tags"`
	Location    *string    `json:"location"`
	CoverImage  *string    `json:"coverImage"`
	Images      []string   `json:"images"`
	Date        *time.Time `json:"date"`
}

// Apply returns a copy of a with the patch applied and validated.
func (p Patch) Apply(a Album) (Album, error) {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.Category != nil {
		a.Category = *p.Category
	}
	if p.Featured != nil {
		a.Featured = *p.Featured
	}
	if p.Tags != nil {
		a.Tags = append([]string{}, p.Tags...)
	}
	if p.Location != nil {
		a.Location = *p.Location
	}
	if p.CoverImage != nil {
		a.CoverImage = *p.CoverImage
	}
	if p.Images != nil {
		a.Images = append([]string{}, p.Images...)
	}
	if p.Date != nil {
		if p.Date.IsZero() {
			return Album{}, fmt.Errorf("%w: date cannot be empty", ErrInvalidAlbum)
		}
		a.Date = p.Date.UTC()
	}
	if err := a.Validate(); err != nil {
		return Album{}, err
	}
	return a, nil
}

// Removed returns the sources of before that after no longer lists,
// including a replaced cover image.
func Removed(before, after *Album) []string {
	keep := make(map[string]bool, len(after.Images)+1)
	for _, src := range after.Images {
		keep[src] = true
	}
	keep[after.CoverImage] = true

	var out []string
	seen := make(map[string]bool)
	for _, src := range append(append([]string{}, before.Images...), before.CoverImage) {
		if src == "" || keep[src] || seen[src] {
			continue
		}
		seen[src] = true
		out = append(out, src)
	}
	return out
}
