package variants

import "strings"

// Ref is an opaque handle a presentation layer can use as an image source.
// Refs beginning with "blob:" are owned handles that must be revoked when
// released; placeholder refs are inline data URLs and need no release.
type Ref string

const (
	// PlaceholderPrefix marks every placeholder ref.
	PlaceholderPrefix = "data:image/jpeg;base64,"

	blobScheme = "blob:"
)

// IsPlaceholder reports whether r is a generated placeholder.
func (r Ref) IsPlaceholder() bool {
	return strings.HasPrefix(string(r), PlaceholderPrefix)
}

// Revocable reports whether r refers to a blob store handle.
func (r Ref) Revocable() bool {
	return strings.HasPrefix(string(r), blobScheme)
}

func (r Ref) String() string {
	return string(r)
}
