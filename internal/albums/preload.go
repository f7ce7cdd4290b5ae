package albums

// PreloadCount is the number of leading images warmed alongside the cover.
const PreloadCount = 3

// PreloadSources returns the cover (or first image) followed by the first
// PreloadCount images, with duplicates and blanks removed.
func PreloadSources(a *Album) []string {
	if a == nil {
		return nil
	}
	head := a.Images
	if len(head) > PreloadCount {
		head = head[:PreloadCount]
	}

	out := make([]string, 0, len(head)+1)
	seen := make(map[string]bool, len(head)+1)
	add := func(src string) {
		if src == "" || seen[src] {
			return
		}
		seen[src] = true
		out = append(out, src)
	}

	add(a.Cover())
	for _, src := range head {
		add(src)
	}
	return out
}
