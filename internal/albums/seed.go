package albums

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed seed.toml
var embeddedSeed string

type seedFile struct {
	Albums []Album `toml:"album"`
}

// LoadSeed reads the seed catalogue from path, or the embedded one when path
// is empty. Every album must validate and carry a unique id.
func LoadSeed(path string) ([]Album, error) {
	data := embeddedSeed
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read album seed: %w", err)
		}
		data = string(raw)
	}
	return ParseSeed(data)
}

// ParseSeed decodes a TOML catalogue of [[album]] tables.
func ParseSeed(data string) ([]Album, error) {
	var f seedFile
	md, err := toml.Decode(data, &f)
	if err != nil {
		return nil, fmt.Errorf("parse album seed: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse album seed: unknown key %q", undecoded[0].String())
	}

	ids := make(map[string]bool, len(f.Albums))
	for i := range f.Albums {
		a := &f.Albums[i]
		if a.ID == "" {
			return nil, fmt.Errorf("%w: seed album %d has no id", ErrInvalidAlbum, i)
		}
		if ids[a.ID] {
			return nil, fmt.Errorf("%w: duplicate seed id %q", ErrInvalidAlbum, a.ID)
		}
		ids[a.ID] = true
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("seed album %q: %w", a.ID, err)
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = a.Date
		}
		if a.Tags == nil {
			a.Tags = []string{}
		}
	}
	return f.Albums, nil
}
