package variants

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Key identifies one variant: a source image rendered at one size class.
// It keys both the variant cache and the in-flight tracker.
type Key struct {
	Source string
	Class  SizeClass
}

// NewKey validates source and class.
func NewKey(source string, class SizeClass) (Key, error) {
	if strings.TrimSpace(source) == "" {
		return Key{}, fmt.Errorf("%w: empty source", ErrInvalidArgument)
	}
	if _, err := Spec(class); err != nil {
		return Key{}, err
	}
	return Key{Source: source, Class: class}, nil
}

// String renders the key as "source-class".
func (k Key) String() string {
	return k.Source + "-" + string(k.Class)
}

// Digest is a short stable hash of the key, safe for headers and log lines.
func (k Key) Digest() string {
	sum := blake2b.Sum256([]byte(k.Source + "\x00" + string(k.Class)))
	return hex.EncodeToString(sum[:12])
}
