package pages

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
)

/*
	Slug helpers
	------------
	- Responsible ONLY for:
	  • generating random public slugs
	  • validating slugs taken from URLs
	  • building public URLs
	- Uniqueness is enforced by the store, not here
*/

// SlugAlphabet leaves out characters that are easy to misread: 0/o, 1/i/l.
const SlugAlphabet = "23456789abcdefghjkmnpqrstuvwxyz"

// SlugLength gives 31^8 (~8.5e11) possible slugs.
const SlugLength = 8

// NewSlug draws SlugLength characters from SlugAlphabet using src.
func NewSlug(src io.Reader) (string, error) {
	max := big.NewInt(int64(len(SlugAlphabet)))
	var b strings.Builder
	b.Grow(SlugLength)
	for i := 0; i < SlugLength; i++ {
		n, err := rand.Int(src, max)
		if err != nil {
			return "", fmt.Errorf("read slug randomness: %w", err)
		}
		b.WriteByte(SlugAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// RandomSlug uses the OS secure random source.
func RandomSlug() (string, error) {
	return NewSlug(rand.Reader)
}

// ValidSlug reports whether s could have been produced by NewSlug.
func ValidSlug(s string) bool {
	if len(s) != SlugLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(SlugAlphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}

// BuildPublicURL builds the public page URL from a slug.
// Example: ("https://lovepage.app/p", "k7m2xq9a") -> "https://lovepage.app/p/k7m2xq9a"
func BuildPublicURL(base, slug string) string {
	return strings.TrimRight(base, "/") + "/" + slug
}
