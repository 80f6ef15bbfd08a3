package plans

import "strings"

// Plan keys (single source of truth)
const (
	KeyFree    = "free"
	KeyPremium = "premium"
)

// NormalizeKey maps user/provider supplied plan names onto a known key.
// Unknown or empty values are returned trimmed and lowercased so callers
// can reject them explicitly.
func NormalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	switch k {
	case "", "none", "basic":
		return KeyFree
	case "paid", "pro", "plus":
		return KeyPremium
	}
	return k
}
