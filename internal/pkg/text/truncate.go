// Package text holds small string helpers.
package text

const ellipsis = "..."

// Truncate shortens s to at most max runes, ending in "..." when cut.
// max <= 0 leaves s unchanged.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= len(ellipsis) {
		return string(runes[:max])
	}
	return string(runes[:max-len(ellipsis)]) + ellipsis
}
