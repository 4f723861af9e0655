package text

import (
	"strings"
	"unicode"
)

// Clean normalizes raw extracted text before chunking: control characters
// are dropped, all whitespace runs collapse to a single space, and the
// result is trimmed. Pure function, safe to call on arbitrary extractor
// output.
func Clean(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	space := false
	for _, r := range raw {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsControl(r):
			// Zero-width junk from PDF extraction; skip without
			// inserting a space.
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}
