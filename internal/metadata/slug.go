package metadata

import (
	"strings"
	"unicode"
)

// MaxNameLength is the catalog's limit on record names.
const MaxNameLength = 100

// NameFromTitle derives the catalog record name from a title. The rule is
// idempotent and never returns more than MaxNameLength characters.
func NameFromTitle(title string) string {
	var b strings.Builder
	lastDash := false
	writeDash := func() {
		if !lastDash {
			b.WriteRune('-')
			lastDash = true
		}
	}

	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsSpace(r), r == '/', r == '.', r == '-':
			writeDash()
		case strings.ContainsRune(":,()\"'*&’", r):
			// dropped
		default:
			b.WriteRune(r)
			lastDash = false
		}
	}

	name := []rune(strings.Trim(b.String(), "-"))
	if len(name) > MaxNameLength {
		name = name[:MaxNameLength]
	}
	return strings.Trim(string(name), "-")
}
