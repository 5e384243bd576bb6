package corpus

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName maps a document or file name to its partition key:
// extension dropped, NFKC, lower case, and every run of characters that are
// not letters or digits collapsed into a single underscore.
// Distinct names may collide; they then share one partition.
func NormalizeName(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	name = cases.Lower(language.Und).String(norm.NFKC.String(name))

	var b strings.Builder
	pending := false
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}
