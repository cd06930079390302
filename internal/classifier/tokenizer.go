package classifier

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// tokenize lower-cases NFKC-normalized text and splits it on any rune that is
// not a letter or digit. Symbols such as emoji produce no tokens.
func tokenize(text string) []string {
	text = strings.ToLower(norm.NFKC.String(text))
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
