package macro

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// FoldName normalizes a display name for comparison: surrounding space is
// trimmed, the text is put in NFC form and case-folded. Two names match when
// their folded forms are equal.
func FoldName(name string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(name)))
}
