package signing

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const maxSignerNameLen = 120

// NormalizeSignerName returns the NFC form of name with whitespace runs
// collapsed, truncated to a fixed number of runes.
func NormalizeSignerName(name string) string {
	name = strings.Join(strings.Fields(norm.NFC.String(name)), " ")
	if utf8.RuneCountInString(name) <= maxSignerNameLen {
		return name
	}
	runes := []rune(name)
	return strings.TrimSpace(string(runes[:maxSignerNameLen]))
}
