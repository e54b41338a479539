package common

import (
	"strings"
	"unicode"
)

// SanitizeFilename keeps letters, digits, spaces, '_' and '-', replaces every
// other rune with '_', trims, and finally turns spaces into '_'.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ' ', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
}

// ReportKey is the storage key for one report item: <company>_<section>
func ReportKey(company, section string) string {
	return SanitizeFilename(company) + "_" + SanitizeFilename(section)
}
