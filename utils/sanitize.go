package utils

import (
	"strings"
	"unicode"
)

// SanitizeHeaderFilename drops control characters, quotes and backslashes so
// the name fits in a quoted Content-Disposition filename.
func SanitizeHeaderFilename(name string) string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == '"' || r == '\\' {
			return -1
		}
		return r
	}, name)
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return "download"
	}
	return clean
}
