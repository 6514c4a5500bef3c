package synth

import (
	"regexp"
	"strings"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// SanitizeFilename trims whitespace and collapses any run of characters
// outside [A-Za-z0-9_-] into a single underscore.
func SanitizeFilename(name string) string {
	trimmed := strings.TrimSpace(name)
	return unsafeFilenameChars.ReplaceAllString(trimmed, "_")
}
