package generation

import (
	"regexp"
	"strings"
)

// controlChars matches ASCII control characters other than tab, LF and CR.
var controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

// Sanitize strips control characters and surrounding whitespace.
func Sanitize(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}
