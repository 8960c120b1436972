package controller

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxParamLength = 128

// Anything outside letters, digits and a little punctuation is stripped from path and
// query parameters before they reach the service.
var unsafeParamChars = regexp.MustCompile(`[^\p{L}\p{N} _\-'.,:]`)

func sanitize(s string) string {
	s = strings.TrimSpace(unsafeParamChars.ReplaceAllString(s, ""))
	if utf8.RuneCountInString(s) > maxParamLength {
		s = strings.TrimSpace(string([]rune(s)[:maxParamLength]))
	}
	return s
}
