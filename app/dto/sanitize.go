package dto

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var phonePattern = regexp.MustCompile(`^[0-9 +()\-]{7,20}$`)

// singleLine trims, drops control characters and collapses whitespace runs.
func singleLine(s string) string {
	return strings.Join(strings.Fields(removeControlChars(s)), " ")
}

// multiLine trims and drops control characters but keeps line breaks.
func multiLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}

// capLength truncates s to at most n runes.
func capLength(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}
