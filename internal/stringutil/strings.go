// Package stringutil provides common string manipulation utilities.
package stringutil

import (
	"strings"
	"unicode"
)

// IsNumeric checks if a string contains only ASCII digits.
// Returns false for empty strings.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// TrimLeadingZeros turns "007" into "7" and keeps a lone "0".
func TrimLeadingZeros(s string) string {
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" && s != "" {
		return "0"
	}
	return trimmed
}

// CollapseSpaces replaces every run of Unicode white space with one ASCII
// space and trims both ends.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// AlnumWords replaces every rune that is not a letter or a digit with a space
// and collapses the result, so "Mon/Wed, 10am!" becomes "Mon Wed 10am".
// Letters include non-Latin scripts so course names in Chinese survive.
func AlnumWords(s string) string {
	return CollapseSpaces(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s))
}

// KeepAlnum drops every rune that is not a letter or a digit.
func KeepAlnum(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
