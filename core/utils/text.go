package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Comparable normalizes free text for equality checks: NFKC, case folded,
// trimmed, inner whitespace collapsed to single spaces.
func Comparable(s string) string {
	s = norm.NFKC.String(s)
	s = folder.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// AlnumKey lowercases s and strips everything except letters and digits.
// "Event_No" and "event-no" both become "eventno".
func AlnumKey(s string) string {
	s = folder.String(norm.NFKC.String(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
