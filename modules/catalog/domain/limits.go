package domain

import "unicode/utf8"

// Limits are the maximum lengths, in characters, the catalog store accepts.
// Zero means unlimited.
type Limits struct {
	Code        int
	SectionName int
	Name        int
}

// DefaultLimits matches the catalog schema column sizes.
func DefaultLimits() Limits {
	return Limits{Code: 64, SectionName: 100, Name: 255}
}

// Exceeds reports whether s is longer than max characters.
func Exceeds(s string, max int) bool {
	return max > 0 && utf8.RuneCountInString(s) > max
}
