package textutil

import (
	"strconv"
	"strings"
)

// LeftOf returns the text preceding the first occurrence of sep, or s
// unchanged when sep does not occur.
func LeftOf(s, sep string) string {
	idx := strings.Index(s, sep)
	if idx < 0 {
		return s
	}
	return s[:idx]
}

// ToDecimal parses currency formatted text like "$1,149.99", any
// malformed input yields 0.
func ToDecimal(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return value
}
