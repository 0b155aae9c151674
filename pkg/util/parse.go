package util

import (
	"strconv"
	"time"
	"unicode/utf8"
)

// ParseTime accepts RFC3339 (with or without fractional seconds) or unix seconds.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseLimit parses a positive page size, falling back to def and capping at max.
func ParseLimit(s string, def, max int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		v = def
	}
	if max > 0 && v > max {
		v = max
	}
	return v
}

// Truncate shortens s to at most n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
