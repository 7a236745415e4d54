package utils

import (
	"strconv"
	"strings"
	"time"

	"anpr-api/internal/domain/anpr"
)

const allToken = "all"

var boundLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParsePage returns a 1-based page number; anything unusable becomes 1.
func ParsePage(s string) int {
	page, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// ParseLimit accepts "all" or a non-negative integer and clamps the result to
// [1, MaxPageLimit]. Anything else yields DefaultPageLimit.
func ParseLimit(s string) int {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, allToken) {
		return anpr.MaxPageLimit
	}
	if !isDigits(s) {
		return anpr.DefaultPageLimit
	}
	limit, err := strconv.Atoi(s)
	if err != nil {
		// only overflow gets here
		return anpr.MaxPageLimit
	}
	return clamp(limit, 1, anpr.MaxPageLimit)
}

func ParseSort(s string) string {
	s = strings.TrimSpace(s)
	if _, ok := anpr.SortOrders[s]; ok {
		return s
	}
	return anpr.DefaultSort
}

// ParseBound parses an ISO-8601 date or datetime. Offset-aware values are
// converted to UTC and naive values are read as UTC. Unparseable input yields
// nil.
func ParseBound(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}
	for _, layout := range boundLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// DateLabel is the filename fragment for an export bound: its first ten
// characters, or "all" when the bound was not supplied.
func DateLabel(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return allToken
	}
	if len(raw) > 10 {
		return raw[:10]
	}
	return raw
}

func isDigits(s string) bool {
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

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
