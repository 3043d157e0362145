package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Precision is the granularity of an observation date.
type Precision int

const (
	PrecisionDay Precision = iota
	PrecisionMonth
	PrecisionQuarter
	PrecisionYear
)

var quarterRe = regexp.MustCompile(`^(\d{4})[-\s/]?[Qq]([1-4])$`)

var dayLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"20060102",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

var monthLayouts = []string{
	"2006-01",
	"2006-1",
	"2006/01",
	"2006M01",
	"2006-M01",
	"Jan 2006",
	"January 2006",
}

// ParseDate recognizes the date spellings seen across providers and returns the
// canonical string and period start. Bare digit runs other than a 4-digit year
// or an 8-digit YYYYMMDD are not dates; see ParseNumericKey.
func ParseDate(s string) (string, time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", time.Time{}, false
	}
	if m := quarterRe.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		q, _ := strconv.Atoi(m[2])
		t := time.Date(year, time.Month((q-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
		return FormatDate(t, PrecisionQuarter), t, true
	}
	if len(s) == 4 && isDigits(s) {
		t, err := time.Parse("2006", s)
		if err != nil {
			return "", time.Time{}, false
		}
		return FormatDate(t, PrecisionYear), t, true
	}
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return FormatDate(t, PrecisionDay), t, true
		}
	}
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
			return FormatDate(t, PrecisionMonth), t, true
		}
	}
	return "", time.Time{}, false
}

// ParseNumericKey reads a purely numeric token as a year (1-9999), a Unix
// timestamp in seconds, or a Unix timestamp in milliseconds.
func ParseNumericKey(s string) (string, time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !isDigits(s) {
		return "", time.Time{}, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return ParseNumericDate(n)
}

// ParseNumericDate is ParseNumericKey for an already-parsed integer.
func ParseNumericDate(n int64) (string, time.Time, bool) {
	switch {
	case n >= 1 && n <= 9999:
		t := time.Date(int(n), time.January, 1, 0, 0, 0, 0, time.UTC)
		return FormatDate(t, PrecisionYear), t, true
	case n >= 1e8 && n < 1e11:
		t := time.Unix(n, 0).UTC()
		t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return FormatDate(t, PrecisionDay), t, true
	case n >= 1e11 && n < 1e14:
		t := time.UnixMilli(n).UTC()
		t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return FormatDate(t, PrecisionDay), t, true
	}
	return "", time.Time{}, false
}

// FormatDate renders t at precision p.
func FormatDate(t time.Time, p Precision) string {
	switch p {
	case PrecisionYear:
		return fmt.Sprintf("%04d", t.Year())
	case PrecisionQuarter:
		return fmt.Sprintf("%04d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
	case PrecisionMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// ParseRange builds a DateRange from optional start and end strings in any
// ParseDate spelling. The end bound covers its whole period, so "2021"
// includes 2021-12-31. Both empty yields nil.
func ParseRange(start, end string) (*DateRange, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" && end == "" {
		return nil, nil
	}
	rng := &DateRange{}
	if start != "" {
		_, t, ok := ParseDate(start)
		if !ok {
			return nil, fmt.Errorf("invalid start date %q", start)
		}
		rng.Start = t
	}
	if end != "" {
		canonical, t, ok := ParseDate(end)
		if !ok {
			return nil, fmt.Errorf("invalid end date %q", end)
		}
		rng.End = periodEnd(canonical, t)
	}
	return rng, nil
}

// periodEnd returns the last day of the period a canonical date names.
func periodEnd(canonical string, t time.Time) time.Time {
	switch {
	case len(canonical) == 4:
		return t.AddDate(1, 0, -1)
	case strings.Contains(canonical, "Q"):
		return t.AddDate(0, 3, -1)
	case len(canonical) == 7:
		return t.AddDate(0, 1, -1)
	}
	return t
}
