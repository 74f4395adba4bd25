package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO calendar-date form used for peak dates and cache records.
const DateLayout = "2006-01-02"

var trendDateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"Jan 2006",
}

// ParseTrendDate parses the date forms found in cached trend payloads. Bare integers
// are read as unix seconds.
func ParseTrendDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	for _, layout := range trendDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("parse time: unsupported format %q", value)
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// DateOnly truncates t to midnight UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the fractional day distance from start to end.
func DaysBetween(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}

// CeilDays converts the distance between two timestamps into whole days, rounding up.
func CeilDays(start, end time.Time) int {
	return int(math.Ceil(DaysBetween(start, end)))
}

// AbsDays is the absolute whole-day distance between two calendar dates.
func AbsDays(a, b time.Time) int {
	d := DaysBetween(DateOnly(a), DateOnly(b))
	return int(math.Round(math.Abs(d)))
}
