package utils

import (
	"testing"
	"time"
)

func TestParseTrendDateLayouts(t *testing.T) {
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, input := range []string{"2024-03-01", "2024-03-01T00:00:00Z", "Mar 1, 2024", "Mar 1 2024", "1709251200"} {
		got, err := ParseTrendDate(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if !got.Equal(want) {
			t.Fatalf("parse %q: expected %v, got %v", input, want, got)
		}
	}
}

func TestParseTrendDateRejectsGarbage(t *testing.T) {
	if _, err := ParseTrendDate("last tuesday"); err == nil {
		t.Fatalf("expected error for unparseable date")
	}
	if _, err := ParseTrendDate(""); err == nil {
		t.Fatalf("expected error for empty date")
	}
}

func TestDayHelpers(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(36 * time.Hour)
	if CeilDays(start, end) != 2 {
		t.Fatalf("expected 2 whole days, got %d", CeilDays(start, end))
	}
	if AbsDays(end, start) != 1 {
		t.Fatalf("expected 1 calendar day, got %d", AbsDays(end, start))
	}
	if FormatDate(end) != "2024-01-02" {
		t.Fatalf("unexpected format %s", FormatDate(end))
	}
}
