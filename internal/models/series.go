package models

import (
	"sort"
	"time"
)

// Sample is one observation of search interest for a keyword.
type Sample struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is the date-ordered sample sequence for one keyword.
type Series []Sample

// Len reports the number of samples.
func (s Series) Len() int { return len(s) }

// Values returns the sample values in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, sample := range s {
		out[i] = sample.Value
	}
	return out
}

// Sorted returns an ascending copy with one sample per date. When a date repeats the
// later sample wins.
func (s Series) Sorted() Series {
	out := make(Series, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	deduped := out[:0]
	for _, sample := range out {
		if n := len(deduped); n > 0 && deduped[n-1].Date.Equal(sample.Date) {
			deduped[n-1] = sample
			continue
		}
		deduped = append(deduped, sample)
	}
	return deduped
}

// Window returns the read-only sub-range [start, end] clamped to the series bounds.
func (s Series) Window(start, end int) Series {
	if start < 0 {
		start = 0
	}
	if end >= len(s) {
		end = len(s) - 1
	}
	if start > end {
		return nil
	}
	return s[start : end+1]
}

// Last returns the final sample and false when the series is empty.
func (s Series) Last() (Sample, bool) {
	if len(s) == 0 {
		return Sample{}, false
	}
	return s[len(s)-1], true
}

// KeywordSeries pairs a keyword with the series loaded for it.
type KeywordSeries struct {
	Keyword string `json:"keyword"`
	Series  Series `json:"series"`
}
