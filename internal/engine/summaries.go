package engine

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/extractors"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

const narrativeMatchDays = 14.0

// SummaryOptions tunes the chart annotation detector.
type SummaryOptions struct {
	MinValue   float64
	WindowSize int
	MaxWords   int
}

// DefaultSummaryOptions mirrors the chart defaults.
func DefaultSummaryOptions() SummaryOptions {
	return SummaryOptions{MinValue: 15, WindowSize: 3, MaxWords: 15}
}

// SummaryExtractor turns narrative text into a short explanation for a date.
type SummaryExtractor interface {
	Extract(narrative, targetDate string, maxWords int) (string, bool)
	Acceptable(summary string) bool
}

// SummaryReport is the outcome of a summary build.
type SummaryReport struct {
	Summaries []models.PeakSummary
	// Rejected counts explanations dropped by the final summary filter.
	Rejected int
}

// BuildPeakSummaries annotates the peaks of series with explanations found in narrative.
func BuildPeakSummaries(series models.Series, keyword, narrative string, extractor SummaryExtractor, opts SummaryOptions) []models.PeakSummary {
	return CollectPeakSummaries(series, keyword, narrative, extractor, opts).Summaries
}

// CollectPeakSummaries is BuildPeakSummaries with rejection accounting. Detected peaks
// are explained first; narrative PEAK dates that no detected peak covered are then mapped
// onto the nearest peak or sample. No placeholder summary is ever produced.
func CollectPeakSummaries(series models.Series, keyword, narrative string, extractor SummaryExtractor, opts SummaryOptions) SummaryReport {
	report := SummaryReport{Summaries: make([]models.PeakSummary, 0)}
	if extractor == nil || strings.TrimSpace(narrative) == "" {
		return report
	}
	series = series.Sorted()
	if len(series) == 0 {
		return report
	}
	if opts.MaxWords <= 0 {
		opts.MaxWords = DefaultSummaryOptions().MaxWords
	}

	peaks := extractors.NewSummaryDetector(opts.MinValue, opts.WindowSize).Detect(series)
	covered := make(map[string]struct{})
	tried := make(map[string]struct{})

	accept := func(date string, value float64, text string, ok bool) {
		if !ok {
			return
		}
		if !extractor.Acceptable(text) {
			report.Rejected++
			return
		}
		covered[date] = struct{}{}
		report.Summaries = append(report.Summaries, models.PeakSummary{
			Date:    date,
			Keyword: keyword,
			Value:   value,
			Summary: strings.TrimSpace(text),
		})
	}

	for _, peak := range peaks {
		date := utils.FormatDate(peak.Date)
		tried[date] = struct{}{}
		text, ok := extractor.Extract(narrative, date, opts.MaxWords)
		accept(date, peak.Value, text, ok)
	}

	for _, np := range extractors.NarrativePeakDates(narrative) {
		if _, ok := tried[np.Raw]; ok {
			continue
		}
		matched, ok := matchNarrativeDate(series, peaks, np.Date)
		if !ok {
			continue
		}
		date := utils.FormatDate(matched.Date)
		if _, ok := covered[date]; ok {
			continue
		}
		text, ok := extractor.Extract(narrative, np.Raw, opts.MaxWords)
		accept(date, matched.Value, text, ok)
	}

	sort.SliceStable(report.Summaries, func(i, j int) bool {
		return report.Summaries[i].Date < report.Summaries[j].Date
	})
	return report
}

// matchNarrativeDate finds the detected peak on target, else the closest detected peak
// within the match window, else the closest sample within it.
func matchNarrativeDate(series models.Series, peaks []models.Peak, target time.Time) (models.Peak, bool) {
	day := utils.DateOnly(target)
	for _, p := range peaks {
		if utils.DateOnly(p.Date).Equal(day) {
			return p, true
		}
	}

	best, bestDiff := -1, math.Inf(1)
	for i, p := range peaks {
		diff := math.Abs(utils.DaysBetween(target, p.Date))
		if diff < narrativeMatchDays && diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	if best >= 0 {
		return peaks[best], true
	}

	for i, sample := range series {
		diff := math.Abs(utils.DaysBetween(target, sample.Date))
		if diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	if best < 0 || bestDiff >= narrativeMatchDays {
		return models.Peak{}, false
	}
	return models.Peak{Date: series[best].Date, Value: series[best].Value, Index: best}, true
}
