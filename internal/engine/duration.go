package engine

import (
	"math"
	"time"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

const (
	// DefaultThresholdRatio is the share of the peak value a neighbour must keep to stay in the period.
	DefaultThresholdRatio = 0.4

	localMinimumSlack   = 1.2
	maxPeriodDays       = 90
	minPeriodDays       = 7
	maxSparsePeriodDays = 30
	abruptEndValue      = 50.0
	sparseSpikeValue    = 50.0
)

// ResolveDuration walks outward from the peak while values stay above
// peakValue*ratio and returns the resulting index range. Periods are capped at 90 days.
func ResolveDuration(series models.Series, peakIndex int, ratio float64) models.PeakPeriod {
	if peakIndex < 0 || peakIndex >= len(series) {
		return models.PeakPeriod{StartIndex: peakIndex, EndIndex: peakIndex, DurationDays: 1}
	}
	if ratio <= 0 {
		ratio = DefaultThresholdRatio
	}

	peakValue := series[peakIndex].Value
	threshold := peakValue * ratio
	n := len(series)

	start := peakIndex
	for i := peakIndex - 1; i >= 0; i-- {
		v := series[i].Value
		if v < threshold {
			start = i + 1
			break
		}
		if isLocalMinimum(series, i) && v < threshold*localMinimumSlack {
			start = i + 1
			break
		}
		start = i
	}

	end := peakIndex
	below := 0
	for i := peakIndex + 1; i < n; i++ {
		v := series[i].Value
		if v < threshold {
			below++
			if below >= 2 {
				end = i - 2
				break
			}
		} else {
			below = 0
		}
		if isLocalMinimum(series, i) && v < threshold*localMinimumSlack {
			end = i - 1
			break
		}
		if v >= threshold {
			end = i
		}
		if v == 0 && peakValue >= abruptEndValue {
			end = i - 1
			break
		}
	}
	if end < peakIndex {
		end = peakIndex
	}

	days := utils.CeilDays(series[start].Date, series[end].Date)
	if days > maxPeriodDays {
		end = firstIndexOnOrAfter(series, start, series[start].Date.AddDate(0, 0, maxPeriodDays))
		days = maxPeriodDays
	}

	return models.PeakPeriod{StartIndex: start, EndIndex: end, DurationDays: max(1, days)}
}

// ResolvePeriod applies the duration resolver and the caller-side period policy:
// short periods are widened symmetrically to a week unless sparse, and sparse periods
// are capped at 30 days. Both the scoring pass and the historical comparison pass use it.
func ResolvePeriod(series models.Series, peak models.Peak) models.PeakPeriod {
	period := ResolveDuration(series, peak.Index, DefaultThresholdRatio)
	if period.StartIndex < 0 || period.EndIndex >= len(series) {
		return period
	}

	window := series.Window(period.StartIndex, period.EndIndex)
	nonZero := 0
	for _, s := range window {
		if s.Value > 0 {
			nonZero++
		}
	}
	d := period.DurationDays
	sparse := (nonZero <= 2 && len(window) > 3) ||
		(nonZero == 1 && peak.Value >= sparseSpikeValue && d > minPeriodDays)

	start, end := period.StartIndex, period.EndIndex
	if !sparse && d < minPeriodDays {
		ext := int(math.Ceil(float64(minPeriodDays-d) / 2))
		start = max(0, start-ext)
		end = min(len(series)-1, end+ext)
	}

	limit := maxPeriodDays
	if sparse {
		limit = min(maxSparsePeriodDays, d+3)
	}

	span := utils.CeilDays(series[start].Date, series[end].Date)
	if span > limit {
		end = firstIndexOnOrAfter(series, start, series[start].Date.AddDate(0, 0, limit))
		span = utils.CeilDays(series[start].Date, series[end].Date)
	}

	var reported int
	if sparse {
		reported = max(1, min(span, limit))
	} else {
		reported = min(max(span, minPeriodDays), maxPeriodDays)
	}

	return models.PeakPeriod{StartIndex: start, EndIndex: end, DurationDays: reported, Sparse: sparse}
}

func isLocalMinimum(series models.Series, i int) bool {
	if i <= 0 || i >= len(series)-1 {
		return false
	}
	v := series[i].Value
	return v < series[i-1].Value && v < series[i+1].Value
}

func firstIndexOnOrAfter(series models.Series, from int, limit time.Time) int {
	idx := from
	for i := from; i < len(series); i++ {
		idx = i
		if !series[i].Date.Before(limit) {
			break
		}
	}
	return idx
}
