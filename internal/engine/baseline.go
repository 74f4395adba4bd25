package engine

import (
	"errors"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/integrate"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

const (
	highActivityRatio     = 0.5
	minMeaningfulMean     = 0.1
	maxBaselineAttempts   = 5
	maxWidenAttempts      = 10
	maxLowSignalAttempts  = 5
	minBaselineLength     = 7
	baselineHorizonMonths = 6
)

var (
	// ErrBaselineTooShort reports that not enough history precedes the peak.
	ErrBaselineTooShort = errors.New("insufficient baseline data")
	// ErrBaselineNoSignal reports that every reachable baseline window is effectively zero.
	ErrBaselineNoSignal = errors.New("baseline has no meaningful signal")
)

// FindBaseline locates the comparison window preceding period. It steps back past
// windows that are themselves elevated, widens short windows, and looks further back
// when the chosen window carries no signal, all within six months of the series end.
func FindBaseline(series models.Series, period models.PeakPeriod) (models.BaselinePeriod, error) {
	peakLen := period.Len()
	if peakLen == 0 || len(series) == 0 {
		return models.BaselinePeriod{}, ErrBaselineTooShort
	}

	peakMean := meanOf(series.Window(period.StartIndex, period.EndIndex).Values())
	highThreshold := peakMean * highActivityRatio

	end := period.StartIndex
	start := max(0, end-peakLen)
	window := series[start:end]

	for attempts := 0; attempts < maxBaselineAttempts && len(window) >= peakLen; attempts++ {
		avg := meanOf(window.Values())
		if avg < highThreshold && avg >= minMeaningfulMean {
			break
		}
		end = start
		start = max(0, end-peakLen)
		window = series[start:end]
		if start == 0 && len(window) < peakLen {
			break
		}
	}

	last, _ := series.Last()
	horizon := last.Date.AddDate(0, -baselineHorizonMonths, 0)

	minLen := max(peakLen, minBaselineLength)
	if len(window) < minLen {
		tempStart := start
		for attempts := 0; len(window) < minLen && attempts < maxWidenAttempts && tempStart > 0; attempts++ {
			tempEnd := tempStart
			tempStart = max(0, tempEnd-minLen)
			candidate := series[tempStart:tempEnd]
			if len(candidate) < minLen || candidate[0].Date.Before(horizon) {
				break
			}
			window, start, end = candidate, tempStart, tempEnd
		}
		if len(window) < minLen {
			return models.BaselinePeriod{}, ErrBaselineTooShort
		}
	}

	avg := meanOf(window.Values())
	if avg < minMeaningfulMean {
		tempStart := start
		for attempts := 0; avg < minMeaningfulMean && attempts < maxLowSignalAttempts && tempStart > 0; attempts++ {
			tempEnd := tempStart
			tempStart = max(0, tempEnd-peakLen)
			candidate := series[tempStart:tempEnd]
			if len(candidate) < peakLen || candidate[0].Date.Before(horizon) {
				break
			}
			if candidateAvg := meanOf(candidate.Values()); candidateAvg >= minMeaningfulMean {
				window, start, end, avg = candidate, tempStart, tempEnd, candidateAvg
			}
		}
		if avg < minMeaningfulMean {
			return models.BaselinePeriod{}, ErrBaselineNoSignal
		}
	}

	return models.BaselinePeriod{StartIndex: start, EndIndex: end - 1, Mean: avg}, nil
}

// Area integrates the window with the trapezoidal rule over fractional day offsets,
// so irregular sampling is weighted by the real gap between samples.
func Area(window models.Series) float64 {
	if len(window) < 2 {
		return 0
	}
	x := make([]float64, len(window))
	origin := window[0].Date
	for i, s := range window {
		x[i] = utils.DaysBetween(origin, s.Date)
	}
	return integrate.Trapezoidal(x, window.Values())
}

func meanOf(values []float64) float64 {
	m, err := stats.Mean(values)
	if err != nil {
		return 0
	}
	return m
}

func maxOf(values []float64) float64 {
	m, err := stats.Max(values)
	if err != nil {
		return 0
	}
	return m
}
