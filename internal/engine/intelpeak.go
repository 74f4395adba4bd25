package engine

import (
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/extractors"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

const (
	minIntelPeakSamples = 7
	recencyMonths       = 3
	peakValueWeight     = 2.0
	peakAreaWeight      = 0.01
)

// Candidate is one recent peak evaluated against its baseline.
type Candidate struct {
	Peak         models.Peak
	Period       models.PeakPeriod
	Baseline     models.BaselinePeriod
	PeakArea     float64
	BaselineArea float64
	IntelPeak    float64
	Ratio        *float64
	Score        float64
	PeriodMax    float64
}

// Rejection records why a recent peak was not scored.
type Rejection struct {
	Peak   models.Peak
	Reason string
}

// Evaluation is the full trace of one IntelPeak computation.
type Evaluation struct {
	Result     models.IntelPeakResult
	Candidates []Candidate
	Rejections []Rejection
}

// CalculateIntelPeak scores the best recent peak of series against its own history.
// An empty result is a normal outcome, not an error.
func CalculateIntelPeak(series models.Series) models.IntelPeakResult {
	return EvaluateIntelPeak(series).Result
}

// EvaluateIntelPeak is CalculateIntelPeak with the per-candidate trace kept for logging.
func EvaluateIntelPeak(series models.Series) Evaluation {
	sorted := series.Sorted()
	if len(sorted) < minIntelPeakSamples {
		return Evaluation{}
	}

	peaks := extractors.NewIntelPeakDetector().Detect(sorted)
	last, _ := sorted.Last()
	cutoff := utils.DateOnly(last.Date.AddDate(0, -recencyMonths, 0))

	eval := Evaluation{}
	var best *Candidate
	for _, peak := range peaks {
		if utils.DateOnly(peak.Date).Before(cutoff) {
			continue
		}

		candidate, reason := scoreCandidate(sorted, peak)
		if candidate == nil {
			eval.Rejections = append(eval.Rejections, Rejection{Peak: peak, Reason: reason})
			continue
		}
		eval.Candidates = append(eval.Candidates, *candidate)
		if best == nil || outranks(*candidate, *best) {
			best = candidate
		}
	}
	if best == nil {
		return eval
	}

	higher := countHigherPeaks(sorted, peaks, *best)
	intelPeak := best.IntelPeak
	if higher > 0 {
		intelPeak /= float64(higher)
	}

	eval.Result = buildResult(sorted, *best, intelPeak, higher)
	return eval
}

func scoreCandidate(series models.Series, peak models.Peak) (*Candidate, string) {
	period := ResolvePeriod(series, peak)
	baseline, err := FindBaseline(series, period)
	if err != nil {
		return nil, err.Error()
	}

	peakWindow := series.Window(period.StartIndex, period.EndIndex)
	peakArea := Area(peakWindow)
	baselineArea := Area(series.Window(baseline.StartIndex, baseline.EndIndex))

	c := &Candidate{
		Peak:         peak,
		Period:       period,
		Baseline:     baseline,
		PeakArea:     peakArea,
		BaselineArea: baselineArea,
		PeriodMax:    maxOf(peakWindow.Values()),
	}
	switch {
	case baselineArea > 0:
		ratio := peakArea / baselineArea
		c.Ratio = &ratio
		c.IntelPeak = (peakArea - baselineArea) / baselineArea * 100
	case peakArea > 0:
		c.IntelPeak = peakArea
	default:
		return nil, "peak and baseline areas are both zero"
	}
	if c.IntelPeak < 0 {
		return nil, "peak area below baseline area"
	}

	c.Score = c.IntelPeak + peak.Value*peakValueWeight + peakArea*peakAreaWeight
	return c, ""
}

// outranks orders candidates by score, then peak value, then earlier index.
func outranks(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Peak.Value != b.Peak.Value {
		return a.Peak.Value > b.Peak.Value
	}
	return a.Peak.Index < b.Peak.Index
}

// countHigherPeaks counts detected peaks dated before the winner whose own period
// reaches a higher maximum than the winner's period.
func countHigherPeaks(series models.Series, peaks []models.Peak, winner Candidate) int {
	if winner.PeriodMax <= 0 {
		return 0
	}
	count := 0
	for _, peak := range peaks {
		if !peak.Date.Before(winner.Peak.Date) {
			continue
		}
		period := ResolvePeriod(series, peak)
		if maxOf(series.Window(period.StartIndex, period.EndIndex).Values()) > winner.PeriodMax {
			count++
		}
	}
	return count
}

func buildResult(series models.Series, c Candidate, intelPeak float64, higher int) models.IntelPeakResult {
	peakDate := c.Peak.Date
	peakValue := c.Peak.Value
	duration := c.Period.DurationDays
	peakArea := c.PeakArea
	baselineArea := c.BaselineArea
	peakStart := series[c.Period.StartIndex].Date
	peakEnd := series[c.Period.EndIndex].Date
	baselineStart := series[c.Baseline.StartIndex].Date
	baselineEnd := series[c.Baseline.EndIndex].Date

	return models.IntelPeakResult{
		IntelPeak:         &intelPeak,
		PeakDate:          &peakDate,
		PeakValue:         &peakValue,
		PeakDuration:      &duration,
		PeakArea:          &peakArea,
		BaselineArea:      &baselineArea,
		Ratio:             c.Ratio,
		PeakStartDate:     &peakStart,
		PeakEndDate:       &peakEnd,
		BaselineStartDate: &baselineStart,
		BaselineEndDate:   &baselineEnd,
		HigherPeaksCount:  higher,
	}
}
