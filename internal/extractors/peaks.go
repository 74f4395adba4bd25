package extractors

import (
	"math"
	"sort"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
)

const (
	plateauMinRun      = 3
	plateauFloor       = 8.0
	plateauRatio       = 0.8
	highValueThreshold = 50.0
	highValueAlways    = 80.0
)

// PeakDetector finds local maxima and sustained-high plateaus in a series.
type PeakDetector struct {
	// MinValue is the smallest value a peak may have.
	MinValue float64
	// WindowSize is how many neighbours on each side must be strictly lower.
	WindowSize int
	// Plateaus enables the sustained-high run pass.
	Plateaus bool
	// IncludeEdges lets the first and last samples qualify against their one-sided window.
	IncludeEdges bool
	// HighValueOverride adds saturating spikes that fail the window test.
	HighValueOverride bool
}

// NewPeakDetector returns the interior detector with the plateau pass enabled.
func NewPeakDetector(minValue float64, windowSize int) *PeakDetector {
	return &PeakDetector{MinValue: minValue, WindowSize: windowSize, Plateaus: true}
}

// NewIntelPeakDetector returns the detector used to gather IntelPeak candidates.
func NewIntelPeakDetector() *PeakDetector {
	return &PeakDetector{MinValue: 10, WindowSize: 1, Plateaus: true, HighValueOverride: true}
}

// NewSummaryDetector returns the chart annotation detector: edge samples are eligible
// and plateaus are not reported.
func NewSummaryDetector(minValue float64, windowSize int) *PeakDetector {
	return &PeakDetector{MinValue: minValue, WindowSize: windowSize, IncludeEdges: true}
}

// DetectPeaks runs the interior local-maximum and plateau passes.
func DetectPeaks(series models.Series, minValue float64, windowSize int) []models.Peak {
	return NewPeakDetector(minValue, windowSize).Detect(series)
}

// Detect returns the peaks of series ordered by index.
func (d *PeakDetector) Detect(series models.Series) []models.Peak {
	if len(series) < 2 {
		return []models.Peak{}
	}

	window := d.WindowSize
	if window <= 0 {
		window = 1
	}

	seen := make(map[int]struct{})
	peaks := make([]models.Peak, 0)
	add := func(i int) {
		if _, ok := seen[i]; ok {
			return
		}
		seen[i] = struct{}{}
		peaks = append(peaks, models.Peak{Date: series[i].Date, Value: series[i].Value, Index: i})
	}

	first, last := 1, len(series)-2
	if d.IncludeEdges {
		first, last = 0, len(series)-1
	}
	for i := first; i <= last; i++ {
		if isWindowMax(series, i, window, d.MinValue) {
			add(i)
		}
	}

	if d.Plateaus {
		for _, i := range plateauApexes(series, d.MinValue) {
			add(i)
		}
	}

	if d.HighValueOverride {
		for i := range series {
			if isSaturatingSpike(series, i) {
				add(i)
			}
		}
	}

	sort.Slice(peaks, func(i, j int) bool { return peaks[i].Index < peaks[j].Index })
	return peaks
}

func isWindowMax(series models.Series, i, window int, minValue float64) bool {
	value := series[i].Value
	if value < minValue {
		return false
	}
	from := max(0, i-window)
	to := min(len(series)-1, i+window)
	for j := from; j <= to; j++ {
		if j != i && series[j].Value >= value {
			return false
		}
	}
	return true
}

// plateauApexes returns the highest sample of every run of at least three samples at
// or above the relaxed threshold. Apexes under minValue are dropped.
func plateauApexes(series models.Series, minValue float64) []int {
	threshold := math.Max(minValue*plateauRatio, plateauFloor)
	apexes := make([]int, 0)

	flush := func(start, end int) {
		if end-start < plateauMinRun {
			return
		}
		best := start
		for j := start + 1; j < end; j++ {
			if series[j].Value > series[best].Value {
				best = j
			}
		}
		if series[best].Value >= minValue {
			apexes = append(apexes, best)
		}
	}

	start := -1
	for i, sample := range series {
		if sample.Value >= threshold {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			flush(start, i)
			start = -1
		}
	}
	if start >= 0 {
		flush(start, len(series))
	}
	return apexes
}

func isSaturatingSpike(series models.Series, i int) bool {
	value := series[i].Value
	if value < highValueThreshold {
		return false
	}
	if value >= highValueAlways {
		return true
	}
	n := len(series)
	switch {
	case i == 0:
		return value > series[1].Value
	case i == n-1:
		return value > series[n-2].Value
	default:
		return value > series[i-1].Value && value > series[i+1].Value
	}
}
