package extractors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
)

func dailySeries(values ...float64) models.Series {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(models.Series, len(values))
	for i, v := range values {
		series[i] = models.Sample{Date: start.AddDate(0, 0, i), Value: v}
	}
	return series
}

func peakIndexes(peaks []models.Peak) []int {
	out := make([]int, len(peaks))
	for i, p := range peaks {
		out[i] = p.Index
	}
	return out
}

func TestDetectPeaksLocalMaxima(t *testing.T) {
	series := dailySeries(0, 5, 20, 5, 0, 3, 30, 2, 1)
	peaks := DetectPeaks(series, 10, 1)
	assert.Equal(t, []int{2, 6}, peakIndexes(peaks))
	assert.Equal(t, 30.0, peaks[1].Value)
	assert.True(t, peaks[1].Date.Equal(series[6].Date))
}

func TestDetectPeaksEdgeCases(t *testing.T) {
	cases := []struct {
		name   string
		series models.Series
		min    float64
		window int
		want   []int
	}{
		{name: "empty", series: nil, min: 10, window: 1, want: []int{}},
		{name: "single sample", series: dailySeries(90), min: 10, window: 1, want: []int{}},
		{name: "all zero", series: make(models.Series, 60), min: 10, window: 1, want: []int{}},
		{name: "below threshold", series: dailySeries(0, 9, 0), min: 10, window: 1, want: []int{}},
		{name: "tie loses", series: dailySeries(0, 20, 20, 0), min: 10, window: 1, want: []int{}},
		{name: "window widens comparison", series: dailySeries(0, 25, 10, 20, 10, 0), min: 10, window: 2, want: []int{1}},
		{name: "edges ignored", series: dailySeries(50, 5, 40), min: 10, window: 1, want: []int{}},
		{name: "zero window treated as one", series: dailySeries(0, 15, 0), min: 10, window: 0, want: []int{1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, peakIndexes(DetectPeaks(tc.series, tc.min, tc.window)))
		})
	}
}

func TestDetectPeaksPlateau(t *testing.T) {
	// The tied 13s are not strict local maxima; the run reports its first highest sample.
	series := dailySeries(0, 12, 13, 13, 12, 0, 0)
	peaks := DetectPeaks(series, 10, 1)
	require.Len(t, peaks, 1)
	assert.Equal(t, 2, peaks[0].Index)

	flat := dailySeries(0, 0, 12, 12, 12, 12)
	peaks = DetectPeaks(flat, 10, 1)
	require.Len(t, peaks, 1, "run reaching the end still counts")
	assert.Equal(t, 2, peaks[0].Index)

	short := dailySeries(0, 12, 12, 0, 0)
	assert.Empty(t, DetectPeaks(short, 10, 1))
}

func TestDetectPeaksPlateauApexRespectsMinValue(t *testing.T) {
	series := dailySeries(0, 9, 9, 9, 0)
	// Relaxed threshold is 8, but no apex reaches the minimum of 10.
	assert.Empty(t, DetectPeaks(series, 10, 1))
}

func TestDetectPeaksNeverBelowMinValue(t *testing.T) {
	series := dailySeries(3, 18, 4, 22, 21, 23, 5, 12, 11, 40, 39, 2, 8)
	for _, threshold := range []float64{0, 5, 10, 20, 30, 50} {
		for _, p := range DetectPeaks(series, threshold, 1) {
			assert.GreaterOrEqual(t, p.Value, threshold)
		}
	}
}

func TestIntelPeakDetectorHighValueOverride(t *testing.T) {
	series := dailySeries(60, 40, 0, 0, 85, 85, 0, 55)
	peaks := NewIntelPeakDetector().Detect(series)
	// Leading and trailing spikes beat their single neighbour; the 85 pair saturates.
	assert.Equal(t, []int{0, 4, 5, 7}, peakIndexes(peaks))

	plain := DetectPeaks(series, 10, 1)
	assert.Empty(t, plain)
}

func TestSummaryDetectorIncludesEdges(t *testing.T) {
	series := dailySeries(40, 10, 5, 3, 1, 2, 30)
	peaks := NewSummaryDetector(15, 3).Detect(series)
	assert.Equal(t, []int{0, 6}, peakIndexes(peaks))
}

func TestNarrativePeakDates(t *testing.T) {
	text := "intro\n### PEAK: 2024-03-01\nEVENT: one\n### PEAK: 2024-02-30\n### peak: 2024-04-10\nEVENT: two\n### PEAK: 2024-03-01\n"
	dates := NarrativePeakDates(text)
	require.Len(t, dates, 2)
	assert.Equal(t, "2024-03-01", dates[0].Raw)
	assert.Equal(t, "2024-04-10", dates[1].Raw)
}
