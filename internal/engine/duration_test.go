package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
)

func TestResolveDurationWalksToThreshold(t *testing.T) {
	cases := []struct {
		name       string
		values     []float64
		peak       int
		start, end int
	}{
		{name: "two consecutive dips end the period", values: []float64{0, 0, 10, 30, 50, 100, 60, 45, 20, 0, 0}, peak: 5, start: 4, end: 7},
		{name: "local minimum stops forward walk", values: []float64{0, 100, 80, 30, 70, 60, 10, 5, 0}, peak: 1, start: 1, end: 2},
		{name: "zero after large peak ends abruptly", values: []float64{0, 10, 60, 55, 0, 0, 0}, peak: 2, start: 2, end: 3},
		{name: "shallow local minimum is bridged", values: []float64{0, 50, 45, 30, 45, 0, 0}, peak: 1, start: 1, end: 4},
		{name: "backward local minimum", values: []float64{60, 45, 42, 47, 100, 0, 0}, peak: 4, start: 3, end: 4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			period := ResolveDuration(daily(tc.values...), tc.peak, DefaultThresholdRatio)
			assert.Equal(t, tc.start, period.StartIndex)
			assert.Equal(t, tc.end, period.EndIndex)
			assert.GreaterOrEqual(t, period.DurationDays, 1)
		})
	}
}

func TestResolveDurationCapsAtNinetyDays(t *testing.T) {
	values := filled(150, 50)
	values[60] = 60
	period := ResolveDuration(daily(values...), 60, DefaultThresholdRatio)
	assert.Equal(t, 0, period.StartIndex)
	assert.Equal(t, 90, period.EndIndex)
	assert.Equal(t, 90, period.DurationDays)
}

func TestResolvePeriodExtendsShortPeaks(t *testing.T) {
	series := isolatedSpikeSeries()
	period := ResolvePeriod(series, models.Peak{Date: series[120].Date, Value: 90, Index: 120})
	assert.False(t, period.Sparse)
	assert.Equal(t, 117, period.StartIndex)
	assert.Equal(t, 123, period.EndIndex)
	assert.Equal(t, 7, period.DurationDays)
}

func TestResolvePeriodClampsAtSeriesEdges(t *testing.T) {
	series := daily(0, 80, 0, 0, 0, 0, 0, 0)
	period := ResolvePeriod(series, models.Peak{Date: series[1].Date, Value: 80, Index: 1})
	assert.Equal(t, 0, period.StartIndex)
	assert.Equal(t, 4, period.EndIndex)
	assert.Equal(t, 7, period.DurationDays, "reported duration never drops under a week")
}

func TestResolvePeriodDurationBounds(t *testing.T) {
	values := filled(200, 0)
	for i := 20; i < 180; i++ {
		values[i] = 40
	}
	values[100] = 80
	series := daily(values...)
	period := ResolvePeriod(series, models.Peak{Date: series[100].Date, Value: 80, Index: 100})
	require.False(t, period.Sparse)
	assert.LessOrEqual(t, period.DurationDays, 90)
	assert.GreaterOrEqual(t, period.DurationDays, 7)
	assert.LessOrEqual(t, period.EndIndex-period.StartIndex, 90)
}
