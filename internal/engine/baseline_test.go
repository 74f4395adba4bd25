package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
)

func TestFindBaselineImmediatelyBefore(t *testing.T) {
	values := filled(40, 3)
	for i := 30; i <= 36; i++ {
		values[i] = 40
	}
	series := daily(values...)
	baseline, err := FindBaseline(series, models.PeakPeriod{StartIndex: 30, EndIndex: 36})
	require.NoError(t, err)
	assert.Equal(t, 23, baseline.StartIndex)
	assert.Equal(t, 29, baseline.EndIndex)
	assert.InDelta(t, 3.0, baseline.Mean, 1e-9)
}

func TestFindBaselineSkipsElevatedWindow(t *testing.T) {
	values := filled(60, 2)
	for i := 40; i <= 46; i++ {
		values[i] = 30 // earlier wave
	}
	for i := 47; i <= 53; i++ {
		values[i] = 40
	}
	series := daily(values...)
	baseline, err := FindBaseline(series, models.PeakPeriod{StartIndex: 47, EndIndex: 53})
	require.NoError(t, err)
	assert.Equal(t, 33, baseline.StartIndex)
	assert.Equal(t, 39, baseline.EndIndex)
}

func TestFindBaselineWidensShortPeaks(t *testing.T) {
	values := filled(30, 4)
	values[20], values[21], values[22] = 30, 50, 30
	series := daily(values...)
	baseline, err := FindBaseline(series, models.PeakPeriod{StartIndex: 20, EndIndex: 22})
	require.NoError(t, err)
	// The three-sample window before the peak is widened to a full week.
	assert.Equal(t, 10, baseline.StartIndex)
	assert.Equal(t, 16, baseline.EndIndex)
}

func TestFindBaselineTooShort(t *testing.T) {
	values := filled(12, 1)
	values[5] = 60
	_, err := FindBaseline(daily(values...), models.PeakPeriod{StartIndex: 3, EndIndex: 9})
	assert.ErrorIs(t, err, ErrBaselineTooShort)
}

func TestFindBaselineNoSignal(t *testing.T) {
	values := filled(100, 0)
	for i := 90; i <= 96; i++ {
		values[i] = 40
	}
	_, err := FindBaseline(daily(values...), models.PeakPeriod{StartIndex: 90, EndIndex: 96})
	assert.ErrorIs(t, err, ErrBaselineNoSignal)
}

func TestFindBaselineRespectsSixMonthHorizon(t *testing.T) {
	// Monthly samples: widening the baseline would reach back a full year.
	values := []float64{4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 30, 50, 30}
	series := make(models.Series, len(values))
	for i, v := range values {
		series[i] = models.Sample{Date: seriesStart.AddDate(0, i, 0), Value: v}
	}
	_, err := FindBaseline(series, models.PeakPeriod{StartIndex: 10, EndIndex: 12})
	assert.ErrorIs(t, err, ErrBaselineTooShort)
}

func TestAreaTrapezoidal(t *testing.T) {
	assert.Zero(t, Area(nil))
	assert.Zero(t, Area(daily(10)))
	assert.InDelta(t, 15.0, Area(daily(10, 20)), 1e-9)

	// Irregular spacing weights each segment by its real gap.
	irregular := models.Series{
		{Date: seriesStart, Value: 0},
		{Date: seriesStart.AddDate(0, 0, 7), Value: 10},
		{Date: seriesStart.AddDate(0, 0, 8), Value: 10},
	}
	assert.InDelta(t, 45.0, Area(irregular), 1e-9)

	halfDay := models.Series{
		{Date: seriesStart, Value: 4},
		{Date: seriesStart.Add(12 * time.Hour), Value: 4},
	}
	assert.InDelta(t, 2.0, Area(halfDay), 1e-9)
}
