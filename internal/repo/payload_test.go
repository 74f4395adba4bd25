package repo

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

const exporterText = "\"Curtis Sliwa\"\tisPartial\ndate\n2024-01-03\t12\tFalse\n2024-01-01\t<1\tFalse\n2024-01-02\t45\tFalse\nnot-a-date\t9\tFalse\n2024-01-04\n"

func dates(series models.Series) []string {
	out := make([]string, len(series))
	for i, s := range series {
		out[i] = utils.FormatDate(s.Date)
	}
	return out
}

func TestParseTrendPayloadEnvelopeBase64(t *testing.T) {
	raw := []byte(`{"content":"` + base64.StdEncoding.EncodeToString([]byte(exporterText)) + `","metadata":{"uploadedAt":"2024-01-05T00:00:00Z"}}`)
	series, err := ParseTrendPayload(raw, "Curtis Sliwa")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03"}, dates(series))
	assert.Equal(t, []float64{0, 45, 12}, series.Values())
}

func TestParseTrendPayloadEnvelopePlainContent(t *testing.T) {
	raw := []byte(`{"content":"header\ndate\n2024-02-01 7 False\n2024-02-02 9 False"}`)
	series, err := ParseTrendPayload(raw, "x")
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 9}, series.Values())
}

func TestParseTrendPayloadRawText(t *testing.T) {
	text := exporterText + "2024-01-05\t30\tFalse\n2024-01-06\t31\tFalse\n"
	series, err := ParseTrendPayload([]byte(text), "Curtis Sliwa")
	require.NoError(t, err)
	assert.Len(t, series, 5)

	encoded := base64.StdEncoding.EncodeToString([]byte(text))
	series, err = ParseTrendPayload([]byte(encoded), "Curtis Sliwa")
	require.NoError(t, err)
	assert.Len(t, series, 5)

	series, err = ParseTrendPayload([]byte("too short to be a payload"), "x")
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestParseTrendPayloadRows(t *testing.T) {
	cases := map[string]string{
		"bare array":    `[{"date":"2024-03-02","sliwa":5},{"date":"2024-03-01","sliwa":"3"}]`,
		"data key":      `{"data":[{"date":"2024-03-01","Sliwa":3},{"date":"2024-03-02","Sliwa":5}]}`,
		"timeline data": `{"timelineData":[{"time":"1709251200","formattedTime":"Mar 1, 2024","value":[3]},{"time":"1709337600","formattedTime":"Mar 2 – 8, 2024","value":[5]}]}`,
		"results key":   `{"results":[{"date":"2024-03-01","value":3},{"date":"2024-03-02","value":5},{"date":"garbage","value":9}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			series, err := ParseTrendPayload([]byte(raw), "sliwa")
			require.NoError(t, err)
			assert.Equal(t, []string{"2024-03-01", "2024-03-02"}, dates(series))
			assert.Equal(t, []float64{3, 5}, series.Values())
		})
	}
}

func TestParseTrendPayloadDeduplicatesDates(t *testing.T) {
	series, err := ParseTrendPayload([]byte(`[{"date":"2024-03-01","k":1},{"date":"2024-03-01","k":4}]`), "k")
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 4.0, series[0].Value)
}

func TestEncodeTrendPayloadRoundTrip(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	series := models.Series{{Date: start, Value: 10}, {Date: start.AddDate(0, 0, 1), Value: 80}}

	raw, err := EncodeTrendPayload("Zohran Mamdani", series, start)
	require.NoError(t, err)
	got, err := ParseTrendPayload(raw, "Zohran Mamdani")
	require.NoError(t, err)
	assert.Equal(t, series, got)
}

func TestEncodeTrendPayloadKeepsFractions(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	series := models.Series{
		{Date: start, Value: 0.5},
		{Date: start.AddDate(0, 0, 1), Value: 42.25},
		{Date: start.AddDate(0, 0, 2), Value: 99.9},
	}

	raw, err := EncodeTrendPayload("sliwa", series, start)
	require.NoError(t, err)
	got, err := ParseTrendPayload(raw, "sliwa")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 42.25, 99.9}, got.Values())
}

func TestLeadingNumber(t *testing.T) {
	assert.Equal(t, 45.0, leadingNumber("45"))
	assert.Equal(t, 12.7, leadingNumber("12.7"))
	assert.Equal(t, 12.0, leadingNumber("12."))
	assert.Equal(t, 0.5, leadingNumber(".5"))
	assert.Equal(t, 0.0, leadingNumber("<1"))
	assert.Equal(t, -3.0, leadingNumber("-3x"))
	assert.Equal(t, 0.0, leadingNumber("-"))
	assert.Equal(t, 0.0, leadingNumber(""))
}
