package repo

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

const (
	rawContentMinLen = 100
	base64MinLen     = 50
)

var (
	base64Alphabet = regexp.MustCompile(`^[A-Za-z0-9+/=\s]+$`)
	rowArrayKeys   = []string{"data", "values", "timeline", "timelineData", "results"}
)

// ParseTrendPayload decodes a stored trend value into a sorted series for keyword.
// Three layouts are understood: a JSON envelope whose content field holds the trends
// text (optionally base64), the bare trends text, and JSON row arrays.
func ParseTrendPayload(raw []byte, keyword string) (models.Series, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return models.Series{}, nil
	}

	var parsed any
	isJSON := false
	if trimmed[0] == '{' || trimmed[0] == '[' {
		isJSON = json.Unmarshal(trimmed, &parsed) == nil
	}

	if obj, ok := parsed.(map[string]any); ok {
		if content, ok := obj["content"].(string); ok {
			return parseTrendsText(decodeContent(content, 0)), nil
		}
	}
	if !isJSON {
		text := string(raw)
		if len(text) <= rawContentMinLen {
			return models.Series{}, nil
		}
		return parseTrendsText(decodeContent(text, base64MinLen)), nil
	}

	rows := rowsOf(parsed)
	series := make(models.Series, 0, len(rows))
	for _, row := range rows {
		if sample, ok := parseRow(row, keyword); ok {
			series = append(series, sample)
		}
	}
	return series.Sorted(), nil
}

// decodeContent base64-decodes s when it looks like base64 and is longer than minLen.
// Undecodable input is returned unchanged.
func decodeContent(s string, minLen int) string {
	if len(s) <= minLen || !base64Alphabet.MatchString(strings.TrimSpace(s)) {
		return s
	}
	compact := strings.Join(strings.Fields(s), "")
	decoded, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return s
	}
	return string(decoded)
}

// parseTrendsText reads the exporter's text layout: a keyword header line, a column
// header line, then "date value flag" rows separated by whitespace.
func parseTrendsText(text string) models.Series {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	series := make(models.Series, 0, len(lines))
	if len(lines) <= 2 {
		return series
	}
	for _, line := range lines[2:] {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		date, err := utils.ParseTrendDate(fields[0])
		if err != nil {
			continue
		}
		series = append(series, models.Sample{Date: date, Value: leadingNumber(fields[1])})
	}
	return series.Sorted()
}

// leadingNumber parses the decimal prefix of s, returning 0 when there is none.
// Trends marks sub-1 interest as "<1", which reads as 0.
func leadingNumber(s string) float64 {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
		digits++
	}
	if end < len(s) && s[end] == '.' {
		frac := end + 1
		for frac < len(s) && s[frac] >= '0' && s[frac] <= '9' {
			frac++
		}
		if frac > end+1 {
			digits += frac - end - 1
			end = frac
		}
	}
	if digits == 0 {
		return 0
	}
	n, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return n
}

func rowsOf(parsed any) []map[string]any {
	var items []any
	switch v := parsed.(type) {
	case []any:
		items = v
	case map[string]any:
		for _, key := range rowArrayKeys {
			if arr, ok := v[key].([]any); ok {
				items = arr
				break
			}
		}
		if items == nil {
			if _, ok := v["date"]; ok {
				items = []any{v}
			} else if _, ok := v["time"]; ok {
				items = []any{v}
			}
		}
	}

	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if row, ok := item.(map[string]any); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

func parseRow(row map[string]any, keyword string) (models.Sample, bool) {
	date, ok := rowDate(row)
	if !ok {
		return models.Sample{}, false
	}
	value, ok := rowValue(row, keyword)
	if !ok {
		return models.Sample{}, false
	}
	return models.Sample{Date: date, Value: value}, true
}

func rowDate(row map[string]any) (time.Time, bool) {
	for _, key := range []string{"date", "formattedTime", "formattedAxisTime", "time"} {
		raw, ok := row[key]
		if !ok || raw == nil {
			continue
		}
		var text string
		switch v := raw.(type) {
		case string:
			text = v
		case float64:
			text = strconv.FormatInt(int64(v), 10)
		default:
			continue
		}
		if t, err := utils.ParseTrendDate(text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func rowValue(row map[string]any, keyword string) (float64, bool) {
	if v, ok := row[keyword]; ok {
		return numberOf(v)
	}
	for k, v := range row {
		if strings.EqualFold(k, keyword) {
			return numberOf(v)
		}
	}
	if v, ok := row["value"]; ok {
		if arr, ok := v.([]any); ok {
			if len(arr) == 0 {
				return 0, true
			}
			return numberOf(arr[0])
		}
		return numberOf(v)
	}
	return 0, false
}

func numberOf(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		return leadingNumber(strings.TrimSpace(n)), true
	case nil:
		return 0, true
	default:
		return 0, false
	}
}

// EncodeTrendPayload renders series in the exporter's envelope: base64 trends text
// under content, with upload metadata.
func EncodeTrendPayload(keyword string, series models.Series, uploadedAt time.Time) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%q\tisPartial\n", keyword)
	b.WriteString("date\n")
	for _, s := range series.Sorted() {
		fmt.Fprintf(&b, "%s\t%s\tFalse\n", utils.FormatDate(s.Date), strconv.FormatFloat(s.Value, 'f', -1, 64))
	}
	envelope := map[string]any{
		"content": base64.StdEncoding.EncodeToString([]byte(b.String())),
		"metadata": map[string]any{
			"keyword":    keyword,
			"uploadedAt": uploadedAt.UTC().Format(time.RFC3339),
		},
	}
	return json.Marshal(envelope)
}
