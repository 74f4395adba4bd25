package extractors

import (
	"regexp"
	"time"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

var narrativePeakHeader = regexp.MustCompile(`(?i)###\s*PEAK:\s*(\d{4}-\d{2}-\d{2})`)

// NarrativePeak is a dated PEAK header found in generated narrative text.
type NarrativePeak struct {
	Raw  string
	Date time.Time
}

// NarrativePeakDates returns the distinct PEAK header dates in order of appearance.
// Headers with impossible dates are skipped.
func NarrativePeakDates(text string) []NarrativePeak {
	matches := narrativePeakHeader.FindAllStringSubmatch(text, -1)
	out := make([]NarrativePeak, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		raw := m[1]
		if _, ok := seen[raw]; ok {
			continue
		}
		date, err := time.Parse(utils.DateLayout, raw)
		if err != nil {
			continue
		}
		seen[raw] = struct{}{}
		out = append(out, NarrativePeak{Raw: raw, Date: date})
	}
	return out
}
