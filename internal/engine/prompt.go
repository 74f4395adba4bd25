package engine

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

const inflectionChange = 0.2

// Prompt is the narrative request for a keyword set along with what went into it.
type Prompt struct {
	Text              string
	Keywords          []string
	StartDate         string
	EndDate           string
	Points            int
	SignificantPoints []SignificantPoint
}

// SignificantPoint is a timeline step whose cross-keyword average moved sharply.
type SignificantPoint struct {
	Index        int       `json:"index"`
	Date         string    `json:"date"`
	AverageValue float64   `json:"averageValue"`
	Values       []float64 `json:"values"`
}

type timelineRow struct {
	date   time.Time
	values []float64
}

// BuildPrompt renders the narrative request for the given keyword series. Series are
// aligned on their dates; a keyword without a sample on a date contributes zero.
func BuildPrompt(series []models.KeywordSeries) Prompt {
	keywords := make([]string, len(series))
	for i, ks := range series {
		keywords[i] = ks.Keyword
	}
	rows := alignTimeline(series)

	n := len(keywords)
	totals := make([]float64, n)
	maxima := make([]float64, n)
	firsts := make([]float64, n)
	lasts := make([]float64, n)
	for i, row := range rows {
		for k, v := range row.values {
			totals[k] += v
			maxima[k] = max(maxima[k], v)
			if i == 0 {
				firsts[k] = v
			}
			if i == len(rows)-1 {
				lasts[k] = v
			}
		}
	}

	summary := make([]string, n)
	for k, keyword := range keywords {
		avg := 0.0
		if len(rows) > 0 {
			avg = totals[k] / float64(len(rows))
		}
		summary[k] = fmt.Sprintf("%s: total=%.2f, avg=%.2f, max=%.2f, start=%.2f, end=%.2f",
			keyword, totals[k], avg, maxima[k], firsts[k], lasts[k])
	}

	significant := significantPoints(rows)
	timeline := make([]map[string]any, len(rows))
	for i, row := range rows {
		entry := map[string]any{"index": i, "date": utils.FormatDate(row.date)}
		for k, keyword := range keywords {
			entry[keyword] = row.values[k]
		}
		timeline[i] = entry
	}

	p := Prompt{Keywords: keywords, Points: len(rows), SignificantPoints: significant}
	start, end := "unknown", "unknown"
	if len(rows) > 0 {
		start = utils.FormatDate(rows[0].date)
		end = utils.FormatDate(rows[len(rows)-1].date)
		p.StartDate, p.EndDate = start, end
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an investigative analyst specialising in geopolitical search trends.\n")
	fmt.Fprintf(&b, "The user is exploring Google Trends data for the keywords: %s.\n\n", strings.Join(keywords, " vs "))
	fmt.Fprintf(&b, "Date range: %s to %s\n", start, end)
	fmt.Fprintf(&b, "Total data points: %d\n", len(rows))
	fmt.Fprintf(&b, "Keyword summaries (totals, averages, maximum values, beginning and ending values):\n%s\n\n", strings.Join(summary, "\n"))
	fmt.Fprintf(&b, "Significant inflection points (average across all keywords at each step):\n%s\n\n", indentJSON(significant))
	fmt.Fprintf(&b, "Complete keyword timeline (chronological order). Each entry lists the value for every keyword:\n%s\n\n", indentJSON(timeline))
	b.WriteString(searchInstructions(keywords))

	p.Text = b.String()
	return p
}

func alignTimeline(series []models.KeywordSeries) []timelineRow {
	byDate := make(map[time.Time][]float64)
	for k, ks := range series {
		for _, sample := range ks.Series.Sorted() {
			day := utils.DateOnly(sample.Date)
			values, ok := byDate[day]
			if !ok {
				values = make([]float64, len(series))
				byDate[day] = values
			}
			values[k] = sample.Value
		}
	}
	rows := make([]timelineRow, 0, len(byDate))
	for day, values := range byDate {
		rows = append(rows, timelineRow{date: day, values: values})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })
	return rows
}

// significantPoints keeps both endpoints and every step whose average differs from a
// neighbour by more than the inflection ratio.
func significantPoints(rows []timelineRow) []SignificantPoint {
	averages := make([]float64, len(rows))
	for i, row := range rows {
		averages[i] = meanOf(row.values)
	}

	relative := func(v, ref float64) float64 {
		d := v - ref
		if d < 0 {
			d = -d
		}
		return d / max(ref, 1)
	}

	out := make([]SignificantPoint, 0)
	for i, row := range rows {
		keep := i == 0 || i == len(rows)-1
		if !keep {
			keep = relative(averages[i], averages[i-1]) > inflectionChange ||
				relative(averages[i], averages[i+1]) > inflectionChange
		}
		if keep {
			out = append(out, SignificantPoint{
				Index:        i,
				Date:         utils.FormatDate(row.date),
				AverageValue: averages[i],
				Values:       row.values,
			})
		}
	}
	return out
}

func indentJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

func searchInstructions(keywords []string) string {
	return fmt.Sprintf(`CRITICAL: You MUST use Google Search grounding NOW to find recent news and information about these keywords. Do not say "I will search" - actually execute the search immediately and include the results in your analysis. Search for:
- Recent news articles about: %s
- Events that occurred during the date range that relate to these keywords
- Breaking news or developments that explain spikes or drops in the trend data

After searching, provide a complete analysis that includes:
1. A concise overview of the long-term trajectory for each keyword.

2. PEAK EXPLANATIONS - For ONLY the peaks where you found a SPECIFIC themed event (political, social, etc.) in the Search Results, provide a section in this EXACT format:

   ### PEAK: [YYYY-MM-DD]
   EVENT: [One concise sentence describing the specific event that caused this peak, DIRECTLY FROM Search Results]
   SOURCE: [News outlet and headline from Search Results]

   Rules for the EVENT line:
   - It MUST come from the Search Results; do not infer or guess
   - NEVER write "No specific event found", "search volume" or "general news"; skip that peak entirely instead
   - Focus on actions: elections, announcements, incidents, debates, campaigns, protests, crises, legislation, court rulings, conflicts, treaties, controversies
   - Maximum 10-12 words

   If you cannot find a specific themed event for a peak, DO NOT create a PEAK section for it.

3. Historical context and developments from the Search Results.

4. A short conclusion referencing the Search Results.
`, strings.Join(keywords, ", "))
}
