// Package explain pulls short event explanations for trend peaks out of generated
// narrative text.
package explain

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

// DefaultMaxWords bounds the length of an extracted explanation.
const DefaultMaxWords = 15

const matchWindowDays = 14

var (
	peakSection    = regexp.MustCompile(`(?i)### PEAK:\s*(\d{4}-\d{2}-\d{2})\s*\n\s*EVENT:\s*([^\n]+)(?:\s*\n\s*SOURCE:\s*([^\n]+))?`)
	leadingArticle = regexp.MustCompile(`(?i)^(?:the|a|an)\s+`)
	trailingPunct  = regexp.MustCompile(`\s*[.,;:]$`)
	peakPrefix     = regexp.MustCompile(`(?i)^peak\s+(?:on|at)\s+`)
)

// Tier identifies which strategy produced an explanation.
type Tier int

const (
	TierNone Tier = iota
	TierStructured
	TierFallback
)

// Match is an accepted explanation and where it came from.
type Match struct {
	Text string
	Tier Tier
	// Rule names the fallback rule for TierFallback matches.
	Rule string
	// SectionDate is the PEAK header date for TierStructured matches.
	SectionDate string
}

// Extractor matches narrative text to peak dates. It is safe for concurrent use.
type Extractor struct {
	vocab      *Vocabulary
	theme      *regexp.Regexp
	events     *regexp.Regexp
	keywordHit *regexp.Regexp
	stop       map[string]struct{}
	filler     map[string]struct{}
	rules      []rule
}

// NewExtractor compiles vocab into an Extractor. A nil vocab uses the defaults.
func NewExtractor(vocab *Vocabulary) *Extractor {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	e := &Extractor{
		vocab:      vocab,
		theme:      alternation(vocab.ThemeWords),
		events:     alternation(vocab.EventWords),
		keywordHit: alternation(vocab.KeywordThemeWords),
		stop:       wordSet(vocab.StopWords),
		filler:     wordSet(vocab.FillerWords),
	}
	e.rules = e.fallbackRules()
	return e
}

var defaultExtractor = NewExtractor(nil)

// ExtractPeakExplanation runs the default extractor. The bool is false when no
// acceptable explanation exists; callers must not substitute a placeholder.
func ExtractPeakExplanation(narrative, targetDate string, maxWords int) (string, bool) {
	return defaultExtractor.Extract(narrative, targetDate, maxWords)
}

// Extract returns the explanation for targetDate, if any.
func (e *Extractor) Extract(narrative, targetDate string, maxWords int) (string, bool) {
	m := e.Explain(narrative, targetDate, maxWords)
	return m.Text, m.Tier != TierNone
}

// Explain is Extract with provenance. The structured PEAK/EVENT block nearest the
// date is preferred; fragment mining runs only when no block produced a usable event.
func (e *Extractor) Explain(narrative, targetDate string, maxWords int) Match {
	if narrative == "" || targetDate == "" {
		return Match{}
	}
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	m, done := e.structured(narrative, targetDate, maxWords)
	if !done {
		m = e.fallback(narrative, targetDate, maxWords)
	}
	if m.Tier != TierNone && containsAny(strings.ToLower(m.Text), e.vocab.GenericPhrases) {
		return Match{}
	}
	return m
}

// Acceptable applies the final chart-summary filter.
func (e *Extractor) Acceptable(summary string) bool {
	s := strings.TrimSpace(summary)
	return s != "" && !containsAny(strings.ToLower(s), e.vocab.SummaryRejects)
}

type section struct {
	date      string
	event     string
	hasSource bool
}

func parseSections(narrative string) []section {
	idx := peakSection.FindAllStringSubmatchIndex(narrative, -1)
	out := make([]section, 0, len(idx))
	for _, m := range idx {
		out = append(out, section{
			date:      narrative[m[2]:m[3]],
			event:     strings.TrimSpace(narrative[m[4]:m[5]]),
			hasSource: m[6] >= 0,
		})
	}
	return out
}

// structured handles the PEAK/EVENT tier. done is true when the outcome is final,
// including a rejection that must not fall through to fragment mining.
func (e *Extractor) structured(narrative, targetDate string, maxWords int) (Match, bool) {
	sections := parseSections(narrative)
	if len(sections) == 0 {
		return Match{}, false
	}

	target, _, _ := strings.Cut(targetDate, "T")
	targetTime, targetErr := time.Parse(utils.DateLayout, target)

	var best *section
	bestDiff := math.MaxFloat64
	for i := range sections {
		s := &sections[i]
		if s.date == target || s.date == targetDate {
			best = s
			break
		}
		if targetErr != nil {
			continue
		}
		d, err := time.Parse(utils.DateLayout, s.date)
		if err != nil {
			continue
		}
		diff := math.Abs(utils.DaysBetween(targetTime, d))
		if diff <= matchWindowDays && diff < bestDiff {
			best, bestDiff = s, diff
		}
	}
	if best == nil {
		return Match{}, false
	}

	lower := strings.ToLower(best.event)
	if e.isGenericEvent(lower) {
		return Match{}, true
	}
	if !e.theme.MatchString(lower) && !best.hasSource {
		return Match{}, true
	}

	cleaned := leadingArticle.ReplaceAllString(best.event, "")
	cleaned = strings.TrimSpace(trailingPunct.ReplaceAllString(cleaned, ""))
	words := strings.Fields(cleaned)
	if len(words) < 3 {
		return Match{}, false
	}
	return Match{Text: strings.Join(truncate(words, maxWords), " "), Tier: TierStructured, SectionDate: best.date}, true
}

func (e *Extractor) isGenericEvent(lower string) bool {
	return containsAny(lower, e.vocab.GenericPhrases) ||
		strings.HasPrefix(lower, "peak ") ||
		peakPrefix.MatchString(lower)
}

func truncate(words []string, n int) []string {
	if len(words) > n {
		return words[:n]
	}
	return words
}
