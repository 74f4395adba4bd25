package explain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

// rule is one fallback strategy. Candidates are tried in order and the first that
// survives transform and validate wins.
type rule struct {
	name       string
	candidates func(line string) []string
	transform  func(phrase string, maxWords int) string
	validate   func(result string, maxWords int) bool
}

func (r rule) apply(line string, maxWords int) (string, bool) {
	for _, c := range r.candidates(line) {
		out := r.transform(c, maxWords)
		if out != "" && r.validate(out, maxWords) {
			return out, true
		}
	}
	return "", false
}

var (
	fragmentSplit = regexp.MustCompile(`[.\n]+`)

	eventPhrasePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:the\s+)?(\d{4}\s+(?:New York City|NYC|mayoral|presidential|gubernatorial)\s+(?:election|race|campaign))`),
		regexp.MustCompile(`(?i)(?:lead-up to|run-up to|buildup to|final weeks|days before)\s+(?:the\s+)?([^,.]{15,60})`),
		regexp.MustCompile(`(?i)(?:related to|involving|concerning|about)\s+(?:the\s+)?([^,.]{15,60}(?:election|campaign|race|mayoral|debate|primary))`),
		regexp.MustCompile(`(?i)(?:surrounding|regarding)\s+(?:the\s+)?(\d{4}\s+[^,.]{10,50})`),
	}
	connectorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:due to|because of|caused by|related to|sparked by|driven by|following|after)(?:\s+the)?\s+([a-z][^,.]{15,70})`),
		regexp.MustCompile(`(?i)(?:marks?|coincides? with|corresponds? to|aligns? with)\s+(?:the\s+)?([a-z][^,.]{15,70})`),
	}
	capitalizedPhrase = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+|\s+[a-z]{2,}){2,5}\b`)
	politicalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(\d{4})\s+(New York City|NYC)\s+(mayoral)\s+(election|race|campaign)`),
		regexp.MustCompile(`(?i)\b(mayoral)\s+(election|race|campaign)(?:\s+(?:in|for)\s+\d{4})?`),
		regexp.MustCompile(`(?i)\b(election|campaign)\s+(?:in|for|on)\s+([^,.]{10,40})`),
	}

	whereTail         = regexp.MustCompile(`(?i)\s+where\s+.*`)
	novemberDateTail  = regexp.MustCompile(`(?i)\s+on\s+November\s+\d+.*$`)
	novemberTail      = regexp.MustCompile(`(?i)\s+on\s+November.*$`)
	punctTail         = regexp.MustCompile(`\s*[.,].*`)
	commaTail         = regexp.MustCompile(`\s*,.*`)
	yearTail          = regexp.MustCompile(`(?i)\s+in\s+\d{4}$`)
	launchTail        = regexp.MustCompile(`(?i)\s+and\s+(?:the\s+)?launching?.*`)
	descriptionWords  = regexp.MustCompile(`(?i)search interest|remained|relatively|baseline|shows?|reveals?|data`)
	genericLead       = regexp.MustCompile(`(?i)^(?:peak|spike|surge|increase|rise|jump|drop|decline|fall|more|significant|occurs?|likely|search|interest|remained|relatively)`)
	keywordLead       = regexp.MustCompile(`(?i)^(?:october|november|december|january|february|march|april|may|june|july|august|september|increased?|higher|lower|greater|change|search|interest|terest|remed)`)
	nonWord           = regexp.MustCompile(`[^\w\s]`)
	allDigits         = regexp.MustCompile(`^\d+$`)
	googleTrendsStart = "the google trends data"
)

func (e *Extractor) fallbackRules() []rule {
	atLeastThree := func(result string, _ int) bool { return len(strings.Fields(result)) >= 3 }

	return []rule{
		{
			name:       "event-phrase",
			candidates: firstGroups(eventPhrasePatterns),
			transform: func(phrase string, maxWords int) string {
				phrase = strings.TrimSpace(phrase)
				phrase = whereTail.ReplaceAllString(phrase, "")
				phrase = novemberDateTail.ReplaceAllString(phrase, "")
				phrase = punctTail.ReplaceAllString(phrase, "")
				words := make([]string, 0)
				for _, w := range strings.Fields(phrase) {
					if utf8.RuneCountInString(w) > 2 {
						words = append(words, w)
					}
				}
				return strings.Join(truncate(words, maxWords), " ")
			},
			validate: atLeastThree,
		},
		{
			name:       "connector",
			candidates: firstGroups(connectorPatterns),
			transform: func(phrase string, maxWords int) string {
				phrase = strings.TrimSpace(phrase)
				phrase = yearTail.ReplaceAllString(phrase, "")
				phrase = leadingArticle.ReplaceAllString(phrase, "")
				phrase = launchTail.ReplaceAllString(phrase, "")
				phrase = commaTail.ReplaceAllString(phrase, "")
				if descriptionWords.MatchString(phrase) {
					return ""
				}
				words := make([]string, 0)
				for _, w := range strings.Fields(phrase) {
					if utf8.RuneCountInString(w) <= 2 {
						continue
					}
					if _, ok := e.filler[strings.ToLower(w)]; ok {
						continue
					}
					words = append(words, w)
				}
				return strings.TrimSpace(strings.Join(truncate(words, maxWords), " "))
			},
			validate: func(result string, maxWords int) bool {
				return atLeastThree(result, maxWords) && !genericLead.MatchString(result)
			},
		},
		{
			name: "capitalized-phrase",
			candidates: func(line string) []string {
				return capitalizedPhrase.FindAllString(line, -1)
			},
			transform: func(phrase string, maxWords int) string {
				for _, excluded := range e.vocab.ExcludedPhrases {
					if excluded != "" && strings.Contains(phrase, excluded) {
						return ""
					}
				}
				if !e.events.MatchString(phrase) {
					return ""
				}
				return strings.Join(truncate(strings.Fields(phrase), maxWords), " ")
			},
			validate: atLeastThree,
		},
		{
			name: "political-pattern",
			candidates: func(line string) []string {
				out := make([]string, 0, len(politicalPatterns))
				for _, p := range politicalPatterns {
					if m := p.FindString(line); m != "" {
						out = append(out, m)
					}
				}
				return out
			},
			transform: func(phrase string, maxWords int) string {
				phrase = strings.TrimSpace(phrase)
				phrase = whereTail.ReplaceAllString(phrase, "")
				phrase = novemberTail.ReplaceAllString(phrase, "")
				return strings.Join(truncate(strings.Fields(phrase), maxWords), " ")
			},
			validate: atLeastThree,
		},
		{
			name:       "keywords",
			candidates: func(line string) []string { return []string{line} },
			transform: func(phrase string, maxWords int) string {
				words := make([]string, 0)
				for _, w := range strings.Fields(nonWord.ReplaceAllString(strings.ToLower(phrase), " ")) {
					if len(w) <= 3 || allDigits.MatchString(w) {
						continue
					}
					if _, ok := e.stop[w]; ok {
						continue
					}
					words = append(words, w)
				}
				return strings.Join(truncate(words, maxWords), " ")
			},
			validate: func(result string, maxWords int) bool {
				return atLeastThree(result, maxWords) &&
					e.keywordHit.MatchString(result) &&
					!keywordLead.MatchString(result)
			},
		},
	}
}

func firstGroups(patterns []*regexp.Regexp) func(string) []string {
	return func(line string) []string {
		out := make([]string, 0, len(patterns))
		for _, p := range patterns {
			if m := p.FindStringSubmatch(line); len(m) > 1 && m[1] != "" {
				out = append(out, m[1])
			}
		}
		return out
	}
}

// fallback mines sentence fragments that mention the target month or date.
func (e *Extractor) fallback(narrative, targetDate string, maxWords int) Match {
	target, _, _ := strings.Cut(targetDate, "T")
	relevant := e.relevantFragments(narrative, target, targetDate)

	for _, line := range relevant {
		lower := strings.ToLower(line)
		if containsAny(lower, e.vocab.FragmentDenylist) || strings.HasPrefix(lower, "peak ") || peakPrefix.MatchString(lower) {
			continue
		}
		for _, r := range e.rules {
			if out, ok := r.apply(line, maxWords); ok {
				return Match{Text: out, Tier: TierFallback, Rule: r.name}
			}
		}
	}
	return Match{}
}

func (e *Extractor) relevantFragments(narrative, target, raw string) []string {
	var monthName, year, monthNum string
	if t, err := time.Parse(utils.DateLayout, target); err == nil {
		monthName = strings.ToLower(t.Month().String())
		year = strconv.Itoa(t.Year())
		monthNum = strconv.Itoa(int(t.Month()))
	}

	out := make([]string, 0)
	for _, part := range fragmentSplit.Split(narrative, -1) {
		line := strings.TrimSpace(part)
		if len(line) <= 15 {
			continue
		}
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, googleTrendsStart) || containsAny(lower, e.vocab.DescriptivePhrases) {
			continue
		}
		mentioned := strings.Contains(lower, strings.ToLower(raw)) || strings.Contains(lower, target)
		if year != "" {
			mentioned = mentioned ||
				(strings.Contains(lower, monthName) && strings.Contains(lower, year)) ||
				(strings.Contains(lower, year) && strings.Contains(lower, monthNum))
		}
		if mentioned {
			out = append(out, line)
		}
	}
	return out
}
