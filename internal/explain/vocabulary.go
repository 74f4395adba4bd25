package explain

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vocabulary holds the word lists that steer extraction. Deployments tune these
// without code changes.
type Vocabulary struct {
	// GenericPhrases reject a structured EVENT outright and guard every result.
	GenericPhrases []string `yaml:"genericPhrases"`
	// FragmentDenylist skips narrative fragments during fallback mining.
	FragmentDenylist []string `yaml:"fragmentDenylist"`
	// DescriptivePhrases mark fragments that describe the chart instead of an event.
	DescriptivePhrases []string `yaml:"descriptivePhrases"`
	// ThemeWords is the allow-list an unsourced EVENT must hit.
	ThemeWords []string `yaml:"themeWords"`
	// EventWords qualify capitalized phrases.
	EventWords []string `yaml:"eventWords"`
	// KeywordThemeWords qualify last-resort keyword extraction.
	KeywordThemeWords []string `yaml:"keywordThemeWords"`
	// ExcludedPhrases are capitalized phrases never returned, such as recurring names.
	ExcludedPhrases []string `yaml:"excludedPhrases"`
	StopWords       []string `yaml:"stopWords"`
	FillerWords     []string `yaml:"fillerWords"`
	// SummaryRejects is the final filter applied to chart summaries.
	SummaryRejects []string `yaml:"summaryRejects"`
}

// DefaultVocabulary returns the built-in lists.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		GenericPhrases: []string{
			"no specific event", "no event found", "search volume", "general election news",
			"not found", "unclear", "unknown event", "peak in", "peak on", "increase in",
			"spike in", "rise in", "google trends", "search interest", "here's", "analysis", "keyword",
		},
		FragmentDenylist: []string{
			"no specific event", "search volume", "search interest", "peak in", "peak on",
			"spike in", "increase in", "rise in", "not found", "unclear",
		},
		DescriptivePhrases: []string{
			"google trends", "analysis", "search interest for", "remained relatively", "shows", "reveals", "data for",
		},
		ThemeWords: strings.Fields(`election campaign debate announcement policy protest crisis incident scandal
			vote referendum rally march strike legislation bill law court ruling verdict attack conflict war treaty
			summit convention primary candidate resignation appointment speech interview endorsement controversy win
			won victory defeat defied odds directive security violence classif label predictor belief political trump
			biden president government administration federal state national domestic international terrorism
			extremism radical ideology doctrine order executive decision action measure initiative program plan
			strategy response reaction statement declaration proclamation guidance instruction mandate requirement
			regulation rule standard criteria classification category designation identification assessment
			evaluation analysis report finding conclusion recommendation suggestion proposal capitalist
			anti-capitalist anti-capitalism allegations misconduct sexual harassment conceded concede race mayoral
			mayor launched accused faced death deaths undercounting nursing home covid coronavirus`),
		EventWords: []string{"election", "campaign", "race", "mayoral", "debate", "primary"},
		KeywordThemeWords: []string{
			"election", "campaign", "race", "mayoral", "debate", "primary", "candidate", "vote",
			"announcement", "policy", "scandal", "protest", "crisis", "incident",
		},
		ExcludedPhrases: []string{"Google Trends", "Trends for"},
		StopWords: strings.Fields(`the a an in on at to for of with by from as is was were are this that these
			those be been being have has had do does did will would could should may might can spike spikes peak
			peaks surge surges increase increases rise rises drop drops value values interest likely corresponds
			coverage media search data reflect reflects show shows indicate indicates suggest suggests mark marks
			higher lower during period remain remained relatively baseline noticeable substantial`),
		FillerWords: strings.Fields(`was were has have had been being will would could should may might can this
			that when where which more most very quite just only`),
		SummaryRejects: []string{"google trends", "search interest", "search volume", "peak", "keyword", "analysis", "here's"},
	}
}

// LoadVocabulary reads a YAML vocabulary file. Lists present in the file replace the
// defaults; an empty path or missing file yields the defaults.
func LoadVocabulary(path string) (*Vocabulary, error) {
	vocab := DefaultVocabulary()
	if path == "" {
		return vocab, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return vocab, nil
		}
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	var file Vocabulary
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	vocab.merge(file)
	return vocab, nil
}

func (v *Vocabulary) merge(o Vocabulary) {
	override := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	override(&v.GenericPhrases, o.GenericPhrases)
	override(&v.FragmentDenylist, o.FragmentDenylist)
	override(&v.DescriptivePhrases, o.DescriptivePhrases)
	override(&v.ThemeWords, o.ThemeWords)
	override(&v.EventWords, o.EventWords)
	override(&v.KeywordThemeWords, o.KeywordThemeWords)
	override(&v.ExcludedPhrases, o.ExcludedPhrases)
	override(&v.StopWords, o.StopWords)
	override(&v.FillerWords, o.FillerWords)
	override(&v.SummaryRejects, o.SummaryRejects)
}

// containsAny reports whether lower contains any of the phrases, compared in lower case.
func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// alternation compiles a case-insensitive substring matcher for words. An empty list
// never matches.
func alternation(words []string) *regexp.Regexp {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	if len(quoted) == 0 {
		return regexp.MustCompile(`[^\s\S]`)
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)
}

// wordSet builds an exact-match lookup for whole lower-case words.
func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return set
}
