package models

import "time"

// ExplainRequest asks for a narrative explanation of one or more keyword trends.
type ExplainRequest struct {
	Keywords   []string
	Series     []KeywordSeries
	Regenerate bool
}

// ExplainResult is the cached outcome of an explain request.
type ExplainResult struct {
	Keywords      []string        `json:"keywords"`
	Explanation   string          `json:"explanation"`
	Grounding     SearchGrounding `json:"grounding"`
	PeakSummaries []PeakSummary   `json:"peakSummaries,omitempty"`
	GeneratedAt   time.Time       `json:"generatedAt"`
	Cached        bool            `json:"cached"`
}

// RegenerateResult reports the keyword sets queued for regeneration.
type RegenerateResult struct {
	Count       int      `json:"count"`
	KeywordSets []string `json:"keywordSets"`
}

// PeaksRequest asks for the peaks of a stored or supplied series. A nil MinValue and
// a zero WindowSize take the configured detection defaults.
type PeaksRequest struct {
	Keyword      string
	Series       Series
	MinValue     *float64
	WindowSize   int
	IncludeEdges bool
}

// IntelPeakRequest scores a stored or supplied series.
type IntelPeakRequest struct {
	Keyword string
	Series  Series
}

// ExtractRequest runs the explanation extractor against a narrative.
type ExtractRequest struct {
	Narrative  string `json:"narrative"`
	TargetDate string `json:"targetDate"`
	MaxWords   int    `json:"maxWords"`
}

// ExtractResult is the extractor outcome with its provenance.
type ExtractResult struct {
	Explanation string `json:"explanation"`
	Found       bool   `json:"found"`
	Tier        string `json:"tier,omitempty"`
	Rule        string `json:"rule,omitempty"`
}

// SummariesResult lists the stored peak summaries of a chart.
type SummariesResult struct {
	Keywords  []string      `json:"keywords"`
	Summaries []PeakSummary `json:"peakSummaries"`
	Message   string        `json:"message,omitempty"`
}
