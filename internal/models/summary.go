package models

// PeakSummary annotates one chart peak with an extracted event explanation.
type PeakSummary struct {
	Date    string  `json:"date"`
	Keyword string  `json:"keyword"`
	Value   float64 `json:"value"`
	Summary string  `json:"summary"`
}

// SearchGrounding lists what the narrative source looked up while answering.
type SearchGrounding struct {
	Queries   []string `json:"queries,omitempty"`
	Sources   []string `json:"sources,omitempty"`
	Citations []string `json:"citations,omitempty"`
}

// Used reports whether any grounding was recorded.
func (g SearchGrounding) Used() bool {
	return len(g.Queries) > 0 || len(g.Sources) > 0 || len(g.Citations) > 0
}

// Merge appends other's entries.
func (g SearchGrounding) Merge(other SearchGrounding) SearchGrounding {
	return SearchGrounding{
		Queries:   append(append([]string(nil), g.Queries...), other.Queries...),
		Sources:   append(append([]string(nil), g.Sources...), other.Sources...),
		Citations: append(append([]string(nil), g.Citations...), other.Citations...),
	}
}

// Narrative is the free text returned by the generative model for a set of keywords.
type Narrative struct {
	Text      string          `json:"text"`
	Grounding SearchGrounding `json:"grounding"`
	FollowUp  bool            `json:"followUp"`
}

// KeywordSet is one group of keywords charted together.
type KeywordSet []string
