package api

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

// SamplePayload is one sample on the wire. Dates accept every form ParseTrendDate does.
type SamplePayload struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// KeywordSeriesPayload is a caller-supplied series for one keyword.
type KeywordSeriesPayload struct {
	Keyword string          `json:"keyword"`
	Data    []SamplePayload `json:"data"`
}

// ExplainPayload is the body of an explain request.
type ExplainPayload struct {
	Keywords   []string               `json:"keywords"`
	Series     []KeywordSeriesPayload `json:"series,omitempty"`
	Regenerate bool                   `json:"regenerate"`
}

// KeywordsPayload names the keywords of a chart.
type KeywordsPayload struct {
	Keywords []string `json:"keywords"`
}

// PeaksPayload is the body of a peak detection request.
type PeaksPayload struct {
	Keyword      string          `json:"keyword"`
	Series       []SamplePayload `json:"series,omitempty"`
	MinValue     *float64        `json:"minValue,omitempty"`
	WindowSize   int             `json:"windowSize,omitempty"`
	IncludeEdges bool            `json:"includeEdges"`
}

// IntelPeakPayload is the body of an IntelPeak request.
type IntelPeakPayload struct {
	Keyword string          `json:"keyword"`
	Series  []SamplePayload `json:"series,omitempty"`
}

// SampleView renders a sample with a calendar date.
type SampleView struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// PeakView renders a detected peak with a calendar date.
type PeakView struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Index int     `json:"index"`
}

// ToExplainRequest validates the payload into a domain request.
func (p ExplainPayload) ToExplainRequest() (models.ExplainRequest, error) {
	req := models.ExplainRequest{
		Keywords:   append([]string(nil), p.Keywords...),
		Regenerate: p.Regenerate,
	}
	for _, ks := range p.Series {
		series, err := ToSeries(ks.Data)
		if err != nil {
			return models.ExplainRequest{}, fmt.Errorf("series %q: %w", ks.Keyword, err)
		}
		req.Series = append(req.Series, models.KeywordSeries{Keyword: ks.Keyword, Series: series})
	}
	return req, nil
}

// ToPeaksRequest validates the payload into a domain request.
func (p PeaksPayload) ToPeaksRequest() (models.PeaksRequest, error) {
	series, err := ToSeries(p.Series)
	if err != nil {
		return models.PeaksRequest{}, err
	}
	if p.WindowSize < 0 {
		return models.PeaksRequest{}, fmt.Errorf("windowSize must not be negative")
	}
	if strings.TrimSpace(p.Keyword) == "" && len(series) == 0 {
		return models.PeaksRequest{}, fmt.Errorf("keyword or series is required")
	}
	return models.PeaksRequest{
		Keyword:      strings.TrimSpace(p.Keyword),
		Series:       series,
		MinValue:     p.MinValue,
		WindowSize:   p.WindowSize,
		IncludeEdges: p.IncludeEdges,
	}, nil
}

// ToIntelPeakRequest validates the payload into a domain request.
func (p IntelPeakPayload) ToIntelPeakRequest() (models.IntelPeakRequest, error) {
	series, err := ToSeries(p.Series)
	if err != nil {
		return models.IntelPeakRequest{}, err
	}
	if strings.TrimSpace(p.Keyword) == "" && len(series) == 0 {
		return models.IntelPeakRequest{}, fmt.Errorf("keyword or series is required")
	}
	return models.IntelPeakRequest{Keyword: strings.TrimSpace(p.Keyword), Series: series}, nil
}

// ToSeries parses wire samples. Order is preserved; callers sort.
func ToSeries(samples []SamplePayload) (models.Series, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	out := make(models.Series, 0, len(samples))
	for i, s := range samples {
		date, err := utils.ParseTrendDate(s.Date)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		out = append(out, models.Sample{Date: date, Value: s.Value})
	}
	return out, nil
}

// SeriesView renders series for responses.
func SeriesView(series models.Series) []SampleView {
	out := make([]SampleView, len(series))
	for i, s := range series {
		out[i] = SampleView{Date: utils.FormatDate(s.Date), Value: s.Value}
	}
	return out
}

// PeaksView renders peaks for responses.
func PeaksView(peaks []models.Peak) []PeakView {
	out := make([]PeakView, len(peaks))
	for i, p := range peaks {
		out[i] = PeakView{Date: utils.FormatDate(p.Date), Value: p.Value, Index: p.Index}
	}
	return out
}

// SplitKeywords parses the comma-separated keywords query parameter.
func SplitKeywords(raw string) []string {
	var out []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// FromStruct decodes a protobuf Struct message into dst through its JSON form.
func FromStruct(msg *structpb.Struct, dst any) error {
	if msg == nil {
		return fmt.Errorf("request is nil")
	}
	data, err := protojson.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// ToStruct encodes v as a protobuf Struct message. v must marshal to a JSON object.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	msg := &structpb.Struct{}
	if err := protojson.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return msg, nil
}
