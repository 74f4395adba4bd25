package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/cache"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/metrics"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

// SeriesSource loads the stored trend series for a keyword.
type SeriesSource interface {
	FetchSeries(ctx context.Context, keyword string) (models.Series, error)
}

// NarrativeGenerator produces the free-text analysis for a prompt.
type NarrativeGenerator interface {
	Generate(ctx context.Context, prompt string) (models.Narrative, error)
}

// ExplanationStore persists explanations and peak summaries keyed by keyword set.
// Loads return cache.ErrCacheMiss when nothing is stored.
type ExplanationStore interface {
	LoadExplanation(ctx context.Context, keywords []string) (models.ExplainResult, error)
	SaveExplanation(ctx context.Context, keywords []string, result models.ExplainResult) error
	LoadSummaries(ctx context.Context, keywords []string) ([]models.PeakSummary, error)
	SaveSummaries(ctx context.Context, keywords []string, summaries []models.PeakSummary) error
	Invalidate(ctx context.Context, keywords []string) error
}

// ErrNoKeywords rejects explain requests without a usable keyword.
var ErrNoKeywords = errors.New("at least one keyword is required")

// Pipeline orchestrates the explain flow: series, narrative, summaries and storage.
type Pipeline struct {
	logger    *slog.Logger
	source    SeriesSource
	generator NarrativeGenerator
	store     ExplanationStore
	extractor SummaryExtractor
	opts      SummaryOptions
	now       func() time.Time
}

// NewPipeline constructs a new explain pipeline. The store may be nil, in which case
// nothing is cached.
func NewPipeline(
	logger *slog.Logger,
	source SeriesSource,
	generator NarrativeGenerator,
	store ExplanationStore,
	extractor SummaryExtractor,
	opts SummaryOptions,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxWords <= 0 {
		opts = DefaultSummaryOptions()
	}
	return &Pipeline{
		logger:    logger,
		source:    source,
		generator: generator,
		store:     store,
		extractor: extractor,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Explain returns the narrative explanation for the requested keywords, serving the
// stored copy unless a regeneration was asked for.
func (p *Pipeline) Explain(ctx context.Context, req models.ExplainRequest) (models.ExplainResult, error) {
	start := time.Now()
	result, cached, err := p.explain(ctx, req)
	switch {
	case err != nil:
		metrics.ObserveExplanation(time.Since(start), metrics.OutcomeError)
	case cached:
		metrics.ObserveExplanation(time.Since(start), metrics.OutcomeCached)
	default:
		metrics.ObserveExplanation(time.Since(start), metrics.OutcomeSuccess)
	}
	return result, err
}

func (p *Pipeline) explain(ctx context.Context, req models.ExplainRequest) (models.ExplainResult, bool, error) {
	keywords := NormalizeKeywords(req.Keywords)
	if len(keywords) == 0 {
		return models.ExplainResult{}, false, ErrNoKeywords
	}
	if p.generator == nil {
		return models.ExplainResult{}, false, fmt.Errorf("narrative generator: %w", utils.ErrNotConfigured)
	}

	series, err := p.loadSeries(ctx, keywords, req.Series)
	if err != nil {
		return models.ExplainResult{}, false, err
	}

	if !req.Regenerate {
		if result, ok := p.cachedExplanation(ctx, keywords, series); ok {
			return result, true, nil
		}
	} else if p.store != nil {
		if err := p.store.Invalidate(ctx, keywords); err != nil {
			p.logger.Warn("failed to clear stored explanation", slog.Any("keywords", keywords), slog.Any("error", err))
		}
	}

	prompt := BuildPrompt(series)
	p.logger.Debug("narrative prompt prepared",
		slog.Any("keywords", keywords),
		slog.Int("prompt_chars", len(prompt.Text)),
		slog.Int("points", prompt.Points),
		slog.Int("significant_points", len(prompt.SignificantPoints)),
	)

	narrative, err := p.generator.Generate(ctx, prompt.Text)
	if err != nil {
		return models.ExplainResult{}, false, fmt.Errorf("generate narrative: %w", err)
	}

	result := models.ExplainResult{
		Keywords:    keywords,
		Explanation: narrative.Text,
		Grounding:   narrative.Grounding,
		GeneratedAt: p.now(),
	}

	if len(keywords) == 1 {
		result.PeakSummaries = p.buildSummaries(keywords[0], series, narrative.Text)
		p.saveSummaries(ctx, keywords, result.PeakSummaries)
	}

	if p.store != nil {
		if err := p.store.SaveExplanation(ctx, keywords, result); err != nil {
			p.logger.Warn("failed to cache explanation", slog.Any("keywords", keywords), slog.Any("error", err))
		}
	}

	return result, false, nil
}

// PeakSummaries returns the stored summaries for a single keyword, rebuilding them from
// the stored explanation when only the explanation survived.
func (p *Pipeline) PeakSummaries(ctx context.Context, keyword string) ([]models.PeakSummary, error) {
	keywords := NormalizeKeywords([]string{keyword})
	if len(keywords) == 0 {
		return nil, ErrNoKeywords
	}
	if p.store == nil {
		return []models.PeakSummary{}, nil
	}

	summaries, err := p.store.LoadSummaries(ctx, keywords)
	if err == nil {
		return summaries, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		return nil, fmt.Errorf("load peak summaries: %w", err)
	}

	result, err := p.store.LoadExplanation(ctx, keywords)
	if errors.Is(err, cache.ErrCacheMiss) {
		return []models.PeakSummary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load explanation: %w", err)
	}
	series, err := p.loadSeries(ctx, keywords, nil)
	if err != nil {
		return nil, err
	}
	summaries = p.buildSummaries(keywords[0], series, result.Explanation)
	p.saveSummaries(ctx, keywords, summaries)
	return summaries, nil
}

func (p *Pipeline) cachedExplanation(ctx context.Context, keywords []string, series []models.KeywordSeries) (models.ExplainResult, bool) {
	if p.store == nil {
		return models.ExplainResult{}, false
	}
	result, err := p.store.LoadExplanation(ctx, keywords)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			p.logger.Warn("explanation lookup failed", slog.Any("keywords", keywords), slog.Any("error", err))
		}
		return models.ExplainResult{}, false
	}

	if len(keywords) == 1 {
		summaries, err := p.store.LoadSummaries(ctx, keywords)
		switch {
		case err == nil:
			result.PeakSummaries = summaries
		case errors.Is(err, cache.ErrCacheMiss):
			result.PeakSummaries = p.buildSummaries(keywords[0], series, result.Explanation)
			p.saveSummaries(ctx, keywords, result.PeakSummaries)
		default:
			p.logger.Warn("peak summary lookup failed", slog.String("keyword", keywords[0]), slog.Any("error", err))
		}
	}

	result.Cached = true
	return result, true
}

func (p *Pipeline) buildSummaries(keyword string, series []models.KeywordSeries, narrative string) []models.PeakSummary {
	if p.extractor == nil || len(series) == 0 {
		return []models.PeakSummary{}
	}
	report := CollectPeakSummaries(series[0].Series, keyword, narrative, p.extractor, p.opts)
	metrics.ObservePeakSummaries(len(report.Summaries), report.Rejected)
	p.logger.Debug("peak summaries built",
		slog.String("keyword", keyword),
		slog.Int("accepted", len(report.Summaries)),
		slog.Int("rejected", report.Rejected),
	)
	return report.Summaries
}

func (p *Pipeline) saveSummaries(ctx context.Context, keywords []string, summaries []models.PeakSummary) {
	if p.store == nil {
		return
	}
	if err := p.store.SaveSummaries(ctx, keywords, summaries); err != nil {
		p.logger.Warn("failed to store peak summaries", slog.Any("keywords", keywords), slog.Any("error", err))
	}
}

func (p *Pipeline) loadSeries(ctx context.Context, keywords []string, supplied []models.KeywordSeries) ([]models.KeywordSeries, error) {
	if len(supplied) > 0 {
		return supplied, nil
	}
	if p.source == nil {
		return nil, fmt.Errorf("series source: %w", utils.ErrNotConfigured)
	}
	out := make([]models.KeywordSeries, 0, len(keywords))
	for _, keyword := range keywords {
		series, err := p.source.FetchSeries(ctx, keyword)
		if err != nil {
			return nil, fmt.Errorf("fetch series %q: %w", keyword, err)
		}
		out = append(out, models.KeywordSeries{Keyword: keyword, Series: series.Sorted()})
	}
	return out, nil
}

// NormalizeKeywords trims keywords and drops empty or repeated entries, keeping order.
func NormalizeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	result := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, k)
	}
	return result
}
