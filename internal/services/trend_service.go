package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/api"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/engine"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/explain"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/extractors"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/metrics"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/repo"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

const singleKeywordOnly = "Peak summaries are only available for single keyword charts"

var (
	_ api.TrendEngineServer = (*TrendService)(nil)
	_ api.TrendAPI          = (*TrendService)(nil)
)

// TrendSource loads stored trend series.
type TrendSource interface {
	FetchSeries(ctx context.Context, keyword string) (models.Series, error)
}

// KeywordSetSource lists the charted keyword sets.
type KeywordSetSource interface {
	KeywordSets(ctx context.Context) ([]models.KeywordSet, error)
}

// Options tunes detection defaults and regeneration fan-out.
type Options struct {
	Detection             engine.SummaryOptions
	RegenerateConcurrency int
}

// TrendService implements the gRPC TrendEngine service and backs the HTTP routes.
type TrendService struct {
	logger    *slog.Logger
	pipeline  *engine.Pipeline
	trends    TrendSource
	keywords  KeywordSetSource
	extractor *explain.Extractor
	opts      Options
	latencies *utils.LatencyWindow

	background sync.WaitGroup
	running    atomic.Bool
}

// NewTrendService constructs the service facade. Any dependency may be nil; the calls
// that need it then fail with FailedPrecondition.
func NewTrendService(logger *slog.Logger, pipeline *engine.Pipeline, trends TrendSource, keywords KeywordSetSource, extractor *explain.Extractor, opts Options) *TrendService {
	if logger == nil {
		logger = slog.Default()
	}
	if extractor == nil {
		extractor = explain.NewExtractor(nil)
	}
	if opts.Detection.MaxWords <= 0 {
		opts.Detection = engine.DefaultSummaryOptions()
	}
	if opts.RegenerateConcurrency <= 0 {
		opts.RegenerateConcurrency = 2
	}
	return &TrendService{
		logger:    logger,
		pipeline:  pipeline,
		trends:    trends,
		keywords:  keywords,
		extractor: extractor,
		opts:      opts,
		latencies: utils.NewLatencyWindow(1024),
	}
}

// Explain runs the explain pipeline.
func (s *TrendService) Explain(ctx context.Context, req models.ExplainRequest) (models.ExplainResult, error) {
	if s.pipeline == nil {
		return models.ExplainResult{}, fmt.Errorf("explain pipeline: %w", utils.ErrNotConfigured)
	}

	s.logger.Debug("explain requested", slog.Any("keywords", req.Keywords), slog.Bool("regenerate", req.Regenerate))
	start := time.Now()
	result, err := s.pipeline.Explain(ctx, req)
	if err != nil {
		return models.ExplainResult{}, err
	}
	if !result.Cached {
		s.latencies.Observe(time.Since(start))
		if count := s.latencies.Len(); count >= 20 && count%20 == 0 {
			s.logger.Info("explanation latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
		}
	}
	return result, nil
}

// Summaries returns the stored peak summaries of a single-keyword chart. Multi-keyword
// charts get an empty list and a message.
func (s *TrendService) Summaries(ctx context.Context, keywords []string) (models.SummariesResult, error) {
	normalised := engine.NormalizeKeywords(keywords)
	if len(normalised) == 0 {
		return models.SummariesResult{}, engine.ErrNoKeywords
	}
	result := models.SummariesResult{Keywords: normalised, Summaries: []models.PeakSummary{}}
	if len(normalised) > 1 {
		result.Message = singleKeywordOnly
		return result, nil
	}
	if s.pipeline == nil {
		return models.SummariesResult{}, fmt.Errorf("explain pipeline: %w", utils.ErrNotConfigured)
	}
	summaries, err := s.pipeline.PeakSummaries(ctx, normalised[0])
	if err != nil {
		return models.SummariesResult{}, err
	}
	result.Summaries = summaries
	return result, nil
}

// Peaks detects the peaks of the supplied series, or of the stored one for the keyword.
func (s *TrendService) Peaks(ctx context.Context, req models.PeaksRequest) ([]models.Peak, error) {
	series, err := s.resolveSeries(ctx, req.Keyword, req.Series)
	if err != nil {
		return nil, err
	}
	minValue := s.opts.Detection.MinValue
	if req.MinValue != nil {
		minValue = *req.MinValue
	}
	window := s.opts.Detection.WindowSize
	if req.WindowSize > 0 {
		window = req.WindowSize
	}

	detector := extractors.NewPeakDetector(minValue, window)
	if req.IncludeEdges {
		detector = extractors.NewSummaryDetector(minValue, window)
	}
	peaks := detector.Detect(series)
	if peaks == nil {
		peaks = []models.Peak{}
	}
	return peaks, nil
}

// IntelPeak scores the best recent peak of the supplied or stored series.
func (s *TrendService) IntelPeak(ctx context.Context, req models.IntelPeakRequest) (models.IntelPeakResult, error) {
	series, err := s.resolveSeries(ctx, req.Keyword, req.Series)
	if err != nil {
		return models.IntelPeakResult{}, err
	}
	eval := engine.EvaluateIntelPeak(series)
	for _, rej := range eval.Rejections {
		s.logger.Debug("intel peak candidate rejected",
			slog.String("keyword", req.Keyword),
			slog.String("date", utils.FormatDate(rej.Peak.Date)),
			slog.Float64("value", rej.Peak.Value),
			slog.String("reason", rej.Reason),
		)
	}
	metrics.ObserveIntelPeak(!eval.Result.Empty())
	return eval.Result, nil
}

// Extract runs the explanation extractor directly.
func (s *TrendService) Extract(req models.ExtractRequest) models.ExtractResult {
	m := s.extractor.Explain(req.Narrative, req.TargetDate, req.MaxWords)
	if m.Tier == explain.TierNone {
		return models.ExtractResult{}
	}
	return models.ExtractResult{Explanation: m.Text, Found: true, Tier: tierName(m.Tier), Rule: m.Rule}
}

// TrendSeries loads the stored series for each keyword. Keywords without data are
// reported as missing; an error is returned only when every lookup failed, and a
// store failure wins over not-found.
func (s *TrendService) TrendSeries(ctx context.Context, keywords []string) (map[string]models.Series, []string, error) {
	normalised := engine.NormalizeKeywords(keywords)
	if len(normalised) == 0 {
		return nil, nil, engine.ErrNoKeywords
	}
	if s.trends == nil {
		return nil, nil, fmt.Errorf("trend repository: %w", utils.ErrNotConfigured)
	}
	found := make(map[string]models.Series, len(normalised))
	missing := []string{}
	var lookupErr error
	for _, kw := range normalised {
		series, err := s.trends.FetchSeries(ctx, kw)
		if err != nil {
			if !errors.Is(err, repo.ErrTrendNotFound) {
				s.logger.Warn("trend lookup failed", slog.String("keyword", kw), slog.Any("error", err))
				lookupErr = err
			}
			missing = append(missing, kw)
			continue
		}
		found[kw] = series
	}
	if len(found) == 0 {
		if lookupErr != nil {
			return nil, missing, lookupErr
		}
		return nil, missing, fmt.Errorf("%w: %s", repo.ErrTrendNotFound, strings.Join(missing, ", "))
	}
	return found, missing, nil
}

// Regenerate starts regenerating every charted keyword set in the background and
// returns what was queued. It fails with utils.ErrAlreadyRunning while a previous
// run is still in flight.
func (s *TrendService) Regenerate(ctx context.Context) (models.RegenerateResult, error) {
	sets, result, err := s.regenerationPlan(ctx)
	if err != nil {
		return models.RegenerateResult{}, err
	}
	if result.Count == 0 {
		return result, nil
	}
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("regeneration already running, skipping")
		return models.RegenerateResult{}, utils.ErrAlreadyRunning
	}

	detached := context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer s.running.Store(false)
		if err := s.regenerateSets(detached, sets); err != nil {
			s.logger.Warn("background regeneration finished with failures", slog.Any("error", err))
		}
	}()
	return result, nil
}

// RegenerateAndWait regenerates every charted keyword set and waits for completion.
func (s *TrendService) RegenerateAndWait(ctx context.Context) (models.RegenerateResult, error) {
	sets, result, err := s.regenerationPlan(ctx)
	if err != nil {
		return models.RegenerateResult{}, err
	}
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("regeneration already running, skipping")
		return models.RegenerateResult{}, utils.ErrAlreadyRunning
	}
	defer s.running.Store(false)
	return result, s.regenerateSets(ctx, sets)
}

// Wait blocks until background regenerations have finished.
func (s *TrendService) Wait() {
	s.background.Wait()
}

func (s *TrendService) regenerationPlan(ctx context.Context) ([]models.KeywordSet, models.RegenerateResult, error) {
	if s.pipeline == nil {
		return nil, models.RegenerateResult{}, fmt.Errorf("explain pipeline: %w", utils.ErrNotConfigured)
	}
	if s.keywords == nil {
		return nil, models.RegenerateResult{}, fmt.Errorf("keyword repository: %w", utils.ErrNotConfigured)
	}
	sets, err := s.keywords.KeywordSets(ctx)
	if err != nil {
		return nil, models.RegenerateResult{}, fmt.Errorf("load keyword sets: %w", err)
	}
	result := models.RegenerateResult{Count: len(sets), KeywordSets: make([]string, 0, len(sets))}
	for _, set := range sets {
		result.KeywordSets = append(result.KeywordSets, strings.Join(set, ", "))
	}
	return sets, result, nil
}

// regenerateSets runs one regeneration per set with bounded concurrency. Individual
// failures do not stop the others; they are joined into the returned error. Callers
// hold the running flag.
func (s *TrendService) regenerateSets(ctx context.Context, sets []models.KeywordSet) error {
	var (
		mu     sync.Mutex
		errs   []error
		g      errgroup.Group
		start  = time.Now()
		failed atomic.Int32
	)
	g.SetLimit(s.opts.RegenerateConcurrency)
	for _, set := range sets {
		g.Go(func() error {
			_, err := s.pipeline.Explain(ctx, models.ExplainRequest{Keywords: set, Regenerate: true})
			if err != nil {
				failed.Add(1)
				metrics.ObserveRegeneration(metrics.OutcomeError)
				s.logger.Warn("regeneration failed", slog.Any("keywords", []string(set)), slog.Any("error", err))
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", strings.Join(set, ", "), err))
				mu.Unlock()
				return nil
			}
			metrics.ObserveRegeneration(metrics.OutcomeSuccess)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("regeneration complete",
		slog.Int("sets", len(sets)),
		slog.Int("failed", int(failed.Load())),
		slog.Duration("elapsed", time.Since(start)),
	)
	return errors.Join(errs...)
}

func (s *TrendService) resolveSeries(ctx context.Context, keyword string, supplied models.Series) (models.Series, error) {
	if len(supplied) > 0 {
		return supplied.Sorted(), nil
	}
	if strings.TrimSpace(keyword) == "" {
		return nil, engine.ErrNoKeywords
	}
	if s.trends == nil {
		return nil, fmt.Errorf("trend repository: %w", utils.ErrNotConfigured)
	}
	series, err := s.trends.FetchSeries(ctx, keyword)
	if err != nil {
		return nil, err
	}
	return series.Sorted(), nil
}

func tierName(t explain.Tier) string {
	switch t {
	case explain.TierStructured:
		return "structured"
	case explain.TierFallback:
		return "fallback"
	default:
		return ""
	}
}

// ExplainTrend implements the gRPC method.
func (s *TrendService) ExplainTrend(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var payload api.ExplainPayload
	if err := api.FromStruct(in, &payload); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	req, err := payload.ToExplainRequest()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	result, err := s.Explain(ctx, req)
	if err != nil {
		return nil, s.toStatus("explain trend", err)
	}
	if result.PeakSummaries == nil {
		result.PeakSummaries = []models.PeakSummary{}
	}
	return s.reply(result)
}

// GetPeakSummaries implements the gRPC method.
func (s *TrendService) GetPeakSummaries(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var payload api.KeywordsPayload
	if err := api.FromStruct(in, &payload); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	result, err := s.Summaries(ctx, payload.Keywords)
	if err != nil {
		return nil, s.toStatus("peak summaries", err)
	}
	return s.reply(result)
}

// DetectPeaks implements the gRPC method.
func (s *TrendService) DetectPeaks(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var payload api.PeaksPayload
	if err := api.FromStruct(in, &payload); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	req, err := payload.ToPeaksRequest()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	peaks, err := s.Peaks(ctx, req)
	if err != nil {
		return nil, s.toStatus("detect peaks", err)
	}
	return s.reply(map[string]any{"keyword": req.Keyword, "peaks": api.PeaksView(peaks)})
}

// CalculateIntelPeak implements the gRPC method.
func (s *TrendService) CalculateIntelPeak(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var payload api.IntelPeakPayload
	if err := api.FromStruct(in, &payload); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	req, err := payload.ToIntelPeakRequest()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	result, err := s.IntelPeak(ctx, req)
	if err != nil {
		return nil, s.toStatus("intel peak", err)
	}
	return s.reply(result)
}

// ExtractExplanation implements the gRPC method.
func (s *TrendService) ExtractExplanation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req models.ExtractRequest
	if err := api.FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if strings.TrimSpace(req.TargetDate) == "" {
		return nil, status.Error(codes.InvalidArgument, "targetDate is required")
	}
	return s.reply(s.Extract(req))
}

// RegenerateAll implements the gRPC method. It returns once the work is queued.
func (s *TrendService) RegenerateAll(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	result, err := s.Regenerate(ctx)
	if err != nil {
		return nil, s.toStatus("regenerate all", err)
	}
	return s.reply(result)
}

// LatencyP95 returns the current p95 latency of generated explanations.
func (s *TrendService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

func (s *TrendService) reply(v any) (*structpb.Struct, error) {
	msg, err := api.ToStruct(v)
	if err != nil {
		s.logger.Error("encode reply failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode reply")
	}
	return msg, nil
}

func (s *TrendService) toStatus(op string, err error) error {
	switch {
	case errors.Is(err, engine.ErrNoKeywords):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, repo.ErrTrendNotFound), repo.IsMissing(err):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, utils.ErrNotConfigured):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, utils.ErrUnavailable):
		s.logger.Warn(op+" failed", slog.Any("error", err))
		return status.Error(codes.Unavailable, errorText(err))
	case errors.Is(err, utils.ErrAlreadyRunning):
		return status.Error(codes.Aborted, "regeneration already running")
	}
	s.logger.Error(op+" failed", slog.Any("error", err))
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return status.Error(codes.Internal, appErr.Msg)
	}
	return status.Error(codes.Internal, fmt.Sprintf("%s failed: %v", op, err))
}

func errorText(err error) string {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr.Msg
	}
	return err.Error()
}
