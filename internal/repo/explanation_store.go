package repo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/cache"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
)

const (
	explanationKeyPrefix = "explain-trend:"
	summariesKeyPrefix   = "peak-summaries:"

	// DefaultExplanationTTL keeps generated narratives for four days.
	DefaultExplanationTTL = 4 * 24 * time.Hour
)

// ErrSummaryMismatch reports that stored peak summaries did not read back intact.
var ErrSummaryMismatch = errors.New("stored peak summaries do not match")

// ExplanationStore caches narratives and peak summaries per keyword set.
type ExplanationStore struct {
	cache      cache.Provider
	ttl        time.Duration
	summaryTTL time.Duration
	logger     *slog.Logger
}

// NewExplanationStore constructs the store. A negative ttl falls back to the default;
// a zero summaryTTL keeps summaries without expiry.
func NewExplanationStore(cacheProvider cache.Provider, ttl, summaryTTL time.Duration, logger *slog.Logger) *ExplanationStore {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if ttl <= 0 {
		ttl = DefaultExplanationTTL
	}
	if summaryTTL < 0 {
		summaryTTL = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExplanationStore{cache: cacheProvider, ttl: ttl, summaryTTL: summaryTTL, logger: logger}
}

// KeywordHash identifies a keyword set regardless of order, case or padding.
func KeywordHash(keywords []string) string {
	normalised := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			normalised = append(normalised, k)
		}
	}
	sort.Strings(normalised)
	sum := sha256.Sum256([]byte(strings.Join(normalised, "|")))
	return hex.EncodeToString(sum[:])
}

// ExplanationKey is the cache key of the narrative for keywords.
func ExplanationKey(keywords []string) string { return explanationKeyPrefix + KeywordHash(keywords) }

// SummariesKey is the cache key of the peak summaries for keywords.
func SummariesKey(keywords []string) string { return summariesKeyPrefix + KeywordHash(keywords) }

// LoadExplanation returns the stored narrative or cache.ErrCacheMiss.
func (s *ExplanationStore) LoadExplanation(ctx context.Context, keywords []string) (models.ExplainResult, error) {
	data, err := s.cache.Get(ctx, ExplanationKey(keywords))
	if err != nil {
		return models.ExplainResult{}, err
	}
	var result models.ExplainResult
	if err := json.Unmarshal(data, &result); err != nil {
		return models.ExplainResult{}, fmt.Errorf("decode cached explanation: %w", err)
	}
	return result, nil
}

// SaveExplanation stores the narrative for the configured TTL. Summaries are stored
// separately and are not embedded.
func (s *ExplanationStore) SaveExplanation(ctx context.Context, keywords []string, result models.ExplainResult) error {
	result.Cached = false
	result.PeakSummaries = nil
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode explanation: %w", err)
	}
	return s.cache.Set(ctx, ExplanationKey(keywords), payload, s.ttl)
}

// LoadSummaries returns the stored peak summaries or cache.ErrCacheMiss. An empty list
// means the chart was processed and nothing qualified.
func (s *ExplanationStore) LoadSummaries(ctx context.Context, keywords []string) ([]models.PeakSummary, error) {
	data, err := s.cache.Get(ctx, SummariesKey(keywords))
	if err != nil {
		return nil, err
	}
	summaries := make([]models.PeakSummary, 0)
	if err := json.Unmarshal(data, &summaries); err != nil {
		return nil, fmt.Errorf("decode peak summaries: %w", err)
	}
	return summaries, nil
}

// SaveSummaries stores summaries, including an empty list, and reads them back to
// confirm the write.
func (s *ExplanationStore) SaveSummaries(ctx context.Context, keywords []string, summaries []models.PeakSummary) error {
	if summaries == nil {
		summaries = []models.PeakSummary{}
	}
	payload, err := json.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("encode peak summaries: %w", err)
	}
	key := SummariesKey(keywords)
	if err := s.cache.Set(ctx, key, payload, s.summaryTTL); err != nil {
		return err
	}

	stored, err := s.LoadSummaries(ctx, keywords)
	if err != nil {
		return fmt.Errorf("verify peak summaries: %w", err)
	}
	if len(stored) != len(summaries) {
		return fmt.Errorf("%w: wrote %d, read %d", ErrSummaryMismatch, len(summaries), len(stored))
	}
	s.logger.Debug("peak summaries stored", slog.String("key", key), slog.Int("count", len(stored)))
	return nil
}

// Invalidate removes both the narrative and the summaries for keywords.
func (s *ExplanationStore) Invalidate(ctx context.Context, keywords []string) error {
	var errs []error
	for _, key := range []string{ExplanationKey(keywords), SummariesKey(keywords)} {
		if err := s.cache.Del(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
