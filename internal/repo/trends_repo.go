package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/cache"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

// TrendKeyPrefix prefixes every stored keyword series.
const TrendKeyPrefix = "cache-trends:Trends."

// ErrTrendNotFound signals that no stored series matched any spelling of the keyword.
var ErrTrendNotFound = errors.New("trend data not found")

// TrendsRepo reads keyword series written by the trends exporter.
type TrendsRepo struct {
	cache  cache.Provider
	logger *slog.Logger
	now    func() time.Time
}

// NewTrendsRepo constructs a repository over the supplied cache provider.
func NewTrendsRepo(cacheProvider cache.Provider, logger *slog.Logger) *TrendsRepo {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TrendsRepo{cache: cacheProvider, logger: logger, now: time.Now}
}

// KeyVariations lists the spellings tried for keyword: as given, lower, upper and
// title case, then the same four with whitespace removed. Duplicates are dropped.
func KeyVariations(keyword string) []string {
	compact := strings.Join(strings.Fields(keyword), "")
	candidates := []string{
		keyword, strings.ToLower(keyword), strings.ToUpper(keyword), titleCase(keyword),
		compact, strings.ToLower(compact), strings.ToUpper(compact), titleCase(compact),
	}
	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func titleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// FetchRaw returns the first stored payload matching a spelling of keyword, with its key.
func (r *TrendsRepo) FetchRaw(ctx context.Context, keyword string) (string, []byte, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return "", nil, fmt.Errorf("keyword is required")
	}
	var lookupErr error
	for _, variation := range KeyVariations(keyword) {
		key := TrendKeyPrefix + variation
		data, err := r.cache.Get(ctx, key)
		if errors.Is(err, cache.ErrCacheMiss) {
			continue
		}
		if err != nil {
			r.logger.Warn("trend lookup failed", slog.String("key", key), slog.Any("error", err))
			lookupErr = err
			continue
		}
		if len(data) == 0 {
			continue
		}
		r.logger.Debug("trend cache hit", slog.String("key", key), slog.Int("bytes", len(data)))
		return key, data, nil
	}

	// A failed lookup may have hidden the stored spelling, so this is not a miss.
	if lookupErr != nil {
		return "", nil, utils.NewAppError("trends.fetch", "Redis not available", fmt.Errorf("%w: %w", utils.ErrUnavailable, lookupErr))
	}

	if lister, ok := r.cache.(cache.KeyLister); ok {
		if keys, err := lister.Keys(ctx, TrendKeyPrefix+"*"); err == nil {
			r.logger.Debug("trend cache miss", slog.String("keyword", keyword), slog.Int("stored_trends", len(keys)))
		}
	}
	return "", nil, fmt.Errorf("%w: %s", ErrTrendNotFound, keyword)
}

// FetchSeries loads and parses the stored series for keyword.
func (r *TrendsRepo) FetchSeries(ctx context.Context, keyword string) (models.Series, error) {
	key, data, err := r.FetchRaw(ctx, keyword)
	if err != nil {
		return nil, err
	}
	series, err := ParseTrendPayload(data, strings.TrimSpace(keyword))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", key, err)
	}
	return series, nil
}

// StoreSeries writes series in the exporter's envelope under the keyword's own spelling.
// A non-positive ttl stores without expiry.
func (r *TrendsRepo) StoreSeries(ctx context.Context, keyword string, series models.Series, ttl time.Duration) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return fmt.Errorf("keyword is required")
	}
	payload, err := EncodeTrendPayload(keyword, series, r.now())
	if err != nil {
		return fmt.Errorf("encode trend payload: %w", err)
	}
	return r.cache.Set(ctx, TrendKeyPrefix+keyword, payload, ttl)
}

// ListKeywords returns the keywords that have stored series, when the provider can enumerate keys.
func (r *TrendsRepo) ListKeywords(ctx context.Context) ([]string, error) {
	lister, ok := r.cache.(cache.KeyLister)
	if !ok {
		return nil, fmt.Errorf("cache provider cannot list keys")
	}
	keys, err := lister.Keys(ctx, TrendKeyPrefix+"*")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, TrendKeyPrefix))
	}
	return out, nil
}
