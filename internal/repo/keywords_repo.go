package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/cache"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
)

// KeywordsKey holds the keyword sets charted in the UI.
const KeywordsKey = "gui-keywords"

type keywordsDocument struct {
	KeywordSets [][]string `json:"keywordSets"`
	Keywords    []string   `json:"keywords,omitempty"`
	LastUpdated string     `json:"lastUpdated,omitempty"`
	Source      string     `json:"source,omitempty"`
}

// KeywordsRepo reads and writes the charted keyword sets.
type KeywordsRepo struct {
	cache cache.Provider
	now   func() time.Time
}

// NewKeywordsRepo constructs the repository.
func NewKeywordsRepo(cacheProvider cache.Provider) *KeywordsRepo {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	return &KeywordsRepo{cache: cacheProvider, now: time.Now}
}

// KeywordSets returns the stored sets. A missing document yields cache.ErrCacheMiss.
func (r *KeywordsRepo) KeywordSets(ctx context.Context) ([]models.KeywordSet, error) {
	data, err := r.cache.Get(ctx, KeywordsKey)
	if err != nil {
		return nil, err
	}
	var doc keywordsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeywordsKey, err)
	}
	return cleanKeywordSets(doc.KeywordSets), nil
}

// SaveKeywordSets replaces the stored sets after trimming and de-duplicating them.
func (r *KeywordsRepo) SaveKeywordSets(ctx context.Context, sets []models.KeywordSet, source string) error {
	raw := make([][]string, len(sets))
	for i, s := range sets {
		raw[i] = s
	}
	cleaned := cleanKeywordSets(raw)

	doc := keywordsDocument{
		KeywordSets: make([][]string, len(cleaned)),
		LastUpdated: r.now().UTC().Format(time.RFC3339),
		Source:      source,
	}
	flat := make(map[string]struct{})
	for i, s := range cleaned {
		doc.KeywordSets[i] = s
		for _, k := range s {
			flat[k] = struct{}{}
		}
	}
	for k := range flat {
		doc.Keywords = append(doc.Keywords, k)
	}
	sort.Strings(doc.Keywords)

	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return r.cache.Set(ctx, KeywordsKey, payload, 0)
}

// cleanKeywordSets trims keywords, drops empty sets and removes sets that repeat an
// earlier one in any order.
func cleanKeywordSets(sets [][]string) []models.KeywordSet {
	seen := make(map[string]struct{}, len(sets))
	out := make([]models.KeywordSet, 0, len(sets))
	for _, set := range sets {
		cleaned := make(models.KeywordSet, 0, len(set))
		for _, k := range set {
			if k = strings.TrimSpace(k); k != "" {
				cleaned = append(cleaned, k)
			}
		}
		if len(cleaned) == 0 {
			continue
		}
		sorted := append([]string(nil), cleaned...)
		sort.Strings(sorted)
		id := strings.Join(sorted, "\x00")
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, cleaned)
	}
	return out
}

// IsMissing reports whether err means the keyword document does not exist.
func IsMissing(err error) bool { return errors.Is(err, cache.ErrCacheMiss) }
