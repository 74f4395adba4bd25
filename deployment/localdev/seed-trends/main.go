// Command seed-trends writes synthetic keyword series and keyword sets into Redis so
// the trend engine can be exercised locally.
package main

import (
	"context"
	"flag"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/cache"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/repo"
)

func main() {
	var (
		addr   string
		sets   string
		days   int
		spikes int
		seed   uint64
		ttl    time.Duration
	)
	flag.StringVar(&addr, "redis", "localhost:6379", "Redis address")
	flag.StringVar(&sets, "sets", "sliwa;eric adams;sliwa,eric adams", "keyword sets, ';' between sets and ',' inside a set")
	flag.IntVar(&days, "days", 180, "days of history per keyword")
	flag.IntVar(&spikes, "spikes", 3, "news spikes per keyword")
	flag.Uint64Var(&seed, "seed", 1, "random seed")
	flag.DurationVar(&ttl, "ttl", 0, "expiry of the stored series (0 keeps them)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	provider, err := cache.NewRedisProvider(cache.RedisConfig{Addr: addr})
	if err != nil {
		logger.Error("connect redis", slog.String("addr", addr), slog.Any("error", err))
		os.Exit(1)
	}
	defer provider.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	keywordSets := parseSets(sets)
	trends := repo.NewTrendsRepo(provider, logger)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	end := time.Now().UTC().Truncate(24 * time.Hour)

	written := map[string]bool{}
	for _, set := range keywordSets {
		for _, kw := range set {
			if written[kw] {
				continue
			}
			series := synthesize(rng, end, days, spikes)
			if err := trends.StoreSeries(ctx, kw, series, ttl); err != nil {
				logger.Error("store series", slog.String("keyword", kw), slog.Any("error", err))
				os.Exit(1)
			}
			written[kw] = true
			logger.Info("seeded series", slog.String("keyword", kw), slog.Int("samples", len(series)))
		}
	}

	if err := repo.NewKeywordsRepo(provider).SaveKeywordSets(ctx, keywordSets, "seed-trends"); err != nil {
		logger.Error("store keyword sets", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("seeded keyword sets", slog.Int("sets", len(keywordSets)))
}

func parseSets(raw string) []models.KeywordSet {
	var out []models.KeywordSet
	for _, group := range strings.Split(raw, ";") {
		var set models.KeywordSet
		for _, kw := range strings.Split(group, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				set = append(set, kw)
			}
		}
		if len(set) > 0 {
			out = append(out, set)
		}
	}
	return out
}

// synthesize draws a noisy low baseline with a few decaying spikes, scaled so the
// highest sample is 100.
func synthesize(rng *rand.Rand, end time.Time, days, spikes int) models.Series {
	if days < 1 {
		days = 1
	}
	values := make([]float64, days)
	for i := range values {
		values[i] = 4 + rng.Float64()*4
	}
	for s := 0; s < spikes; s++ {
		at := rng.IntN(days)
		height := 30 + rng.Float64()*70
		for d := 0; d < 6 && at+d < days; d++ {
			values[at+d] += height * math.Exp(-float64(d)*0.9)
		}
	}

	maxValue := 0.0
	for _, v := range values {
		maxValue = math.Max(maxValue, v)
	}
	series := make(models.Series, days)
	start := end.AddDate(0, 0, -(days - 1))
	for i, v := range values {
		series[i] = models.Sample{Date: start.AddDate(0, 0, i), Value: math.Round(v / maxValue * 100)}
	}
	return series
}
