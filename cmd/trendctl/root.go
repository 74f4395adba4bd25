package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/cache"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/config"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/engine"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/explain"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/repo"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/services"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

type globalOptions struct {
	configPath string
	redisAddr  string
	file       string
	jsonOut    bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "trendctl",
		Short: "Inspect search-interest peaks and their explanations",
		Long: `trendctl works on the same stored trends as the trend-engine service.

Series come from Redis (--redis, or the cache section of --config) or from a
local exporter payload (--file).

Example usage:
  trendctl peaks sliwa --file sliwa.json
  trendctl intelpeak "eric adams" --redis localhost:6379
  trendctl extract --narrative-file answer.txt --date 2024-01-11
  trendctl explain sliwa --regenerate`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "configuration file (default: TREND_ENGINE_CONFIG)")
	root.PersistentFlags().StringVar(&opts.redisAddr, "redis", "", "Redis address holding stored trends")
	root.PersistentFlags().StringVarP(&opts.file, "file", "f", "", "read the series from a local payload file instead of Redis")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print JSON instead of tables")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(
		newPeaksCmd(opts),
		newIntelPeakCmd(opts),
		newExtractCmd(opts),
		newExplainCmd(opts),
		newSummariesCmd(opts),
	)
	return root
}

// runtime is the service stack a command works against.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider cache.Provider
	service  *services.TrendService
}

func (r *runtime) Close() {
	if r.provider != nil {
		_ = r.provider.Close()
	}
}

func (o *globalOptions) logger() *slog.Logger {
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	return utils.NewLogger(os.Stderr, level, false)
}

// open loads configuration and wires the service. withGenerator additionally builds
// the Gemini client, failing when no API key is configured.
func (o *globalOptions) open(ctx context.Context, withGenerator bool) (*runtime, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	logger := o.logger()

	rt := &runtime{cfg: cfg, logger: logger, provider: cache.NewMemoryProvider()}
	if o.file == "" {
		addr := cfg.Cache.Addr
		if o.redisAddr != "" {
			addr = o.redisAddr
		}
		provider, err := cache.NewRedisProvider(cache.RedisConfig{
			Addr:         addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			PoolSize:     cfg.Cache.PoolSize,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", addr, err)
		}
		rt.provider = provider
	}

	vocab, err := explain.LoadVocabulary(cfg.Vocabulary.Path)
	if err != nil {
		rt.Close()
		return nil, err
	}
	extractor := explain.NewExtractor(vocab)

	var generator engine.NarrativeGenerator
	if withGenerator {
		gemini, err := repo.NewGeminiClient(ctx, repo.GeminiConfig{
			APIKey:            cfg.Gemini.APIKey,
			BaseURL:           cfg.Gemini.BaseURL,
			Model:             cfg.Gemini.Model,
			Temperature:       cfg.Gemini.Temperature,
			TopK:              cfg.Gemini.TopK,
			TopP:              cfg.Gemini.TopP,
			MaxOutputTokens:   cfg.Gemini.MaxOutputTokens,
			Timeout:           cfg.Gemini.Timeout,
			RequestsPerSecond: cfg.Gemini.RequestsPerSecond,
			Burst:             cfg.Gemini.Burst,
		}, logger)
		if err != nil {
			rt.Close()
			return nil, err
		}
		generator = gemini
	}

	detection := engine.SummaryOptions{
		MinValue:   cfg.Detection.MinValue,
		WindowSize: cfg.Detection.WindowSize,
		MaxWords:   cfg.Detection.MaxWords,
	}
	trends := repo.NewTrendsRepo(rt.provider, logger)
	store := repo.NewExplanationStore(rt.provider, cfg.Cache.ExplanationTTL, cfg.Cache.SummariesTTL, logger)
	pipeline := engine.NewPipeline(logger, trends, generator, store, extractor, detection)
	rt.service = services.NewTrendService(logger, pipeline, trends, repo.NewKeywordsRepo(rt.provider), extractor, services.Options{
		Detection:             detection,
		RegenerateConcurrency: cfg.Scheduler.Concurrency,
	})
	return rt, nil
}

// localSeries parses --file for keyword. It returns nil without --file.
func (o *globalOptions) localSeries(keyword string) (models.Series, error) {
	if o.file == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(o.file)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	series, err := repo.ParseTrendPayload(raw, strings.TrimSpace(keyword))
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("payload %s holds no samples", o.file)
	}
	return series, nil
}
