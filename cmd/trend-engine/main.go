package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/api"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/cache"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/config"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/engine"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/explain"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/metrics"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/repo"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/scheduler"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/services"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(os.Stdout, cfg.Logging.Level, cfg.Logging.JSON, slog.String("service", "trend-engine"))
	logger.Info("starting trend-engine",
		slog.String("grpc_address", cfg.Server.Address),
		slog.String("http_address", cfg.Server.HTTPAddress))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var cacheProvider cache.Provider = cache.NewMemoryProvider()
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewRedisProvider(cache.RedisConfig{
			Addr:         cfg.Cache.Addr,
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
			logger.Warn("redis unavailable, serving from an in-memory store", slog.String("addr", cfg.Cache.Addr), slog.Any("error", err))
		} else {
			cacheProvider = provider
		}
	}
	defer cacheProvider.Close()

	vocab, err := explain.LoadVocabulary(cfg.Vocabulary.Path)
	if err != nil {
		logger.Error("failed to load vocabulary", slog.String("path", cfg.Vocabulary.Path), slog.Any("error", err))
		os.Exit(1)
	}
	extractor := explain.NewExtractor(vocab)

	trendsRepo := repo.NewTrendsRepo(cacheProvider, logger)
	keywordsRepo := repo.NewKeywordsRepo(cacheProvider)
	store := repo.NewExplanationStore(cacheProvider, cfg.Cache.ExplanationTTL, cfg.Cache.SummariesTTL, logger)

	var generator engine.NarrativeGenerator
	gemini, err := repo.NewGeminiClient(context.Background(), repo.GeminiConfig{
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
		logger.Warn("narrative generation disabled", slog.Any("error", err))
	} else {
		generator = gemini
	}

	detection := engine.SummaryOptions{
		MinValue:   cfg.Detection.MinValue,
		WindowSize: cfg.Detection.WindowSize,
		MaxWords:   cfg.Detection.MaxWords,
	}
	pipeline := engine.NewPipeline(logger, trendsRepo, generator, store, extractor, detection)

	trendService := services.NewTrendService(logger, pipeline, trendsRepo, keywordsRepo, extractor, services.Options{
		Detection:             detection,
		RegenerateConcurrency: cfg.Scheduler.Concurrency,
	})

	server, err := api.NewServer(cfg.Server, trendService)
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var httpServer *http.Server
	if cfg.Server.HTTPAddress != "" {
		httpServer = &http.Server{
			Addr:              cfg.Server.HTTPAddress,
			Handler:           api.NewRouter(trendService, logger),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.Gemini.Timeout + 30*time.Second,
		}
		go func() {
			logger.Info("http server listening", slog.String("address", cfg.Server.HTTPAddress))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" && cfg.Server.MetricsAddress != cfg.Server.HTTPAddress {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	var cronScheduler *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		cronScheduler = scheduler.New(trendService, time.Hour, logger)
		if err := cronScheduler.Start(cfg.Scheduler.Spec); err != nil {
			logger.Error("failed to start scheduler", slog.String("spec", cfg.Scheduler.Spec), slog.Any("error", err))
			os.Exit(1)
		}
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	if cronScheduler != nil {
		cronScheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	for _, srv := range []*http.Server{httpServer, metricsServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("http shutdown", slog.String("address", srv.Addr), slog.Any("error", err))
		}
	}

	waited := make(chan struct{})
	go func() {
		trendService.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-shutdownCtx.Done():
		logger.Warn("background regeneration still running at shutdown")
	}

	logger.Info("trend-engine stopped")
}
