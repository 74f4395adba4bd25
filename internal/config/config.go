package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the trend engine.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Cache      CacheConfig      `yaml:"cache"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Vocabulary VocabularyConfig `yaml:"vocabulary"`
	Detection  DetectionConfig  `yaml:"detection"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
}

// ServerConfig controls the gRPC, HTTP and metrics listeners.
type ServerConfig struct {
	Address         string        `yaml:"address" validate:"required,hostname_port"`
	HTTPAddress     string        `yaml:"httpAddress" validate:"omitempty,hostname_port"`
	MetricsAddress  string        `yaml:"metricsAddress" validate:"omitempty,hostname_port"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout" validate:"min=0"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls the Redis-compatible store holding trends and explanations.
type CacheConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Addr           string        `yaml:"addr" validate:"required_if=Enabled true"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db" validate:"min=0"`
	DialTimeout    time.Duration `yaml:"dialTimeout"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	MaxRetries     int           `yaml:"maxRetries" validate:"min=0"`
	PoolSize       int           `yaml:"poolSize" validate:"min=0"`
	TLS            bool          `yaml:"tls"`
	ExplanationTTL time.Duration `yaml:"explanationTTL" validate:"min=0"`
	SummariesTTL   time.Duration `yaml:"summariesTTL" validate:"min=0"`
}

// GeminiConfig configures the narrative model.
type GeminiConfig struct {
	APIKey            string        `yaml:"apiKey"`
	BaseURL           string        `yaml:"baseURL" validate:"omitempty,url"`
	Model             string        `yaml:"model" validate:"required"`
	Temperature       float32       `yaml:"temperature" validate:"min=0,max=2"`
	TopK              float32       `yaml:"topK" validate:"min=0"`
	TopP              float32       `yaml:"topP" validate:"min=0,max=1"`
	MaxOutputTokens   int32         `yaml:"maxOutputTokens" validate:"min=1"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond" validate:"gt=0"`
	Burst             int           `yaml:"burst" validate:"min=1"`
}

// VocabularyConfig points at the extractor vocabulary overrides.
type VocabularyConfig struct {
	Path string `yaml:"path"`
}

// DetectionConfig tunes the chart peak summaries.
type DetectionConfig struct {
	MinValue   float64 `yaml:"minValue" validate:"min=0"`
	WindowSize int     `yaml:"windowSize" validate:"min=1"`
	MaxWords   int     `yaml:"maxWords" validate:"min=1"`
}

// SchedulerConfig controls the periodic regenerate-all job.
type SchedulerConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Spec        string `yaml:"spec" validate:"required_if=Enabled true"`
	Concurrency int    `yaml:"concurrency" validate:"min=1"`
}

// Load initialises Config from a YAML file, an optional .env file and environment
// overrides, then validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("TREND_ENGINE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			HTTPAddress:     ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:        true,
			Addr:           "localhost:6379",
			DialTimeout:    2 * time.Second,
			ReadTimeout:    time.Second,
			WriteTimeout:   time.Second,
			MaxRetries:     2,
			PoolSize:       10,
			ExplanationTTL: 4 * 24 * time.Hour,
		},
		Gemini: GeminiConfig{
			Model:             "gemini-2.0-flash",
			Temperature:       0.7,
			TopK:              40,
			TopP:              0.95,
			MaxOutputTokens:   2048,
			Timeout:           2 * time.Minute,
			RequestsPerSecond: 1,
			Burst:             2,
		},
		Vocabulary: VocabularyConfig{Path: "configs/vocabulary.yaml"},
		Detection:  DetectionConfig{MinValue: 15, WindowSize: 3, MaxWords: 15},
		Scheduler: SchedulerConfig{
			Enabled:     false,
			Spec:        "0 0 3 * * *",
			Concurrency: 2,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TREND_ENGINE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("TREND_ENGINE_HTTP_ADDRESS"); v != "" {
		cfg.Server.HTTPAddress = v
	}
	if v := os.Getenv("TREND_ENGINE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("TREND_ENGINE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("TREND_ENGINE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		applyRedisURL(&cfg.Cache, v)
	}
	if v := os.Getenv("TREND_ENGINE_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("TREND_ENGINE_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("TREND_ENGINE_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("TREND_ENGINE_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("TREND_ENGINE_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("TREND_ENGINE_CACHE_TLS"); parseBool(v) {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("TREND_ENGINE_CACHE_DIAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.DialTimeout = d
		}
	}
	if v := os.Getenv("TREND_ENGINE_CACHE_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.ReadTimeout = d
		}
	}
	if v := os.Getenv("TREND_ENGINE_CACHE_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.WriteTimeout = d
		}
	}
	if v := os.Getenv("TREND_ENGINE_CACHE_MAX_RETRIES"); v != "" {
		if retry, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxRetries = retry
		}
	}
	if v := os.Getenv("TREND_ENGINE_EXPLANATION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.ExplanationTTL = d
		}
	}

	if v := os.Getenv("GOOGLE_GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("TREND_ENGINE_GEMINI_MODEL"); v != "" {
		cfg.Gemini.Model = v
	}
	if v := os.Getenv("TREND_ENGINE_GEMINI_BASE_URL"); v != "" {
		cfg.Gemini.BaseURL = v
	}

	if v := os.Getenv("TREND_ENGINE_VOCABULARY_PATH"); v != "" {
		cfg.Vocabulary.Path = v
	}
	if v := os.Getenv("TREND_ENGINE_SCHEDULER_ENABLED"); v != "" {
		cfg.Scheduler.Enabled = parseBool(v)
	}
	if v := os.Getenv("TREND_ENGINE_SCHEDULER_SPEC"); v != "" {
		cfg.Scheduler.Spec = v
	}
}

// applyRedisURL reads redis://[user:pass@]host:port[/db]; rediss:// enables TLS.
func applyRedisURL(cache *CacheConfig, raw string) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return
	}
	cache.Addr = u.Host
	cache.TLS = cache.TLS || u.Scheme == "rediss"
	if u.User != nil {
		cache.Username = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			cache.Password = pw
		}
	}
	if db, err := strconv.Atoi(strings.Trim(u.Path, "/")); err == nil {
		cache.DB = db
	}
}

func parseBool(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
