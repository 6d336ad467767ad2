package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the full gateway configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Cache      CacheConfig      `yaml:"cache"`
	Reactivity ReactivityConfig `yaml:"reactivity"`
	AI         AIConfig         `yaml:"ai"`
	Translate  TranslateConfig  `yaml:"translate"`
	Precache   PrecacheConfig   `yaml:"precache"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type LoggingConfig struct {
	Env   string `yaml:"env"`
	Level string `yaml:"level"`
}

// CacheConfig selects the result store backend.
// TTL 0 keeps entries until they are purged by hand.
type CacheConfig struct {
	Backend    string        `yaml:"backend"` // memory, file, redis, badger, sqlite
	TTL        time.Duration `yaml:"ttl"`
	Version    string        `yaml:"version"`
	Prefix     string        `yaml:"prefix"`
	Dir        string        `yaml:"dir"`
	RedisAddr  string        `yaml:"redis_addr"`
	BadgerPath string        `yaml:"badger_path"`
	SQLitePath string        `yaml:"sqlite_path"`
}

// ReactivityConfig points at the remote reactivity lookup service. An
// empty URL leaves only the embedded dataset.
type ReactivityConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// AIConfig configures the summarization endpoint.
type AIConfig struct {
	URL            string        `yaml:"url"`
	HealthTimeout  time.Duration `yaml:"health_timeout"`
	SummaryTimeout time.Duration `yaml:"summary_timeout"`
}

// TranslateConfig configures the localization backend.
type TranslateConfig struct {
	Backend       string        `yaml:"backend"` // gemini or openai
	Language      string        `yaml:"language"`
	Timeout       time.Duration `yaml:"timeout"`
	Attempts      int           `yaml:"attempts"`
	GeminiAPIKey  string        `yaml:"gemini_api_key"`
	GeminiModel   string        `yaml:"gemini_model"`
	GeminiBaseURL string        `yaml:"gemini_base_url"`
	OpenAIAPIKey  string        `yaml:"openai_api_key"`
	OpenAIBaseURL string        `yaml:"openai_base_url"`
	OpenAIModel   string        `yaml:"openai_model"`
}

type PrecacheConfig struct {
	Workers        int     `yaml:"workers"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
	Attempts       int     `yaml:"attempts"`
	IncludeTriples bool    `yaml:"include_triples"`
}

// TranslationEnabled reports whether the selected backend has credentials.
func (c TranslateConfig) TranslationEnabled() bool {
	switch c.Backend {
	case "openai":
		return c.OpenAIAPIKey != ""
	default:
		return c.GeminiAPIKey != ""
	}
}

// PipelineBudget is the worst-case duration of one uncached hybrid run:
// reactivity lookup, health probe, summary, then every translation attempt
// with up to two seconds of backoff between them.
func (c *Config) PipelineBudget() time.Duration {
	attempts := time.Duration(max(c.Translate.Attempts, 1))
	return c.Reactivity.Timeout +
		c.AI.HealthTimeout +
		c.AI.SummaryTimeout +
		attempts*c.Translate.Timeout +
		(attempts-1)*2*time.Second
}

// Validate checks cross-field constraints after all layers are applied.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	switch c.Cache.Backend {
	case "memory", "file", "redis", "badger", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q is not one of memory, file, redis, badger, sqlite", c.Cache.Backend))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		errs = append(errs, errors.New("cache.redis_addr is required for the redis backend"))
	}
	if c.Cache.Backend == "file" && c.Cache.Dir == "" {
		errs = append(errs, errors.New("cache.dir is required for the file backend"))
	}
	switch c.Translate.Backend {
	case "gemini", "openai":
	default:
		errs = append(errs, fmt.Errorf("translate.backend %q is not one of gemini, openai", c.Translate.Backend))
	}
	if c.Translate.Attempts < 1 {
		errs = append(errs, errors.New("translate.attempts must be at least 1"))
	}
	if c.AI.HealthTimeout <= 0 || c.AI.SummaryTimeout <= 0 {
		errs = append(errs, errors.New("ai timeouts must be positive"))
	}

	return errors.Join(errs...)
}

// normalize trims URLs so paths can be appended safely.
func (c *Config) normalize() {
	c.AI.URL = strings.TrimRight(strings.TrimSpace(c.AI.URL), "/")
	c.Reactivity.URL = strings.TrimRight(strings.TrimSpace(c.Reactivity.URL), "/")
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	c.Translate.Backend = strings.ToLower(strings.TrimSpace(c.Translate.Backend))
}
