package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// searchPaths are tried in order; the first readable file wins.
var searchPaths = []string{
	"configs/config.yaml",
	"config.yaml",
}

// Load builds the configuration in layers: defaults, then the first YAML
// file found (MIXSAFE_CONFIG takes precedence over the search paths), then
// environment variables, including a .env file when present.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := DefaultConfig()

	paths := searchPaths
	if explicit := os.Getenv("MIXSAFE_CONFIG"); explicit != "" {
		paths = []string{explicit}
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.Getenv("MIXSAFE_CONFIG") != "" {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		break
	}

	loadFromEnv(cfg)
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			RequestTimeout:  15 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    512 * 1024,
			AllowedOrigins:  []string{"*"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Cache: CacheConfig{
			Backend:    "file",
			TTL:        30 * 24 * time.Hour,
			Version:    "v1",
			Prefix:     "mixsafe",
			Dir:        "cache",
			RedisAddr:  "127.0.0.1:6379",
			BadgerPath: "data/badger",
			SQLitePath: "data/cache.db",
		},
		Reactivity: ReactivityConfig{
			Timeout: 5 * time.Minute,
		},
		AI: AIConfig{
			HealthTimeout:  5 * time.Second,
			SummaryTimeout: 4 * time.Minute,
		},
		Translate: TranslateConfig{
			Backend:       "gemini",
			Language:      "Korean",
			Timeout:       90 * time.Second,
			Attempts:      2,
			GeminiModel:   "gemini-2.5-flash",
			GeminiBaseURL: "https://generativelanguage.googleapis.com",
			OpenAIModel:   "gpt-4o-mini",
		},
		Precache: PrecacheConfig{
			Workers:        2,
			RatePerSecond:  0.5,
			Attempts:       2,
			IncludeTriples: true,
		},
	}
}

func loadFromEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	setList(&cfg.Server.AllowedOrigins, "CORS_ORIGINS")
	setString(&cfg.Logging.Env, "ENV")
	setString(&cfg.Logging.Level, "LOG_LEVEL")

	setString(&cfg.Cache.Backend, "CACHE_BACKEND")
	setDuration(&cfg.Cache.TTL, "CACHE_TTL")
	setString(&cfg.Cache.Version, "CACHE_VERSION")
	setString(&cfg.Cache.Dir, "CACHE_DIR")
	setString(&cfg.Cache.RedisAddr, "REDIS_ADDR")
	setString(&cfg.Cache.BadgerPath, "BADGER_PATH")
	setString(&cfg.Cache.SQLitePath, "SQLITE_PATH")

	setString(&cfg.Reactivity.URL, "REACTIVITY_URL")
	setDuration(&cfg.Reactivity.Timeout, "REACTIVITY_TIMEOUT")

	setString(&cfg.AI.URL, "AI_API_URL")
	setDuration(&cfg.AI.HealthTimeout, "AI_HEALTH_TIMEOUT")
	setDuration(&cfg.AI.SummaryTimeout, "AI_SUMMARY_TIMEOUT")

	setString(&cfg.Translate.Backend, "TRANSLATE_BACKEND")
	setString(&cfg.Translate.Language, "TRANSLATE_LANGUAGE")
	setInt(&cfg.Translate.Attempts, "TRANSLATE_ATTEMPTS")
	setString(&cfg.Translate.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&cfg.Translate.GeminiModel, "GEMINI_MODEL")
	setString(&cfg.Translate.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.Translate.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&cfg.Translate.OpenAIModel, "OPENAI_MODEL")

	setInt(&cfg.Precache.Workers, "PRECACHE_WORKERS")
	setInt(&cfg.Precache.Attempts, "PRECACHE_ATTEMPTS")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setDuration accepts Go durations ("90s") or plain seconds ("90").
func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
	}
}

// setList splits a comma separated value and drops blanks.
func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}

func setInt(dst *int, key string) {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		*dst = v
	}
}
