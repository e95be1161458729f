// Package config handles configuration loading for briefly.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	LLM        LLMConfig        `mapstructure:"llm"        yaml:"llm"`
	Search     SearchConfig     `mapstructure:"search"     yaml:"search"`
	Cache      CacheConfig      `mapstructure:"cache"      yaml:"cache"`
	Newsletter NewsletterConfig `mapstructure:"newsletter" yaml:"newsletter"`
	API        APIConfig        `mapstructure:"api"        yaml:"api"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"  yaml:"telemetry"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Primary     string  `mapstructure:"primary"      yaml:"primary"` // "openai" or "ollama"
	OpenAIKey   string  `mapstructure:"openai_key"   yaml:"openai_key"`
	OllamaURL   string  `mapstructure:"ollama_url"   yaml:"ollama_url"`
	Model       string  `mapstructure:"model"        yaml:"model"`
	Temperature float64 `mapstructure:"temperature"  yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"   yaml:"max_tokens"`
	TimeoutSec  int     `mapstructure:"timeout_sec"  yaml:"timeout_sec"`
}

// SearchConfig holds search/extract API settings.
type SearchConfig struct {
	TavilyKey      string   `mapstructure:"tavily_key"      yaml:"tavily_key"`
	Depth          string   `mapstructure:"depth"           yaml:"depth"` // "basic" or "advanced"
	MaxResults     int      `mapstructure:"max_results"     yaml:"max_results"`
	ExcludeDomains []string `mapstructure:"exclude_domains" yaml:"exclude_domains"`
	TimeoutSec     int      `mapstructure:"timeout_sec"     yaml:"timeout_sec"`
	RSSFallback    bool     `mapstructure:"rss_fallback"    yaml:"rss_fallback"`
}

// CacheConfig holds newsletter cache settings.
type CacheConfig struct {
	RedisURL string `mapstructure:"redis_url" yaml:"redis_url"` // empty → in-memory cache
}

// NewsletterConfig holds curation settings.
type NewsletterConfig struct {
	RelevanceThreshold float64 `mapstructure:"relevance_threshold" yaml:"relevance_threshold"`
	SimilarityCutoff   float64 `mapstructure:"similarity_cutoff"   yaml:"similarity_cutoff"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// TelemetryConfig holds run-metadata emission settings.
type TelemetryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path"    yaml:"path"` // JSONL file; empty → stdout
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.briefly/config.yaml (home directory)
//  3. /etc/briefly/config.yaml (system)
//
// Environment variables override config file values.
// Format: BRIEFLY_<SECTION>_<KEY>, e.g., BRIEFLY_SEARCH_TAVILY_KEY
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".briefly"))
	v.AddConfigPath("/etc/briefly")

	v.SetEnvPrefix("BRIEFLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("BRIEFLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.primary", "openai")
	v.SetDefault("llm.ollama_url", "http://localhost:11434")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 800)
	v.SetDefault("llm.timeout_sec", 60)

	// Search defaults
	v.SetDefault("search.depth", "advanced")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.exclude_domains", []string{"youtube.com"})
	v.SetDefault("search.timeout_sec", 30)
	v.SetDefault("search.rss_fallback", true)

	// Newsletter defaults
	v.SetDefault("newsletter.relevance_threshold", 0.5)
	v.SetDefault("newsletter.similarity_cutoff", 0.6)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// The unprefixed fallbacks match what the hosted APIs document, so existing
// shell profiles keep working.
func overrideFromEnv(cfg *Config) {
	if key := firstEnv("BRIEFLY_LLM_OPENAI_KEY", "OPENAI_API_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	if key := firstEnv("BRIEFLY_SEARCH_TAVILY_KEY", "TAVILY_API_KEY"); key != "" {
		cfg.Search.TavilyKey = key
	}
	if url := firstEnv("BRIEFLY_CACHE_REDIS_URL", "REDIS_URL"); url != "" {
		cfg.Cache.RedisURL = url
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
