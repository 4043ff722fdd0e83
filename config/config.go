// Package config loads and validates service configuration.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Provider names accepted for text generation routing.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// DataPaths holds data directory and file path configuration. Empty leaf
// paths are derived from DataDir.
type DataPaths struct {
	// DataDir is the base data directory (NUVEX_DATA_PATHS_DATA_DIR, default: ./data)
	DataDir string `mapstructure:"data_dir"`
	// ReportsDir receives one incident report file per escalated offense.
	ReportsDir string `mapstructure:"reports_dir"`
	// AuditLogPath is the append-only false positive note log.
	AuditLogPath string `mapstructure:"audit_log_path"`
	// CorpusPath is the historical case corpus seed file (YAML).
	CorpusPath string `mapstructure:"corpus_path"`
}

// ProviderConfig holds per-provider text generation settings.
type ProviderConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
	// MinInterval is the minimum time between requests to this provider.
	// Zero disables pacing.
	MinInterval time.Duration `mapstructure:"min_interval"`
}

// Config holds all configuration for the triage service.
type Config struct {
	DataPaths DataPaths `mapstructure:"data_paths"`

	LLM struct {
		// PrimaryProvider selects the first provider tried for every prompt.
		PrimaryProvider string `mapstructure:"primary_provider"`
		// FallbackEnabled allows one attempt against the secondary provider
		// when the primary fails.
		FallbackEnabled bool `mapstructure:"fallback_enabled"`
		// NarrativeEnabled turns on AI-generated justifications for false
		// positive verdicts. Escalation reports always attempt generation.
		NarrativeEnabled bool           `mapstructure:"narrative_enabled"`
		RequestTimeout   time.Duration  `mapstructure:"request_timeout"`
		OpenAI           ProviderConfig `mapstructure:"openai"`
		Gemini           ProviderConfig `mapstructure:"gemini"`
	} `mapstructure:"llm"`

	Reputation struct {
		AbuseIPDBKey  string        `mapstructure:"abuseipdb_key"`
		VirusTotalKey string        `mapstructure:"virustotal_key"`
		Timeout       time.Duration `mapstructure:"timeout"`
		CacheTTL      time.Duration `mapstructure:"cache_ttl"`
		CacheSize     int           `mapstructure:"cache_size"`
		// RedisAddr enables the distributed cache tier when non-empty.
		RedisAddr     string `mapstructure:"redis_addr"`
		RedisPassword string `mapstructure:"redis_password"`
		RedisDB       int    `mapstructure:"redis_db"`
	} `mapstructure:"reputation"`

	Memory struct {
		TopK int `mapstructure:"top_k"`
	} `mapstructure:"memory"`

	Engine struct {
		Workers   int `mapstructure:"workers"`
		QueueSize int `mapstructure:"queue_size"`
	} `mapstructure:"engine"`

	API struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"api"`

	Notify struct {
		Enabled    bool              `mapstructure:"enabled"`
		WebhookURL string            `mapstructure:"webhook_url"`
		Headers    map[string]string `mapstructure:"headers"`
	} `mapstructure:"notify"`
}

func setDefaults() {
	viper.SetDefault("data_paths.data_dir", "./data")
	viper.SetDefault("data_paths.reports_dir", "")
	viper.SetDefault("data_paths.audit_log_path", "")
	viper.SetDefault("data_paths.corpus_path", "")

	viper.SetDefault("llm.primary_provider", ProviderOpenAI)
	viper.SetDefault("llm.fallback_enabled", true)
	viper.SetDefault("llm.narrative_enabled", true)
	viper.SetDefault("llm.request_timeout", 30*time.Second)
	viper.SetDefault("llm.openai.model", "gpt-4o-mini")
	viper.SetDefault("llm.openai.min_interval", time.Duration(0))
	viper.SetDefault("llm.gemini.model", "gemini-pro")
	// Gemini free tier allows roughly 15 requests per minute.
	viper.SetDefault("llm.gemini.min_interval", 4*time.Second)

	viper.SetDefault("reputation.timeout", 15*time.Second)
	viper.SetDefault("reputation.cache_ttl", 24*time.Hour)
	viper.SetDefault("reputation.cache_size", 4096)
	viper.SetDefault("reputation.redis_addr", "")
	viper.SetDefault("reputation.redis_db", 0)

	viper.SetDefault("memory.top_k", 3)

	viper.SetDefault("engine.workers", 4)
	viper.SetDefault("engine.queue_size", 100)

	viper.SetDefault("api.host", "0.0.0.0")
	viper.SetDefault("api.port", 8080)

	viper.SetDefault("notify.enabled", false)
	viper.SetDefault("notify.webhook_url", "")
}

// Load reads configuration from nuvex.yaml (working directory or /etc/nuvex)
// and the NUVEX_* environment, applying defaults and deriving data paths.
// A missing config file is not an error; everything has a default.
func Load() (*Config, error) {
	setDefaults()

	viper.SetConfigName("nuvex")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/nuvex")
	viper.SetEnvPrefix("NUVEX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.derivePaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) derivePaths() {
	if c.DataPaths.ReportsDir == "" {
		c.DataPaths.ReportsDir = filepath.Join(c.DataPaths.DataDir, "reports")
	}
	if c.DataPaths.AuditLogPath == "" {
		c.DataPaths.AuditLogPath = filepath.Join(c.DataPaths.DataDir, "false_positive_notes.log")
	}
	if c.DataPaths.CorpusPath == "" {
		c.DataPaths.CorpusPath = filepath.Join(c.DataPaths.DataDir, "memory_base.yaml")
	}
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime behavior.
func (c *Config) Validate() error {
	switch c.LLM.PrimaryProvider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("llm.primary_provider must be %q or %q, got %q",
			ProviderOpenAI, ProviderGemini, c.LLM.PrimaryProvider)
	}
	if c.Memory.TopK < 0 {
		return fmt.Errorf("memory.top_k must be non-negative, got %d", c.Memory.TopK)
	}
	if c.Engine.Workers < 1 {
		return fmt.Errorf("engine.workers must be at least 1, got %d", c.Engine.Workers)
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api.port out of range: %d", c.API.Port)
	}
	return nil
}

// SecondaryProvider returns the provider used for cross-provider fallback.
func (c *Config) SecondaryProvider() string {
	if c.LLM.PrimaryProvider == ProviderOpenAI {
		return ProviderGemini
	}
	return ProviderOpenAI
}
