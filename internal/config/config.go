// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	DB        DBConfig        `mapstructure:"db"`
	Storage   StorageConfig   `mapstructure:"storage"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Search    SearchConfig    `mapstructure:"search"`
	Messaging MessagingConfig `mapstructure:"messaging"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port              int `mapstructure:"port"`
	RequestTimeoutSec int `mapstructure:"request_timeout_seconds"`
	MaxUploadMB       int `mapstructure:"max_upload_mb"`
}

// AuthConfig defines API authentication toggles. The API key gates job
// submission; the admin token gates the retry endpoints.
type AuthConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	APIKey     string `mapstructure:"api_key"`
	AdminToken string `mapstructure:"admin_token"`
}

// WorkerConfig governs the dispatch queue and pipeline execution.
type WorkerConfig struct {
	Count             int  `mapstructure:"count"`
	QueueDepth        int  `mapstructure:"queue_depth"`
	StageTimeoutSec   int  `mapstructure:"stage_timeout_seconds"`
	SaveIntermediates bool `mapstructure:"save_intermediates"`
}

// DBConfig controls the primary Postgres job store. An empty DSN means the
// service runs on the file-backed store alone.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int    `mapstructure:"max_conns"`
	MinConns int    `mapstructure:"min_conns"`
}

// StorageConfig selects and parameterizes the blob store.
type StorageConfig struct {
	// Provider is "local" or "gcs".
	Provider  string `mapstructure:"provider"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	// FallbackPath is the JSON file backing the fallback job store.
	FallbackPath string `mapstructure:"fallback_path"`
}

// PubSubConfig holds metadata for terminal job event notifications. An empty
// topic disables publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// OpenAIConfig parameterizes the text generator. An empty API key degrades
// the pipeline to canned responses.
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// SearchConfig tunes the profile search and scrape collectors.
type SearchConfig struct {
	UserAgent         string `mapstructure:"user_agent"`
	TimeoutSec        int    `mapstructure:"timeout_seconds"`
	MinDelayMs        int    `mapstructure:"min_delay_ms"`
	MaxDelayMs        int    `mapstructure:"max_delay_ms"`
	ReaderProxyPrefix string `mapstructure:"reader_proxy_prefix"`
}

// MessagingConfig carries the positioning inputs woven into generated emails.
type MessagingConfig struct {
	Positioning  string   `mapstructure:"positioning"`
	CaseStudies  []string `mapstructure:"case_studies"`
	Tone         string   `mapstructure:"tone"`
	PrimaryCTA   string   `mapstructure:"primary_cta"`
	SecondaryCTA string   `mapstructure:"secondary_cta"`
}

// LoggingConfig controls the service loggers.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
	// Level overrides the mode's default ("debug" in development, "info"
	// in production). Empty keeps the default.
	Level string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("server.max_upload_mb", 16)
	v.SetDefault("worker.count", 1)
	v.SetDefault("worker.queue_depth", 64)
	v.SetDefault("worker.stage_timeout_seconds", 300)
	v.SetDefault("worker.save_intermediates", true)
	v.SetDefault("db.table", "jobs")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.base_dir", "data")
	v.SetDefault("storage.fallback_path", "data/jobs.json")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.temperature", 0.7)
	v.SetDefault("search.timeout_seconds", 12)
	v.SetDefault("search.min_delay_ms", 1800)
	v.SetDefault("search.max_delay_ms", 3200)
	v.SetDefault("search.reader_proxy_prefix", "https://r.jina.ai/http://")
	v.SetDefault("messaging.primary_cta", "DM me for a free audit")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Worker.Count <= 0 {
		return fmt.Errorf("worker.count must be > 0")
	}
	if c.Worker.QueueDepth <= 0 {
		return fmt.Errorf("worker.queue_depth must be > 0")
	}
	if c.Worker.StageTimeoutSec <= 0 {
		return fmt.Errorf("worker.stage_timeout_seconds must be > 0")
	}
	switch c.Storage.Provider {
	case "local":
		if c.Storage.BaseDir == "" {
			return fmt.Errorf("storage.base_dir must be set for the local provider")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs provider")
		}
	default:
		return fmt.Errorf("storage.provider must be local or gcs, got %q", c.Storage.Provider)
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when a topic is configured")
	}
	return nil
}

// StageTimeout converts the configured stage budget into a duration.
func (c Config) StageTimeout() time.Duration {
	return time.Duration(c.Worker.StageTimeoutSec) * time.Second
}

// RequestTimeout converts the configured HTTP budget into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSec) * time.Second
}
