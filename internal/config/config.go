// Package config provides the configuration schema and loader for the
// studyloop server.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a [time.Duration] that unmarshals from YAML strings like
// "60s" or "1.5m" via [time.ParseDuration].
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String formats d like time.Duration.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// LogLevel controls log verbosity for the studyloop server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for studyloop.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Providers   ProvidersConfig   `yaml:"providers"`
	ImageSearch ImageSearchConfig `yaml:"image_search"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Quiz        QuizConfig        `yaml:"quiz"`
}

// ServerConfig holds network and logging settings for the studyloop server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProvidersConfig declares the generative-language provider used for note
// summarization and quiz generation.
type ProvidersConfig struct {
	LLM ProviderEntry `yaml:"llm"`
}

// ProviderEntry is the common configuration block for an LLM provider.
type ProviderEntry struct {
	// Name selects the provider implementation (e.g., "gemini", "openai").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g.,
	// "gemini-2.0-flash", "gpt-4o").
	Model string `yaml:"model"`
}

// ImageSearchConfig configures the image search upstream and its cache.
type ImageSearchConfig struct {
	// APIKey is the RapidAPI key. Image endpoints report a configuration
	// error when it is empty.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the search endpoint URL. Leave empty for the
	// default real-time-image-search endpoint.
	BaseURL string `yaml:"base_url"`

	// Host overrides the X-RapidAPI-Host header value.
	Host string `yaml:"host"`

	// MaxResults caps images per query. Defaults to 3.
	MaxResults int `yaml:"max_results"`

	// CacheTTL is how long a query's results stay fresh. Defaults to 60s.
	CacheTTL Duration `yaml:"cache_ttl"`

	// CacheMaxEntries bounds the cache size. Defaults to 256.
	CacheMaxEntries int `yaml:"cache_max_entries"`

	// BreakerMaxFailures is the consecutive-failure count that opens the
	// circuit breaker around the upstream. Defaults to 5.
	BreakerMaxFailures int `yaml:"breaker_max_failures"`

	// BreakerResetTimeout is how long the breaker stays open. Defaults to 30s.
	BreakerResetTimeout Duration `yaml:"breaker_reset_timeout"`
}

// PipelineConfig tunes the live session pipeline.
type PipelineConfig struct {
	// DebounceQuiet is the quiet period after the last tutor utterance
	// before image enrichment is considered. Defaults to 1s.
	DebounceQuiet Duration `yaml:"debounce_quiet"`
}

// QuizConfig tunes quiz generation.
type QuizConfig struct {
	// Questions is the number of multiple-choice questions requested per
	// quiz. Defaults to 3.
	Questions int `yaml:"questions"`
}
