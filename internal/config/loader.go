package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidLLMProviderNames lists the provider names the any-llm bridge can
// construct. [Validate] warns about unrecognised names rather than failing,
// so new backends can be tried without a schema change.
var ValidLLMProviderNames = []string{
	"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	if name := cfg.Providers.LLM.Name; name != "" && !slices.Contains(ValidLLMProviderNames, name) {
		slog.Warn("unrecognised LLM provider name", "name", name, "known", ValidLLMProviderNames)
	}
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("providers.llm.name is empty; summarization and quiz endpoints will be unavailable")
	}
	if cfg.ImageSearch.APIKey == "" {
		slog.Warn("image_search.api_key is empty; image endpoints will report a configuration error")
	}

	if cfg.ImageSearch.MaxResults < 0 {
		errs = append(errs, fmt.Errorf("image_search.max_results %d is negative", cfg.ImageSearch.MaxResults))
	}
	if cfg.ImageSearch.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("image_search.cache_ttl %s is negative", cfg.ImageSearch.CacheTTL))
	}
	if cfg.ImageSearch.CacheMaxEntries < 0 {
		errs = append(errs, fmt.Errorf("image_search.cache_max_entries %d is negative", cfg.ImageSearch.CacheMaxEntries))
	}
	if cfg.Pipeline.DebounceQuiet < 0 {
		errs = append(errs, fmt.Errorf("pipeline.debounce_quiet %s is negative", cfg.Pipeline.DebounceQuiet))
	}
	if cfg.Quiz.Questions < 0 {
		errs = append(errs, fmt.Errorf("quiz.questions %d is negative", cfg.Quiz.Questions))
	}

	return errors.Join(errs...)
}

// SlogLevel maps the configured log level to its slog equivalent.
// Unset falls back to info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Quiet returns the debounce quiet period, defaulting to 1s when unset.
func (p PipelineConfig) Quiet() time.Duration {
	if p.DebounceQuiet > 0 {
		return p.DebounceQuiet.Std()
	}
	return time.Second
}

// Addr returns the listen address, defaulting to ":8080" when unset.
func (s ServerConfig) Addr() string {
	if s.ListenAddr != "" {
		return s.ListenAddr
	}
	return ":8080"
}
