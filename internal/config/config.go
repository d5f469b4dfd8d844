// Package config holds the tunables of the audit pipeline. Defaults are
// compiled in; an optional YAML file overrides them.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "2s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// RetryPolicy configures one class of remote call.
type RetryPolicy struct {
	MaxAttempts   int      `yaml:"max_attempts"`
	RateLimitBase Duration `yaml:"rate_limit_base"`
	OverloadBase  Duration `yaml:"overload_base"`
	OtherDelay    Duration `yaml:"other_delay"`
}

// SpellingMode selects whether the spelling audit overlaps product
// extraction or runs strictly after catalog validation.
type SpellingMode string

const (
	// SpellingSequential runs the audit last, minimising burst rate
	// against the provider.
	SpellingSequential SpellingMode = "sequential"
	// SpellingConcurrent overlaps the audit with extraction and
	// validation for lower per-item latency.
	SpellingConcurrent SpellingMode = "concurrent"
)

// Pipeline configures per-item execution.
type Pipeline struct {
	Extraction   RetryPolicy  `yaml:"extraction"`
	Catalog      RetryPolicy  `yaml:"catalog"`
	Spelling     RetryPolicy  `yaml:"spelling"`
	LookupPause  Duration     `yaml:"lookup_pause"`
	SpellingMode SpellingMode `yaml:"spelling_mode"`
}

// Config is the full artaudit configuration.
type Config struct {
	Model       string   `yaml:"model"`
	Temperature float64  `yaml:"temperature"`
	Cooldown    Duration `yaml:"cooldown"`
	Pipeline    Pipeline `yaml:"pipeline"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		Model:       "gemini-2.0-flash",
		Temperature: 0.1,
		Cooldown:    Duration(2 * time.Second),
		Pipeline: Pipeline{
			Extraction: RetryPolicy{
				MaxAttempts:   3,
				RateLimitBase: Duration(2 * time.Second),
				OverloadBase:  Duration(4 * time.Second),
				OtherDelay:    Duration(time.Second),
			},
			Catalog: RetryPolicy{
				MaxAttempts:   3,
				RateLimitBase: Duration(2 * time.Second),
				OverloadBase:  Duration(4 * time.Second),
				OtherDelay:    Duration(time.Second),
			},
			Spelling: RetryPolicy{
				MaxAttempts:   2,
				RateLimitBase: Duration(2 * time.Second),
				OverloadBase:  Duration(4 * time.Second),
				OtherDelay:    Duration(time.Second),
			},
			LookupPause:  Duration(1500 * time.Millisecond),
			SpellingMode: SpellingSequential,
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Pipeline.SpellingMode {
	case SpellingSequential, SpellingConcurrent:
	default:
		return fmt.Errorf("invalid spelling_mode %q (want %q or %q)",
			c.Pipeline.SpellingMode, SpellingSequential, SpellingConcurrent)
	}
	for name, p := range map[string]RetryPolicy{
		"extraction": c.Pipeline.Extraction,
		"catalog":    c.Pipeline.Catalog,
		"spelling":   c.Pipeline.Spelling,
	} {
		if p.MaxAttempts < 1 {
			return fmt.Errorf("retry policy %q: max_attempts must be at least 1", name)
		}
	}
	return nil
}
