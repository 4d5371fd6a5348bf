// Package config loads the runner configuration: the codec profile under
// test, run defaults, and the exemption rule tables.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tao-codec/coverage/internal/exempt"
)

type Config struct {
	Profile    ProfileConfig    `yaml:"profile"`
	Run        RunConfig        `yaml:"run"`
	Logging    LoggingConfig    `yaml:"logging"`
	Exemptions ExemptionsConfig `yaml:"exemptions"`
}

// ProfileConfig describes one codec family's comparison harness.
type ProfileConfig struct {
	Name       string `yaml:"name"`
	ReportPath string `yaml:"report_path"`
	// InputEnv is the environment variable the comparison command reads the
	// sample locator from, e.g. TAO_AAC_COMPARE_INPUT.
	InputEnv string   `yaml:"input_env"`
	Command  []string `yaml:"command"`
	// FailureKeywords extend the built-in failure markers with
	// codec-specific ones, e.g. "Vorbis 对比失败".
	FailureKeywords []string `yaml:"failure_keywords,omitempty"`
}

type RunConfig struct {
	Jobs       int `yaml:"jobs"`
	TimeoutSec int `yaml:"timeout_sec"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type ExemptionsConfig struct {
	Skip      []SkipRule      `yaml:"skip,omitempty"`
	Tolerance []ToleranceRule `yaml:"tolerance,omitempty"`
}

// SkipRule permanently excludes a sample, matched by 1-based row index or by
// sample basename. Exactly one of Index/Sample must be set.
type SkipRule struct {
	Index  int    `yaml:"index,omitempty"`
	Sample string `yaml:"sample,omitempty"`
	Reason string `yaml:"reason,omitempty"`
}

// ToleranceRule lets a sample's failing precision be reported as passing,
// matched by sample basename.
type ToleranceRule struct {
	Sample string `yaml:"sample"`
	Reason string `yaml:"reason,omitempty"`
}

// Load reads, strictly decodes, validates and defaults the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes configuration bytes. Unknown keys are rejected so a typo in
// an exemption rule cannot silently drop it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("yaml decode: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Profile.Name == "" {
		return fmt.Errorf("profile.name is required")
	}
	if c.Profile.ReportPath == "" {
		return fmt.Errorf("profile.report_path is required")
	}
	if c.Profile.InputEnv == "" {
		return fmt.Errorf("profile.input_env is required")
	}
	if len(c.Profile.Command) == 0 {
		return fmt.Errorf("profile.command is required")
	}
	if c.Run.Jobs < 0 {
		return fmt.Errorf("run.jobs must not be negative")
	}
	if c.Run.TimeoutSec < 0 {
		return fmt.Errorf("run.timeout_sec must not be negative")
	}
	for i, rule := range c.Exemptions.Skip {
		if rule.Index == 0 && rule.Sample == "" {
			return fmt.Errorf("exemptions.skip[%d]: index or sample is required", i)
		}
		if rule.Index != 0 && rule.Sample != "" {
			return fmt.Errorf("exemptions.skip[%d]: index and sample are mutually exclusive", i)
		}
		if rule.Index < 0 {
			return fmt.Errorf("exemptions.skip[%d]: index must be positive", i)
		}
	}
	for i, rule := range c.Exemptions.Tolerance {
		if rule.Sample == "" {
			return fmt.Errorf("exemptions.tolerance[%d]: sample is required", i)
		}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Run.Jobs == 0 {
		c.Run.Jobs = runtime.NumCPU()
	}
	if c.Run.TimeoutSec == 0 {
		c.Run.TimeoutSec = 60
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// RuleSet builds the immutable exemption rule set from the configuration.
func (c *Config) RuleSet() *exempt.RuleSet {
	rs := exempt.NewRuleSet()
	for _, rule := range c.Exemptions.Skip {
		if rule.Index > 0 {
			rs.AddSkipIndex(rule.Index, rule.Reason)
		} else {
			rs.AddSkipSample(rule.Sample, rule.Reason)
		}
	}
	for _, rule := range c.Exemptions.Tolerance {
		rs.AddTolerance(rule.Sample, rule.Reason)
	}
	return rs
}
