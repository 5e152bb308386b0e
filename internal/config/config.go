package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Default conversion settings
const (
	// DefaultRuntimeModule is the name generated code calls the primitives through
	DefaultRuntimeModule = "ag__"

	// DefaultSuffix is appended to the base name of converted files
	DefaultSuffix = "_staged"

	// DefaultOutputFormat is the report format
	DefaultOutputFormat = "text"
)

// Config represents the main configuration structure
type Config struct {
	// RequiredVersion is a semver constraint the running binary must satisfy
	RequiredVersion string `mapstructure:"required_version" yaml:"required_version" toml:"required_version"`

	// Transform holds the rewrite options
	Transform TransformConfig `mapstructure:"transform" yaml:"transform" toml:"transform"`

	// Input holds file collection options
	Input InputConfig `mapstructure:"input" yaml:"input" toml:"input"`

	// Output holds destinations and report format
	Output OutputConfig `mapstructure:"output" yaml:"output" toml:"output"`

	Performance PerformanceConfig `mapstructure:"performance" yaml:"performance" toml:"performance"`
}

// TransformConfig holds configuration of the control flow rewrite
type TransformConfig struct {
	// RuntimeModule prefixes if_stmt, while_stmt, for_stmt and Undefined
	RuntimeModule string `mapstructure:"runtime_module" yaml:"runtime_module" toml:"runtime_module"`

	// LowerJumps rewrites break, continue and return before conversion
	LowerJumps bool `mapstructure:"lower_jumps" yaml:"lower_jumps" toml:"lower_jumps"`

	// Verify runs original and converted modules and compares the results
	Verify bool `mapstructure:"verify" yaml:"verify" toml:"verify"`
}

// InputConfig holds configuration for collecting Python files
type InputConfig struct {
	IncludePatterns []string `mapstructure:"include_patterns" yaml:"include_patterns" toml:"include_patterns"`
	ExcludePatterns []string `mapstructure:"exclude_patterns" yaml:"exclude_patterns" toml:"exclude_patterns"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" toml:"recursive"`
}

// OutputConfig holds configuration for converted sources and reports
type OutputConfig struct {
	// Directory receives converted files; empty writes next to the input
	Directory string `mapstructure:"directory" yaml:"directory" toml:"directory"`

	// Suffix is appended to converted file names unless InPlace is set
	Suffix string `mapstructure:"suffix" yaml:"suffix" toml:"suffix"`

	// InPlace overwrites the input files
	InPlace bool `mapstructure:"in_place" yaml:"in_place" toml:"in_place"`

	// Format specifies the report format: text, json, yaml
	Format string `mapstructure:"format" yaml:"format" toml:"format"`

	ShowDetails bool `mapstructure:"show_details" yaml:"show_details" toml:"show_details"`

	Verbose bool `mapstructure:"verbose" yaml:"verbose" toml:"verbose"`
}

// PerformanceConfig holds concurrency limits
type PerformanceConfig struct {
	// MaxGoroutines bounds files converted at once; 0 uses the CPU count
	MaxGoroutines int `mapstructure:"max_goroutines" yaml:"max_goroutines" toml:"max_goroutines"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Transform: TransformConfig{
			RuntimeModule: DefaultRuntimeModule,
			LowerJumps:    true,
		},
		Input: InputConfig{
			IncludePatterns: []string{"**/*.py"},
			ExcludePatterns: []string{"**/*" + DefaultSuffix + ".py"},
			Recursive:       true,
		},
		Output: OutputConfig{
			Suffix: DefaultSuffix,
			Format: DefaultOutputFormat,
		},
	}
}

// LoadConfig loads configuration with the following priority:
//  1. configPath, or the PYSTAGE_CONFIG environment variable
//  2. .pystage.toml found walking up from startDir
//  3. pyproject.toml [tool.pystage] found walking up from startDir
//  4. defaults
//
// Environment overrides are applied last.
func LoadConfig(configPath, startDir string) (*Config, error) {
	if configPath == "" {
		configPath = EnvConfigPath()
	}

	var (
		cfg *Config
		err error
	)
	switch {
	case configPath != "" && filepath.Base(configPath) == PyprojectFileName:
		cfg, err = LoadPyprojectConfig(configPath)
	case configPath != "":
		cfg, err = loadViperConfig(configPath)
	default:
		cfg, err = NewTomlConfigLoader().LoadConfig(startDir)
	}
	if err != nil {
		return nil, err
	}

	ApplyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadViperConfig reads an explicit yaml, json or toml file
func loadViperConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if c.Transform.RuntimeModule == "" {
		return fmt.Errorf("transform.runtime_module cannot be empty")
	}
	if !isDottedIdentifier(c.Transform.RuntimeModule) {
		return fmt.Errorf("transform.runtime_module '%s' is not a dotted Python name", c.Transform.RuntimeModule)
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
		"yaml": true,
	}
	if !validFormats[c.Output.Format] {
		return fmt.Errorf("invalid output.format '%s', must be one of: text, json, yaml", c.Output.Format)
	}

	if c.Output.InPlace && c.Output.Directory != "" {
		return fmt.Errorf("output.in_place and output.directory are mutually exclusive")
	}
	if !c.Output.InPlace && c.Output.Directory == "" && c.Output.Suffix == "" {
		return fmt.Errorf("output.suffix cannot be empty when writing next to the input")
	}

	if len(c.Input.IncludePatterns) == 0 {
		return fmt.Errorf("input.include_patterns cannot be empty")
	}

	if c.Performance.MaxGoroutines < 0 {
		return fmt.Errorf("performance.max_goroutines must be >= 0, got %d", c.Performance.MaxGoroutines)
	}

	if c.RequiredVersion != "" {
		if err := CheckRequiredVersion(c.RequiredVersion); err != nil {
			return err
		}
	}
	return nil
}

func isDottedIdentifier(name string) bool {
	for _, part := range strings.Split(name, ".") {
		if part == "" {
			return false
		}
		for i, r := range part {
			switch {
			case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			case i > 0 && r >= '0' && r <= '9':
			default:
				return false
			}
		}
	}
	return true
}

// SaveConfig writes configuration through viper; the format follows the
// file extension
func SaveConfig(cfg *Config, path string) error {
	v := viper.New()
	v.SetConfigFile(path)

	v.Set("required_version", cfg.RequiredVersion)
	v.Set("transform", cfg.Transform)
	v.Set("input", cfg.Input)
	v.Set("output", cfg.Output)
	v.Set("performance", cfg.Performance)

	return v.WriteConfig()
}
