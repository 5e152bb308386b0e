package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"github.com/pelletier/go-toml/v2"
)

// defaultConfigTmpl contains the embedded default configuration template
//
//go:embed default_config.toml.tmpl
var defaultConfigTmpl string

// DefaultConfigValues holds all values used to render the default config template
type DefaultConfigValues struct {
	RuntimeModule string
	LowerJumps    bool
	Verify        bool

	IncludePatterns []string
	ExcludePatterns []string
	Recursive       bool

	Suffix string
	Format string

	MaxGoroutines int
}

func newDefaultConfigValues() DefaultConfigValues {
	d := DefaultConfig()
	return DefaultConfigValues{
		RuntimeModule:   d.Transform.RuntimeModule,
		LowerJumps:      d.Transform.LowerJumps,
		Verify:          d.Transform.Verify,
		IncludePatterns: d.Input.IncludePatterns,
		ExcludePatterns: d.Input.ExcludePatterns,
		Recursive:       d.Input.Recursive,
		Suffix:          d.Output.Suffix,
		Format:          d.Output.Format,
		MaxGoroutines:   d.Performance.MaxGoroutines,
	}
}

// GenerateDefaultConfigTOML renders the commented default .pystage.toml
func GenerateDefaultConfigTOML() (string, error) {
	tmpl, err := template.New("default_config").Parse(defaultConfigTmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse default config template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, newDefaultConfigValues()); err != nil {
		return "", fmt.Errorf("failed to render default config template: %w", err)
	}
	return buf.String(), nil
}

// LoadDefaultConfigFromTOML parses the rendered template back into a Config
func LoadDefaultConfigFromTOML() (*Config, error) {
	configTOML, err := GenerateDefaultConfigTOML()
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := toml.Unmarshal([]byte(configTOML), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
