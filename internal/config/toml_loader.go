package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// File names searched during discovery
const (
	PystageTomlFileName = ".pystage.toml"
	PyprojectFileName   = "pyproject.toml"
)

// TomlConfigLoader handles TOML configuration discovery
type TomlConfigLoader struct{}

// NewTomlConfigLoader creates a new TOML configuration loader
func NewTomlConfigLoader() *TomlConfigLoader {
	return &TomlConfigLoader{}
}

// LoadConfig loads configuration from TOML files with ruff-like priority:
// 1. .pystage.toml (dedicated config file)
// 2. pyproject.toml (with [tool.pystage] section)
// 3. defaults
func (l *TomlConfigLoader) LoadConfig(startDir string) (*Config, error) {
	if path, ok := findUpward(startDir, PystageTomlFileName); ok {
		return LoadPystageToml(path)
	}
	if path, ok := findUpward(startDir, PyprojectFileName); ok {
		cfg, err := LoadPyprojectConfig(path)
		if err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return DefaultConfig(), nil
}

// LoadPystageToml reads a .pystage.toml file over the defaults
func LoadPystageToml(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// findUpward walks from startDir to the filesystem root looking for name
func findUpward(startDir, name string) (string, bool) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
