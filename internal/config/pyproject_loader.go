package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// pyprojectSections decodes only the [tool.pystage] table
type pyprojectSections struct {
	Tool struct {
		Pystage *Config `toml:"pystage"`
	} `toml:"tool"`
}

// LoadPyprojectConfig loads the [tool.pystage] section of a pyproject.toml
// file over the defaults. A file without the section yields the defaults.
func LoadPyprojectConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	sections := pyprojectSections{}
	sections.Tool.Pystage = DefaultConfig()
	if err := toml.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return sections.Tool.Pystage, nil
}
