package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvConfig, EnvRuntimeModule, EnvVerbose} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "ag__", cfg.Transform.RuntimeModule)
	assert.True(t, cfg.Transform.LowerJumps)
	assert.False(t, cfg.Transform.Verify)
	assert.Equal(t, "_staged", cfg.Output.Suffix)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultConfigTemplate(t *testing.T) {
	rendered, err := GenerateDefaultConfigTOML()
	require.NoError(t, err)
	assert.Contains(t, rendered, `runtime_module = "ag__"`)

	loaded, err := LoadDefaultConfigFromTOML()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "empty runtime module", mutate: func(c *Config) { c.Transform.RuntimeModule = "" }, wantErr: "runtime_module"},
		{name: "dotted runtime module", mutate: func(c *Config) { c.Transform.RuntimeModule = "tf.autograph" }},
		{name: "bad runtime module", mutate: func(c *Config) { c.Transform.RuntimeModule = "1ag" }, wantErr: "dotted Python name"},
		{name: "bad format", mutate: func(c *Config) { c.Output.Format = "html" }, wantErr: "output.format"},
		{name: "in place with directory", mutate: func(c *Config) {
			c.Output.InPlace = true
			c.Output.Directory = "out"
		}, wantErr: "mutually exclusive"},
		{name: "no suffix next to input", mutate: func(c *Config) { c.Output.Suffix = "" }, wantErr: "suffix"},
		{name: "no suffix with directory", mutate: func(c *Config) {
			c.Output.Suffix = ""
			c.Output.Directory = "out"
		}},
		{name: "no include patterns", mutate: func(c *Config) { c.Input.IncludePatterns = nil }, wantErr: "include_patterns"},
		{name: "negative goroutines", mutate: func(c *Config) { c.Performance.MaxGoroutines = -1 }, wantErr: "max_goroutines"},
		{name: "bad version constraint", mutate: func(c *Config) { c.RequiredVersion = "not a constraint" }, wantErr: "required_version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_Discovery(t *testing.T) {
	clearEnv(t)

	t.Run("defaults without files", func(t *testing.T) {
		dir := t.TempDir()
		cfg, err := LoadConfig("", dir)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("pystage toml in parent", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, ".pystage.toml"), `
[transform]
runtime_module = "rt"
verify = true

[output]
format = "json"
`)
		sub := filepath.Join(root, "pkg", "sub")
		require.NoError(t, os.MkdirAll(sub, 0o755))

		cfg, err := LoadConfig("", sub)
		require.NoError(t, err)
		assert.Equal(t, "rt", cfg.Transform.RuntimeModule)
		assert.True(t, cfg.Transform.Verify)
		assert.True(t, cfg.Transform.LowerJumps, "unset keys keep defaults")
		assert.Equal(t, "json", cfg.Output.Format)
	})

	t.Run("pystage toml wins over pyproject", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, ".pystage.toml"), "[transform]\nruntime_module = \"a\"\n")
		writeFile(t, filepath.Join(root, "pyproject.toml"), "[tool.pystage.transform]\nruntime_module = \"b\"\n")

		cfg, err := LoadConfig("", root)
		require.NoError(t, err)
		assert.Equal(t, "a", cfg.Transform.RuntimeModule)
	})

	t.Run("pyproject section", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "pyproject.toml"), `
[project]
name = "demo"

[tool.pystage.transform]
lower_jumps = false

[tool.pystage.output]
suffix = "_ag"
`)
		cfg, err := LoadConfig("", root)
		require.NoError(t, err)
		assert.False(t, cfg.Transform.LowerJumps)
		assert.Equal(t, "_ag", cfg.Output.Suffix)
		assert.Equal(t, "ag__", cfg.Transform.RuntimeModule)
	})

	t.Run("pyproject without section", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "pyproject.toml"), "[project]\nname = \"demo\"\n")

		cfg, err := LoadConfig("", root)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	clearEnv(t)

	t.Run("yaml through viper", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pystage.yaml")
		writeFile(t, path, "transform:\n  runtime_module: staged\ninput:\n  recursive: false\n")

		cfg, err := LoadConfig(path, "")
		require.NoError(t, err)
		assert.Equal(t, "staged", cfg.Transform.RuntimeModule)
		assert.False(t, cfg.Input.Recursive)
		assert.Equal(t, DefaultSuffix, cfg.Output.Suffix)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), "")
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pystage.json")
		writeFile(t, path, `{"output": {"format": "xml"}}`)
		_, err := LoadConfig(path, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("environment names the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pystage.yaml")
		writeFile(t, path, "output:\n  format: yaml\n")
		t.Setenv(EnvConfig, path)

		cfg, err := LoadConfig("", t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, "yaml", cfg.Output.Format)
	})
}

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvRuntimeModule, "rt")
	t.Setenv(EnvVerbose, "true")

	cfg := DefaultConfig()
	ApplyEnvOverrides(cfg)
	assert.Equal(t, "rt", cfg.Transform.RuntimeModule)
	assert.True(t, cfg.Output.Verbose)
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := DefaultConfig()
	cfg.Transform.RuntimeModule = "saved"
	require.NoError(t, SaveConfig(cfg, path))

	clearEnv(t)
	loaded, err := LoadConfig(path, "")
	require.NoError(t, err)
	assert.Equal(t, "saved", loaded.Transform.RuntimeModule)
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		constraint string
		current    string
		ok         bool
	}{
		{constraint: ">= 0.2", current: "v0.3.1", ok: true},
		{constraint: ">= 0.2, < 1.0", current: "1.2.0", ok: false},
		{constraint: "~1.2", current: "v1.2.9", ok: true},
		{constraint: "^2", current: "dev", ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.constraint+"@"+tt.current, func(t *testing.T) {
			err := checkVersion(tt.constraint, tt.current)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	assert.Error(t, checkVersion(">= 1", "not-a-version"))
}

func TestFlagTracker(t *testing.T) {
	fs := pflag.NewFlagSet("convert", pflag.ContinueOnError)
	fs.String("runtime-module", "ag__", "")
	fs.Bool("verify", false, "")
	fs.StringSlice("include", nil, "")
	require.NoError(t, fs.Parse([]string{"--verify", "--include", "src/**"}))

	ft := NewFlagTrackerFromFlagSet(fs)
	assert.True(t, ft.WasSet("verify"))
	assert.False(t, ft.WasSet("runtime-module"))

	assert.Equal(t, "cfg", ft.MergeString("cfg", "flag", "runtime-module"))
	assert.True(t, ft.MergeBool(false, true, "verify"))
	assert.Equal(t, []string{"src/**"}, ft.MergeStringSlice([]string{"**/*.py"}, []string{"src/**"}, "include"))
	assert.Equal(t, 4, ft.MergeInt(4, 8, "jobs"))

	var nilTracker *FlagTracker
	assert.False(t, nilTracker.WasSet("verify"))

	ft.Set("jobs")
	assert.Equal(t, 8, ft.MergeInt(4, 8, "jobs"))
}
