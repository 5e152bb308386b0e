package config

import (
	"github.com/xyproto/env/v2"
)

// Environment variables read by the loader
const (
	EnvConfig        = "PYSTAGE_CONFIG"
	EnvRuntimeModule = "PYSTAGE_RUNTIME_MODULE"
	EnvVerbose       = "PYSTAGE_VERBOSE"
)

// EnvConfigPath returns the config file named by PYSTAGE_CONFIG
func EnvConfigPath() string {
	return env.Str(EnvConfig)
}

// ApplyEnvOverrides applies PYSTAGE_RUNTIME_MODULE and PYSTAGE_VERBOSE
func ApplyEnvOverrides(cfg *Config) {
	if env.Has(EnvRuntimeModule) {
		cfg.Transform.RuntimeModule = env.Str(EnvRuntimeModule, cfg.Transform.RuntimeModule)
	}
	if env.Has(EnvVerbose) {
		cfg.Output.Verbose = env.Bool(EnvVerbose)
	}
}
