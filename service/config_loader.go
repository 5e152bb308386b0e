package service

import (
	"github.com/ludo-technologies/pystage/domain"
	"github.com/ludo-technologies/pystage/internal/config"
)

// Flag names that map onto configuration keys
const (
	FlagFormat        = "format"
	FlagDetails       = "details"
	FlagOutputDir     = "output-dir"
	FlagSuffix        = "suffix"
	FlagInPlace       = "in-place"
	FlagRuntimeModule = "runtime-module"
	FlagNoLowerJumps  = "no-lower-jumps"
	FlagVerify        = "verify"
	FlagInclude       = "include"
	FlagExclude       = "exclude"
	FlagNoRecursive   = "no-recursive"
	FlagJobs          = "jobs"
)

// ConfigurationLoaderImpl implements the ConfigurationLoader interface. Only
// flags recorded by the tracker override values from configuration files.
type ConfigurationLoaderImpl struct {
	startDir string
	tracker  *config.FlagTracker
}

// NewConfigurationLoader creates a loader that discovers configuration
// from startDir upwards. tracker may be nil when no flags were parsed.
func NewConfigurationLoader(startDir string, tracker *config.FlagTracker) *ConfigurationLoaderImpl {
	return &ConfigurationLoaderImpl{startDir: startDir, tracker: tracker}
}

// LoadConfig loads configuration from path, or by discovery when path is
// empty
func (c *ConfigurationLoaderImpl) LoadConfig(path string) (*domain.ConvertRequest, error) {
	cfg, err := config.LoadConfig(path, c.startDir)
	if err != nil {
		return nil, domain.NewConfigError("failed to load configuration", err)
	}
	req := ConvertRequestFromConfig(cfg)
	req.ConfigPath = path
	return req, nil
}

// LoadDefaultConfig returns the built-in defaults
func (c *ConfigurationLoaderImpl) LoadDefaultConfig() *domain.ConvertRequest {
	return ConvertRequestFromConfig(config.DefaultConfig())
}

// MergeConfig merges CLI flags with configuration file values. Paths and
// writers always come from override.
func (c *ConfigurationLoaderImpl) MergeConfig(base *domain.ConvertRequest, override *domain.ConvertRequest) *domain.ConvertRequest {
	merged := *base
	ft := c.tracker

	if len(override.Paths) > 0 {
		merged.Paths = override.Paths
	}
	if override.OutputWriter != nil {
		merged.OutputWriter = override.OutputWriter
	}
	if override.ReportPath != "" {
		merged.ReportPath = override.ReportPath
	}
	if override.ConfigPath != "" {
		merged.ConfigPath = override.ConfigPath
	}

	merged.OutputFormat = domain.OutputFormat(ft.MergeString(string(base.OutputFormat), string(override.OutputFormat), FlagFormat))
	merged.ShowDetails = ft.MergeBool(base.ShowDetails, override.ShowDetails, FlagDetails)
	merged.OutputDir = ft.MergeString(base.OutputDir, override.OutputDir, FlagOutputDir)
	merged.Suffix = ft.MergeString(base.Suffix, override.Suffix, FlagSuffix)
	merged.InPlace = ft.MergeBool(base.InPlace, override.InPlace, FlagInPlace)
	merged.RuntimeModule = ft.MergeString(base.RuntimeModule, override.RuntimeModule, FlagRuntimeModule)
	merged.LowerJumps = ft.MergeBool(base.LowerJumps, override.LowerJumps, FlagNoLowerJumps)
	merged.Verify = ft.MergeBool(base.Verify, override.Verify, FlagVerify)
	merged.IncludePatterns = ft.MergeStringSlice(base.IncludePatterns, override.IncludePatterns, FlagInclude)
	merged.ExcludePatterns = ft.MergeStringSlice(base.ExcludePatterns, override.ExcludePatterns, FlagExclude)
	merged.Recursive = ft.MergeBool(base.Recursive, override.Recursive, FlagNoRecursive)
	merged.MaxGoroutines = ft.MergeInt(base.MaxGoroutines, override.MaxGoroutines, FlagJobs)

	// An explicit output directory or in-place flag replaces the other
	// destination from the file
	if ft.WasSet(FlagOutputDir) && !ft.WasSet(FlagInPlace) {
		merged.InPlace = false
	}
	if ft.WasSet(FlagInPlace) && merged.InPlace && !ft.WasSet(FlagOutputDir) {
		merged.OutputDir = ""
	}

	return &merged
}

// ConvertRequestFromConfig maps configuration onto a request
func ConvertRequestFromConfig(cfg *config.Config) *domain.ConvertRequest {
	return &domain.ConvertRequest{
		OutputFormat:    domain.OutputFormat(cfg.Output.Format),
		ShowDetails:     cfg.Output.ShowDetails,
		OutputDir:       cfg.Output.Directory,
		Suffix:          cfg.Output.Suffix,
		InPlace:         cfg.Output.InPlace,
		RuntimeModule:   cfg.Transform.RuntimeModule,
		LowerJumps:      cfg.Transform.LowerJumps,
		Verify:          cfg.Transform.Verify,
		Recursive:       cfg.Input.Recursive,
		IncludePatterns: cfg.Input.IncludePatterns,
		ExcludePatterns: cfg.Input.ExcludePatterns,
		MaxGoroutines:   cfg.Performance.MaxGoroutines,
	}
}
