package domain

import (
	"context"
	"io"
)

// OutputFormat represents the supported report formats
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// ConstructKind names a rewritten statement kind
type ConstructKind string

const (
	ConstructIf    ConstructKind = "if"
	ConstructWhile ConstructKind = "while"
	ConstructFor   ConstructKind = "for"
)

// ConvertRequest represents a request to stage the control flow of Python files
type ConvertRequest struct {
	// Input files or directories to convert
	Paths []string

	// Report configuration
	OutputFormat OutputFormat
	OutputWriter io.Writer
	ReportPath   string // Path to save the report; empty writes to OutputWriter
	ShowDetails  bool

	// Converted sources go to OutputDir (mirroring the input layout) with
	// Suffix appended to the base name, or replace the input when InPlace
	// is set. With neither, converted sources are only reported.
	OutputDir string
	Suffix    string
	InPlace   bool

	// Conversion options
	RuntimeModule string
	LowerJumps    bool
	Verify        bool

	// Configuration
	ConfigPath string

	// Collection options
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	MaxGoroutines int
}

// ConstructReport describes one rewritten statement
type ConstructReport struct {
	Kind      ConstructKind `json:"kind" yaml:"kind"`
	Line      int           `json:"line" yaml:"line"`
	State     []string      `json:"state,omitempty" yaml:"state,omitempty"`
	Undefined []string      `json:"undefined,omitempty" yaml:"undefined,omitempty"`
	Aliased   []string      `json:"aliased,omitempty" yaml:"aliased,omitempty"`
	EarlyStop bool          `json:"early_stop,omitempty" yaml:"early_stop,omitempty"`
}

// FileConversion is the result for a single file
type FileConversion struct {
	FilePath   string            `json:"file_path" yaml:"file_path"`
	OutputPath string            `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	Source     string            `json:"-" yaml:"-"`
	Constructs []ConstructReport `json:"constructs" yaml:"constructs"`

	Conditionals    int  `json:"conditionals" yaml:"conditionals"`
	WhileLoops      int  `json:"while_loops" yaml:"while_loops"`
	ForLoops        int  `json:"for_loops" yaml:"for_loops"`
	UndefinedGuards int  `json:"undefined_guards" yaml:"undefined_guards"`
	Verified        bool `json:"verified,omitempty" yaml:"verified,omitempty"`
}

// ConvertSummary aggregates the conversion of all files
type ConvertSummary struct {
	FilesConverted  int `json:"files_converted" yaml:"files_converted"`
	FilesFailed     int `json:"files_failed" yaml:"files_failed"`
	Conditionals    int `json:"conditionals" yaml:"conditionals"`
	WhileLoops      int `json:"while_loops" yaml:"while_loops"`
	ForLoops        int `json:"for_loops" yaml:"for_loops"`
	UndefinedGuards int `json:"undefined_guards" yaml:"undefined_guards"`
	FilesVerified   int `json:"files_verified,omitempty" yaml:"files_verified,omitempty"`
}

// ConvertResponse represents the complete conversion result
type ConvertResponse struct {
	Files   []FileConversion `json:"files" yaml:"files"`
	Summary ConvertSummary   `json:"summary" yaml:"summary"`

	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`

	GeneratedAt string `json:"generated_at" yaml:"generated_at"`
	Version     string `json:"version" yaml:"version"`
}

// ConvertService defines the core business logic of the conversion
type ConvertService interface {
	// Convert stages every file in req.Paths
	Convert(ctx context.Context, req ConvertRequest) (*ConvertResponse, error)

	// ConvertSource stages a single module given as source text
	ConvertSource(ctx context.Context, name string, source []byte, req ConvertRequest) (*FileConversion, error)
}

// FileReader defines the interface for reading and collecting Python files
type FileReader interface {
	// CollectPythonFiles recursively finds all Python files in the given paths
	CollectPythonFiles(paths []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error)

	// ReadFile reads the content of a file
	ReadFile(path string) ([]byte, error)

	// IsValidPythonFile checks if a file is a valid Python file
	IsValidPythonFile(path string) bool

	// FileExists checks if a file exists and returns an error if not
	FileExists(path string) (bool, error)
}

// SourceWriter stores converted modules
type SourceWriter interface {
	// Destination returns where the converted form of path is written,
	// or "" when nothing is written
	Destination(path string, req ConvertRequest) string

	// WriteSource writes source to dest, creating parent directories
	WriteSource(dest string, source string) error
}

// OutputFormatter defines the interface for formatting conversion reports
type OutputFormatter interface {
	// Format formats the response according to the specified format
	Format(response *ConvertResponse, format OutputFormat) (string, error)

	// Write writes the formatted output to the writer
	Write(response *ConvertResponse, format OutputFormat, writer io.Writer) error
}

// ConfigurationLoader defines the interface for loading configuration
type ConfigurationLoader interface {
	// LoadConfig loads configuration from the specified path
	LoadConfig(path string) (*ConvertRequest, error)

	// LoadDefaultConfig loads the default configuration
	LoadDefaultConfig() *ConvertRequest

	// MergeConfig merges CLI flags with configuration file
	MergeConfig(base *ConvertRequest, override *ConvertRequest) *ConvertRequest
}

// ChangeSet is one batch of file system changes. Paths are sorted.
type ChangeSet struct {
	// Changed lists Python files created or written
	Changed []string
	// Removed lists Python files deleted or renamed away
	Removed []string
}

// Empty reports a batch without Python files
func (c ChangeSet) Empty() bool {
	return len(c.Changed) == 0 && len(c.Removed) == 0
}

// SourceWatcher reports batches of changed Python files
type SourceWatcher interface {
	// Run delivers batches to onChange until ctx ends or onChange fails
	Run(ctx context.Context, onChange func(context.Context, ChangeSet) error) error

	// Close stops watching
	Close() error
}
