package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ludo-technologies/pystage/domain"
	"github.com/ludo-technologies/pystage/internal/transform"
	"github.com/ludo-technologies/pystage/internal/version"
)

// ConvertServiceImpl implements the ConvertService interface
type ConvertServiceImpl struct {
	fileReader domain.FileReader
	writer     domain.SourceWriter
	progress   domain.ProgressManager
	cache      *ParseCache
	verifier   *Verifier
	logger     *log.Logger
}

// ConvertServiceOption configures a ConvertServiceImpl
type ConvertServiceOption func(*ConvertServiceImpl)

// WithFileReader replaces the file reader
func WithFileReader(reader domain.FileReader) ConvertServiceOption {
	return func(s *ConvertServiceImpl) { s.fileReader = reader }
}

// WithSourceWriter replaces the writer of converted modules
func WithSourceWriter(writer domain.SourceWriter) ConvertServiceOption {
	return func(s *ConvertServiceImpl) { s.writer = writer }
}

// WithProgress reports per-file progress
func WithProgress(progress domain.ProgressManager) ConvertServiceOption {
	return func(s *ConvertServiceImpl) { s.progress = progress }
}

// WithParseCache shares a parse cache between runs
func WithParseCache(cache *ParseCache) ConvertServiceOption {
	return func(s *ConvertServiceImpl) { s.cache = cache }
}

// WithLogger sends per-construct diagnostics to logger
func WithLogger(logger *log.Logger) ConvertServiceOption {
	return func(s *ConvertServiceImpl) { s.logger = logger }
}

// NewConvertService creates a new conversion service
func NewConvertService(opts ...ConvertServiceOption) *ConvertServiceImpl {
	s := &ConvertServiceImpl{
		fileReader: NewFileReader(),
		writer:     NewFileSourceWriter(),
		progress:   noopProgress{},
		cache:      NewParseCache(),
		verifier:   NewVerifier(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Convert stages every file in req.Paths. Files are converted concurrently
// and reported in input order. A file that fails is recorded in the
// response errors and does not stop the others.
func (s *ConvertServiceImpl) Convert(ctx context.Context, req domain.ConvertRequest) (*domain.ConvertResponse, error) {
	type fileOutcome struct {
		conversion *domain.FileConversion
		warning    string
		err        error
	}
	outcomes := make([]fileOutcome, len(req.Paths))

	s.progress.Initialize(len(req.Paths))
	s.progress.Start()

	tasks := make([]domain.ExecutableTask, len(req.Paths))
	for i, filePath := range req.Paths {
		i, filePath := i, filePath
		tasks[i] = NewSimpleTask(filePath, true, func(ctx context.Context) (interface{}, error) {
			defer s.progress.Increment()
			conversion, warning, err := s.convertFile(ctx, filePath, req)
			outcomes[i] = fileOutcome{conversion: conversion, warning: warning, err: err}
			return nil, nil
		})
	}

	executor := NewParallelExecutor()
	if req.MaxGoroutines > 0 {
		executor.SetMaxConcurrency(req.MaxGoroutines)
	}
	execErr := executor.Execute(ctx, tasks)
	s.progress.Complete(execErr == nil)
	if execErr != nil {
		return nil, fmt.Errorf("conversion cancelled: %w", execErr)
	}

	response := &domain.ConvertResponse{
		Files:       []domain.FileConversion{},
		GeneratedAt: time.Now().Format(time.RFC3339),
		Version:     version.Version,
	}
	for i, outcome := range outcomes {
		if outcome.warning != "" {
			response.Warnings = append(response.Warnings, fmt.Sprintf("[%s] %s", req.Paths[i], outcome.warning))
		}
		if outcome.err != nil {
			response.Errors = append(response.Errors, fmt.Sprintf("[%s] %v", req.Paths[i], outcome.err))
			response.Summary.FilesFailed++
			continue
		}
		response.Files = append(response.Files, *outcome.conversion)
		addToSummary(&response.Summary, outcome.conversion)
	}

	return response, nil
}

// convertFile reads, converts and writes one file
func (s *ConvertServiceImpl) convertFile(ctx context.Context, filePath string, req domain.ConvertRequest) (*domain.FileConversion, string, error) {
	content, err := s.fileReader.ReadFile(filePath)
	if err != nil {
		return nil, "", err
	}

	conversion, warning, err := s.convertSource(ctx, filePath, content, req)
	if err != nil {
		return nil, warning, err
	}

	if dest := s.writer.Destination(filePath, req); dest != "" {
		if err := s.writer.WriteSource(dest, conversion.Source); err != nil {
			return nil, warning, err
		}
		conversion.OutputPath = dest
	}
	return conversion, warning, nil
}

// ConvertSource stages a single module given as source text. name is used
// for messages and as the parse cache key.
func (s *ConvertServiceImpl) ConvertSource(ctx context.Context, name string, source []byte, req domain.ConvertRequest) (*domain.FileConversion, error) {
	conversion, _, err := s.convertSource(ctx, name, source, req)
	return conversion, err
}

func (s *ConvertServiceImpl) convertSource(ctx context.Context, name string, source []byte, req domain.ConvertRequest) (*domain.FileConversion, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	module, err := s.cache.Parse(ctx, name, source)
	if err != nil {
		return nil, "", domain.NewParseError(name, err)
	}

	opts := transform.DefaultOptions()
	if req.RuntimeModule != "" {
		opts.RuntimeModule = req.RuntimeModule
	}
	opts.LowerJumps = req.LowerJumps
	opts.Logger = s.logger

	result, err := transform.ConvertModule(module, opts)
	if err != nil {
		if errors.Is(err, transform.ErrPrecondition) {
			return nil, "", domain.NewPreconditionError(name, err)
		}
		return nil, "", domain.NewTransformError(name, err)
	}

	conversion := toFileConversion(name, result)

	var warning string
	if req.Verify {
		outcome, err := s.verifier.Verify(ctx, module, result.Module, opts.RuntimeModule)
		if err != nil {
			return nil, "", domain.NewVerificationError(name, err)
		}
		conversion.Verified = outcome.Verified
		if !outcome.Verified {
			warning = "verification skipped: " + outcome.Reason
		}
	}

	if s.logger != nil {
		s.logger.Printf("%s: %d conditional(s), %d while loop(s), %d for loop(s)",
			name, conversion.Conditionals, conversion.WhileLoops, conversion.ForLoops)
	}
	return conversion, warning, nil
}

// toFileConversion maps transform statistics to the report types
func toFileConversion(name string, result *transform.Result) *domain.FileConversion {
	conversion := &domain.FileConversion{
		FilePath:   name,
		Source:     result.Source,
		Constructs: []domain.ConstructReport{},
	}
	if result.Stats == nil {
		return conversion
	}

	conversion.Conditionals = result.Stats.Conditionals
	conversion.WhileLoops = result.Stats.WhileLoops
	conversion.ForLoops = result.Stats.ForLoops
	conversion.UndefinedGuards = result.Stats.UndefinedGuards
	for _, c := range result.Stats.Constructs {
		conversion.Constructs = append(conversion.Constructs, domain.ConstructReport{
			Kind:      domain.ConstructKind(c.Kind),
			Line:      c.Line,
			State:     c.State,
			Undefined: c.Undefined,
			Aliased:   c.Aliased,
			EarlyStop: c.EarlyStop,
		})
	}
	return conversion
}

func addToSummary(summary *domain.ConvertSummary, c *domain.FileConversion) {
	summary.FilesConverted++
	summary.Conditionals += c.Conditionals
	summary.WhileLoops += c.WhileLoops
	summary.ForLoops += c.ForLoops
	summary.UndefinedGuards += c.UndefinedGuards
	if c.Verified {
		summary.FilesVerified++
	}
}
