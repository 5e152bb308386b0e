package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/ludo-technologies/pystage/domain"
)

// ConvertUseCase orchestrates the conversion workflow: validate the
// request, merge configuration, collect files, convert, write the report
type ConvertUseCase struct {
	service      domain.ConvertService
	fileReader   domain.FileReader
	formatter    domain.OutputFormatter
	configLoader domain.ConfigurationLoader
	reportWriter domain.ReportWriter
	logger       *log.Logger
}

// NewConvertUseCase creates a new conversion use case. configLoader and
// reportWriter may be nil.
func NewConvertUseCase(
	service domain.ConvertService,
	fileReader domain.FileReader,
	formatter domain.OutputFormatter,
	configLoader domain.ConfigurationLoader,
	reportWriter domain.ReportWriter,
) *ConvertUseCase {
	return &ConvertUseCase{
		service:      service,
		fileReader:   fileReader,
		formatter:    formatter,
		configLoader: configLoader,
		reportWriter: reportWriter,
	}
}

// SetLogger reports watch activity to logger
func (uc *ConvertUseCase) SetLogger(logger *log.Logger) {
	uc.logger = logger
}

// Execute performs the complete conversion workflow. The response is
// returned even when some files failed; the error then reports how many.
func (uc *ConvertUseCase) Execute(ctx context.Context, req domain.ConvertRequest) (*domain.ConvertResponse, error) {
	finalReq, err := uc.Prepare(req)
	if err != nil {
		return nil, err
	}

	files, err := ResolveFilePaths(uc.fileReader, finalReq)
	if err != nil {
		return nil, err
	}
	return uc.run(ctx, finalReq, files)
}

// Prepare validates req and merges it with the configuration
func (uc *ConvertUseCase) Prepare(req domain.ConvertRequest) (domain.ConvertRequest, error) {
	if len(req.Paths) == 0 {
		return req, domain.NewInvalidInputError("invalid request", fmt.Errorf("no input paths specified"))
	}

	finalReq, err := uc.loadAndMergeConfig(req)
	if err != nil {
		return req, domain.NewConfigError("failed to load configuration", err)
	}

	if err := validateRequest(finalReq); err != nil {
		return finalReq, domain.NewInvalidInputError("invalid request", err)
	}
	return finalReq, nil
}

// Watch converts once and then again for every batch of changed files
// until ctx ends. Conversion failures are reported and do not stop
// watching.
func (uc *ConvertUseCase) Watch(ctx context.Context, req domain.ConvertRequest, watcher domain.SourceWatcher) error {
	finalReq, err := uc.Prepare(req)
	if err != nil {
		return err
	}
	if finalReq.InPlace {
		return domain.NewInvalidInputError("watch mode cannot convert in place", nil)
	}

	files, err := ResolveFilePaths(uc.fileReader, finalReq)
	if err != nil {
		return err
	}
	if _, err := uc.run(ctx, finalReq, files); err != nil && !isFileFailure(err) {
		return err
	}

	err = watcher.Run(ctx, func(ctx context.Context, changes domain.ChangeSet) error {
		for _, removed := range changes.Removed {
			uc.logf("removed %s", removed)
		}

		current, err := uc.fileReader.CollectPythonFiles(finalReq.Paths, finalReq.Recursive, finalReq.IncludePatterns, finalReq.ExcludePatterns)
		if err != nil {
			uc.logf("collect files: %v", err)
			return nil
		}
		changed := SelectChangedFiles(current, changes.Changed)
		if finalReq.OutputDir != "" {
			kept := changed[:0]
			for _, file := range changed {
				if !isWithin(file, finalReq.OutputDir) {
					kept = append(kept, file)
				}
			}
			changed = kept
		}
		if len(changed) == 0 {
			return nil
		}

		uc.logf("converting %d changed file(s)", len(changed))
		if _, err := uc.run(ctx, finalReq, changed); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			uc.logf("%v", err)
		}
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// run converts files and writes the report
func (uc *ConvertUseCase) run(ctx context.Context, req domain.ConvertRequest, files []string) (*domain.ConvertResponse, error) {
	req.Paths = files

	response, err := uc.service.Convert(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := uc.writeReport(response, req); err != nil {
		return response, err
	}

	if n := response.Summary.FilesFailed; n > 0 {
		return response, &FileFailureError{Failed: n, Total: len(files)}
	}
	return response, nil
}

func (uc *ConvertUseCase) writeReport(response *domain.ConvertResponse, req domain.ConvertRequest) error {
	if d, ok := uc.formatter.(interface{ SetShowDetails(bool) }); ok {
		d.SetShowDetails(req.ShowDetails)
	}
	write := func(w io.Writer) error {
		return uc.formatter.Write(response, req.OutputFormat, w)
	}
	if uc.reportWriter != nil {
		return uc.reportWriter.Write(req.OutputWriter, req.ReportPath, req.OutputFormat, write)
	}
	if err := write(req.OutputWriter); err != nil {
		return domain.NewOutputError("failed to write output", err)
	}
	return nil
}

// FileFailureError reports a run in which some files could not be
// converted
type FileFailureError struct {
	Failed int
	Total  int
}

func (e *FileFailureError) Error() string {
	return fmt.Sprintf("%d of %d file(s) failed to convert", e.Failed, e.Total)
}

func isFileFailure(err error) bool {
	var failure *FileFailureError
	return errors.As(err, &failure)
}

func (uc *ConvertUseCase) logf(format string, args ...interface{}) {
	if uc.logger != nil {
		uc.logger.Printf(format, args...)
	}
}

// validateRequest validates the merged request
func validateRequest(req domain.ConvertRequest) error {
	if req.OutputWriter == nil && req.ReportPath == "" {
		return fmt.Errorf("output writer is required")
	}

	switch req.OutputFormat {
	case domain.OutputFormatText, domain.OutputFormatJSON, domain.OutputFormatYAML:
	default:
		return fmt.Errorf("unsupported output format: %s", req.OutputFormat)
	}

	if req.InPlace && req.OutputDir != "" {
		return fmt.Errorf("in-place conversion and an output directory are mutually exclusive")
	}
	if req.RuntimeModule == "" {
		return fmt.Errorf("runtime module cannot be empty")
	}
	if req.MaxGoroutines < 0 {
		return fmt.Errorf("jobs must be >= 0")
	}
	return nil
}

// loadAndMergeConfig loads configuration and lets explicit request values
// override it
func (uc *ConvertUseCase) loadAndMergeConfig(req domain.ConvertRequest) (domain.ConvertRequest, error) {
	if uc.configLoader == nil {
		return req, nil
	}

	configReq, err := uc.configLoader.LoadConfig(req.ConfigPath)
	if err != nil {
		if req.ConfigPath != "" {
			return req, fmt.Errorf("failed to load config from %s: %w", req.ConfigPath, err)
		}
		return req, err
	}
	if configReq == nil {
		configReq = uc.configLoader.LoadDefaultConfig()
	}

	return *uc.configLoader.MergeConfig(configReq, &req), nil
}

// ConvertUseCaseBuilder provides a builder pattern for creating ConvertUseCase
type ConvertUseCaseBuilder struct {
	service      domain.ConvertService
	fileReader   domain.FileReader
	formatter    domain.OutputFormatter
	configLoader domain.ConfigurationLoader
	reportWriter domain.ReportWriter
}

// NewConvertUseCaseBuilder creates a new builder
func NewConvertUseCaseBuilder() *ConvertUseCaseBuilder {
	return &ConvertUseCaseBuilder{}
}

// WithService sets the conversion service
func (b *ConvertUseCaseBuilder) WithService(service domain.ConvertService) *ConvertUseCaseBuilder {
	b.service = service
	return b
}

// WithFileReader sets the file reader
func (b *ConvertUseCaseBuilder) WithFileReader(fileReader domain.FileReader) *ConvertUseCaseBuilder {
	b.fileReader = fileReader
	return b
}

// WithFormatter sets the output formatter
func (b *ConvertUseCaseBuilder) WithFormatter(formatter domain.OutputFormatter) *ConvertUseCaseBuilder {
	b.formatter = formatter
	return b
}

// WithConfigLoader sets the configuration loader
func (b *ConvertUseCaseBuilder) WithConfigLoader(configLoader domain.ConfigurationLoader) *ConvertUseCaseBuilder {
	b.configLoader = configLoader
	return b
}

// WithReportWriter sets the report writer
func (b *ConvertUseCaseBuilder) WithReportWriter(reportWriter domain.ReportWriter) *ConvertUseCaseBuilder {
	b.reportWriter = reportWriter
	return b
}

// Build creates the ConvertUseCase with the configured dependencies
func (b *ConvertUseCaseBuilder) Build() (*ConvertUseCase, error) {
	if b.service == nil {
		return nil, fmt.Errorf("convert service is required")
	}
	if b.fileReader == nil {
		return nil, fmt.Errorf("file reader is required")
	}
	if b.formatter == nil {
		return nil, fmt.Errorf("output formatter is required")
	}

	return NewConvertUseCase(
		b.service,
		b.fileReader,
		b.formatter,
		b.configLoader,
		b.reportWriter,
	), nil
}
