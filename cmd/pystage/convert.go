package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"

	"github.com/ludo-technologies/pystage/app"
	"github.com/ludo-technologies/pystage/domain"
	"github.com/ludo-technologies/pystage/internal/config"
	"github.com/ludo-technologies/pystage/service"
)

// ConvertCommand represents the convert command
type ConvertCommand struct {
	configFile string

	// Destinations
	outputDir string
	suffix    string
	inPlace   bool

	// Report
	format     string
	reportPath string
	details    bool

	// Rewrite
	runtimeModule string
	noLowerJumps  bool
	verify        bool

	// Collection
	includePatterns []string
	excludePatterns []string
	noRecursive     bool
	jobs            int

	watch   bool
	verbose bool
}

// NewConvertCommand creates a new convert command with default values
func NewConvertCommand() *ConvertCommand {
	return &ConvertCommand{
		suffix:          config.DefaultSuffix,
		format:          config.DefaultOutputFormat,
		runtimeModule:   config.DefaultRuntimeModule,
		includePatterns: []string{"**/*.py"},
		excludePatterns: []string{"**/*" + config.DefaultSuffix + ".py"},
	}
}

// CreateCobraCommand creates the cobra command for conversion
func (c *ConvertCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [paths...]",
		Short: "Rewrite if/while/for statements into runtime primitive calls",
		Long: `Convert the control flow of Python files.

Every if, while and for statement becomes a call of if_stmt, while_stmt or
for_stmt from the runtime module, with the branches and loop bodies moved into
nested functions. break, continue and return inside converted statements are
lowered to flag variables first unless --no-lower-jumps is given.

By default converted files are written next to their input with the _staged
suffix. Use --output-dir to mirror the input layout elsewhere, or --in-place
to overwrite the input.

Exit codes:
  0  every file was converted
  1  some files could not be converted (see report)
  2  the command failed (invalid input, configuration, output)

Examples:
  pystage convert src/
  pystage convert --output-dir build/staged src/
  pystage convert --runtime-module tf.autograph --format json model.py
  pystage convert --verify --details pkg/
  pystage convert --watch src/`,
		Args: cobra.MinimumNArgs(1),
		RunE: c.runConvert,
	}

	f := cmd.Flags()
	f.StringVarP(&c.configFile, "config", "c", "", "Configuration file path")

	f.StringVarP(&c.outputDir, service.FlagOutputDir, "o", "", "Directory receiving converted files")
	f.StringVar(&c.suffix, service.FlagSuffix, c.suffix, "Suffix appended to converted file names")
	f.BoolVar(&c.inPlace, service.FlagInPlace, false, "Overwrite input files")

	f.StringVarP(&c.format, service.FlagFormat, "f", c.format, "Report format (text|json|yaml)")
	f.StringVar(&c.reportPath, "report", "", "Write the report to a file instead of stdout")
	f.BoolVar(&c.details, service.FlagDetails, false, "Show state and undefined symbols of every construct")

	f.StringVar(&c.runtimeModule, service.FlagRuntimeModule, c.runtimeModule, "Module providing if_stmt, while_stmt, for_stmt and Undefined")
	f.BoolVar(&c.noLowerJumps, service.FlagNoLowerJumps, false, "Do not lower break, continue and return")
	f.BoolVar(&c.verify, service.FlagVerify, false, "Run original and converted modules and compare results")

	f.StringSliceVar(&c.includePatterns, service.FlagInclude, c.includePatterns, "Include file patterns")
	f.StringSliceVar(&c.excludePatterns, service.FlagExclude, c.excludePatterns, "Exclude file patterns")
	f.BoolVar(&c.noRecursive, service.FlagNoRecursive, false, "Do not descend into subdirectories")
	f.IntVarP(&c.jobs, service.FlagJobs, "j", 0, "Files converted at once (0 = CPU count)")

	f.BoolVarP(&c.watch, "watch", "w", false, "Convert again whenever an input file changes")
	return cmd
}

func (c *ConvertCommand) runConvert(cmd *cobra.Command, args []string) error {
	if v, err := cmd.Flags().GetBool("verbose"); err == nil && v {
		c.verbose = true
	}
	if env.Bool(config.EnvVerbose) {
		c.verbose = true
	}

	var logger *log.Logger
	if c.verbose {
		logger = log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
	}

	request := c.buildRequest(cmd.OutOrStdout(), args)
	useCase, err := c.buildUseCase(cmd, args, logger)
	if err != nil {
		return err
	}

	if c.watch {
		return c.runWatch(cmd, useCase, request)
	}

	_, err = useCase.Execute(cmd.Context(), request)
	return c.report(cmd, err)
}

// buildRequest maps flags onto a request. Values of unset flags are
// replaced by the configuration during merge.
func (c *ConvertCommand) buildRequest(stdout io.Writer, paths []string) domain.ConvertRequest {
	req := domain.ConvertRequest{
		Paths:           paths,
		OutputFormat:    domain.OutputFormat(c.format),
		ReportPath:      c.reportPath,
		ShowDetails:     c.details,
		OutputDir:       c.outputDir,
		Suffix:          c.suffix,
		InPlace:         c.inPlace,
		RuntimeModule:   c.runtimeModule,
		LowerJumps:      !c.noLowerJumps,
		Verify:          c.verify,
		ConfigPath:      c.configFile,
		Recursive:       !c.noRecursive,
		IncludePatterns: c.includePatterns,
		ExcludePatterns: c.excludePatterns,
		MaxGoroutines:   c.jobs,
	}
	if c.reportPath == "" {
		req.OutputWriter = stdout
	}
	return req
}

func (c *ConvertCommand) buildUseCase(cmd *cobra.Command, args []string, logger *log.Logger) (*app.ConvertUseCase, error) {
	opts := []service.ConvertServiceOption{service.WithLogger(logger)}
	if !c.watch && service.IsInteractiveEnvironment() {
		opts = append(opts, service.WithProgress(service.NewProgressManager()))
	}

	useCase, err := app.NewConvertUseCaseBuilder().
		WithService(service.NewConvertService(opts...)).
		WithFileReader(service.NewFileReader()).
		WithFormatter(service.NewOutputFormatter()).
		WithConfigLoader(service.NewConfigurationLoader(configStartDir(args), config.NewFlagTrackerFromFlagSet(cmd.Flags()))).
		WithReportWriter(service.NewFileOutputWriter(cmd.ErrOrStderr())).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create convert use case: %w", err)
	}
	return useCase, nil
}

func (c *ConvertCommand) runWatch(cmd *cobra.Command, useCase *app.ConvertUseCase, request domain.ConvertRequest) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prepared, err := useCase.Prepare(request)
	if err != nil {
		return c.report(cmd, err)
	}

	watcher, err := service.NewSourceWatcher(prepared.Paths, prepared.Recursive)
	if err != nil {
		return c.report(cmd, domain.NewInvalidInputError("failed to watch input paths", err))
	}
	defer watcher.Close()

	logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
	watcher.SetLogger(logger)
	useCase.SetLogger(logger)

	logger.Printf("watching %d path(s), press Ctrl+C to stop", len(prepared.Paths))
	return c.report(cmd, useCase.Watch(ctx, request, watcher))
}

// report prints err with its category and maps it to an exit code
func (c *ConvertCommand) report(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}

	var failure *app.FileFailureError
	if errors.As(err, &failure) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return &exitCodeError{code: exitFileFailure, err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &exitCodeError{code: exitError, err: err}
	}

	categorizer := service.NewErrorCategorizer()
	categorized := categorizer.Categorize(err)
	fmt.Fprintf(cmd.ErrOrStderr(), "Error [%s]: %v\n", categorized.Category, err)
	if c.verbose {
		for _, suggestion := range categorizer.GetRecoverySuggestions(categorized.Category) {
			fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", suggestion)
		}
	}
	return &exitCodeError{code: exitError, err: err}
}

// configStartDir is where configuration discovery starts: the first path,
// or its directory when it names a file
func configStartDir(paths []string) string {
	if len(paths) == 0 {
		return "."
	}
	info, err := os.Stat(paths[0])
	if err == nil && !info.IsDir() {
		return filepath.Dir(paths[0])
	}
	return paths[0]
}

// NewConvertCmd creates and returns the convert cobra command
func NewConvertCmd() *cobra.Command {
	return NewConvertCommand().CreateCobraCommand()
}
