package service

import (
	"fmt"
	"io"
	"strings"

	"github.com/ludo-technologies/pystage/domain"
)

// OutputFormatterImpl implements the OutputFormatter interface
type OutputFormatterImpl struct {
	showDetails bool
}

// NewOutputFormatter creates a new output formatter service
func NewOutputFormatter() *OutputFormatterImpl {
	return &OutputFormatterImpl{}
}

// SetShowDetails lists every rewritten construct in text reports
func (f *OutputFormatterImpl) SetShowDetails(show bool) {
	f.showDetails = show
}

// Format formats the conversion response according to the specified format
func (f *OutputFormatterImpl) Format(response *domain.ConvertResponse, format domain.OutputFormat) (string, error) {
	switch format {
	case domain.OutputFormatText, "":
		return f.formatText(response), nil
	case domain.OutputFormatJSON:
		return EncodeJSON(response)
	case domain.OutputFormatYAML:
		return EncodeYAML(response)
	default:
		return "", domain.NewUnsupportedFormatError(string(format))
	}
}

// Write writes the formatted output to the writer
func (f *OutputFormatterImpl) Write(response *domain.ConvertResponse, format domain.OutputFormat, writer io.Writer) error {
	output, err := f.Format(response, format)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(output, "\n") {
		output += "\n"
	}
	if _, err := io.WriteString(writer, output); err != nil {
		return domain.NewOutputError("failed to write output", err)
	}
	return nil
}

func (f *OutputFormatterImpl) formatText(response *domain.ConvertResponse) string {
	var builder strings.Builder
	utils := NewFormatUtils()

	builder.WriteString(utils.FormatMainHeader("Control Flow Staging Report"))

	builder.WriteString(utils.FormatSectionHeader("Summary"))
	s := response.Summary
	builder.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Files converted", s.FilesConverted))
	if s.FilesFailed > 0 {
		builder.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Files failed", s.FilesFailed))
	}
	builder.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Conditionals", s.Conditionals))
	builder.WriteString(utils.FormatLabelWithIndent(SectionPadding, "While loops", s.WhileLoops))
	builder.WriteString(utils.FormatLabelWithIndent(SectionPadding, "For loops", s.ForLoops))
	builder.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Undefined guards", s.UndefinedGuards))
	if s.FilesVerified > 0 {
		builder.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Files verified", s.FilesVerified))
	}
	builder.WriteString("\n")

	if len(response.Files) > 0 {
		builder.WriteString(utils.FormatSectionHeader("Files"))
		for _, file := range response.Files {
			builder.WriteString(f.formatFile(file))
		}
		builder.WriteString("\n")
	}

	builder.WriteString(utils.FormatListSection("Warnings", response.Warnings))
	builder.WriteString(utils.FormatListSection("Errors", response.Errors))
	return builder.String()
}

func (f *OutputFormatterImpl) formatFile(file domain.FileConversion) string {
	var builder strings.Builder

	line := fmt.Sprintf("%s%s: %d if, %d while, %d for",
		strings.Repeat(" ", SectionPadding), file.FilePath, file.Conditionals, file.WhileLoops, file.ForLoops)
	if file.OutputPath != "" && file.OutputPath != file.FilePath {
		line += " -> " + file.OutputPath
	}
	if file.Verified {
		line += " (verified)"
	}
	builder.WriteString(line + "\n")

	if !f.showDetails {
		return builder.String()
	}
	for _, c := range file.Constructs {
		builder.WriteString(fmt.Sprintf("%s%s at line %d", strings.Repeat(" ", ItemPadding), c.Kind, c.Line))
		if len(c.State) > 0 {
			builder.WriteString(" state=" + strings.Join(c.State, ","))
		}
		if len(c.Undefined) > 0 {
			builder.WriteString(" undefined=" + strings.Join(c.Undefined, ","))
		}
		if len(c.Aliased) > 0 {
			builder.WriteString(" aliased=" + strings.Join(c.Aliased, ","))
		}
		if c.EarlyStop {
			builder.WriteString(" early-stop")
		}
		builder.WriteString("\n")
	}
	return builder.String()
}
