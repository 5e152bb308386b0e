package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ludo-technologies/pystage/domain"
)

// ErrorCategorizerImpl implements the ErrorCategorizer interface
type ErrorCategorizerImpl struct {
	patterns []categoryPatterns
}

type categoryPatterns struct {
	category domain.ErrorCategory
	patterns []string
}

// NewErrorCategorizer creates a new error categorizer
func NewErrorCategorizer() domain.ErrorCategorizer {
	return &ErrorCategorizerImpl{
		patterns: initializeErrorPatterns(),
	}
}

// codeCategories maps domain error codes to categories
var codeCategories = map[string]domain.ErrorCategory{
	domain.ErrCodeInvalidInput:      domain.ErrorCategoryInput,
	domain.ErrCodeFileNotFound:      domain.ErrorCategoryInput,
	domain.ErrCodeConfigError:       domain.ErrorCategoryConfig,
	domain.ErrCodeOutputError:       domain.ErrorCategoryOutput,
	domain.ErrCodeUnsupportedFormat: domain.ErrorCategoryOutput,
	domain.ErrCodeParseError:        domain.ErrorCategoryProcessing,
	domain.ErrCodeTransformError:    domain.ErrorCategoryTransform,
	domain.ErrCodePrecondition:      domain.ErrorCategoryTransform,
	domain.ErrCodeVerification:      domain.ErrorCategoryVerify,
}

// initializeErrorPatterns lists message patterns in the order they are
// tried
func initializeErrorPatterns() []categoryPatterns {
	return []categoryPatterns{
		{domain.ErrorCategoryTimeout, []string{
			"timeout",
			"deadline",
			"context canceled",
			"timed out",
		}},
		{domain.ErrorCategoryConfig, []string{
			"config",
			"toml",
			"yaml",
			"required_version",
		}},
		{domain.ErrorCategoryVerify, []string{
			"differs from original",
			"binding(s) differ",
		}},
		{domain.ErrorCategoryTransform, []string{
			"precondition",
			"unsupported construct",
			"failed to convert",
		}},
		{domain.ErrorCategoryInput, []string{
			"invalid input",
			"no python files",
			"file not found",
			"cannot access",
			"permission denied",
		}},
		{domain.ErrorCategoryOutput, []string{
			"write",
			"output",
			"cannot create",
		}},
		{domain.ErrorCategoryProcessing, []string{
			"parse",
			"syntax",
		}},
	}
}

// Categorize determines the category of an error. Domain error codes take
// precedence over message patterns.
func (ec *ErrorCategorizerImpl) Categorize(err error) *domain.CategorizedError {
	if err == nil {
		return nil
	}

	category := domain.ErrorCategoryUnknown
	var domainErr domain.DomainError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		category = domain.ErrorCategoryTimeout
	case errors.As(err, &domainErr) && codeCategories[domainErr.Code] != "":
		category = codeCategories[domainErr.Code]
	default:
		errMsg := strings.ToLower(err.Error())
		for _, cp := range ec.patterns {
			if containsAnyPattern(errMsg, cp.patterns) {
				category = cp.category
				break
			}
		}
	}

	message := err.Error()
	if category != domain.ErrorCategoryUnknown {
		message = ec.getCategoryMessage(category)
	}
	return &domain.CategorizedError{
		Category: category,
		Message:  message,
		Original: err,
	}
}

// GetRecoverySuggestions returns recovery suggestions for an error category
func (ec *ErrorCategorizerImpl) GetRecoverySuggestions(category domain.ErrorCategory) []string {
	suggestions := map[domain.ErrorCategory][]string{
		domain.ErrorCategoryInput: {
			"Check that files/directories exist and contain Python files",
			"Check include_patterns and exclude_patterns in .pystage.toml",
			"Ensure you have read permissions for the target files",
		},
		domain.ErrorCategoryConfig: {
			"Verify configuration file format and values",
			"Try: pystage init to generate a valid config file",
			"Check for syntax errors in .pystage.toml or pyproject.toml",
		},
		domain.ErrorCategoryTimeout: {
			"Convert smaller file sets",
			"Run without --verify to skip evaluating modules",
		},
		domain.ErrorCategoryOutput: {
			"Check write permissions and output format validity",
			"Ensure the output directory is writable",
		},
		domain.ErrorCategoryProcessing: {
			"Some files may have syntax errors",
			"Try: python -m py_compile on files to check for syntax errors",
		},
		domain.ErrorCategoryTransform: {
			"Keep jump lowering enabled when loops use break, continue or return",
			"Statements such as yield, global or nonlocal cannot be moved into generated functions",
			"Run with --verbose to see the construct that failed",
		},
		domain.ErrorCategoryVerify: {
			"The converted module changes behavior; report the input as a bug",
			"Run without --verify to write the converted module anyway",
		},
		domain.ErrorCategoryUnknown: {
			"Run with --verbose for detailed error information",
			"Report the issue if it persists",
		},
	}

	if sug, ok := suggestions[category]; ok {
		return sug
	}
	return []string{"Check the error message for more details"}
}

// getCategoryMessage returns a user-friendly message for an error category
func (ec *ErrorCategorizerImpl) getCategoryMessage(category domain.ErrorCategory) string {
	messages := map[domain.ErrorCategory]string{
		domain.ErrorCategoryInput:      "Failed to process input files or directories",
		domain.ErrorCategoryConfig:     "Configuration file or settings error",
		domain.ErrorCategoryTimeout:    "Conversion timed out or was cancelled",
		domain.ErrorCategoryOutput:     "Failed to generate or write output",
		domain.ErrorCategoryProcessing: "Failed to parse Python source",
		domain.ErrorCategoryTransform:  "Control flow could not be converted",
		domain.ErrorCategoryVerify:     "Converted module does not behave like the original",
	}

	if msg, ok := messages[category]; ok {
		return msg
	}
	return "An error occurred"
}

// containsAnyPattern checks if a string contains any of the given patterns
func containsAnyPattern(str string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(str, pattern) {
			return true
		}
	}
	return false
}
