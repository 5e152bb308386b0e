package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ludo-technologies/pystage/domain"
)

// FileSourceWriter stores converted modules on disk
type FileSourceWriter struct {
	// baseDir anchors the layout mirrored under an output directory
	baseDir string
}

// NewFileSourceWriter creates a writer that mirrors paths relative to the
// working directory
func NewFileSourceWriter() *FileSourceWriter {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return &FileSourceWriter{baseDir: wd}
}

// NewFileSourceWriterAt creates a writer that mirrors paths relative to
// baseDir
func NewFileSourceWriterAt(baseDir string) *FileSourceWriter {
	return &FileSourceWriter{baseDir: baseDir}
}

// Destination implements domain.SourceWriter. In place conversion returns
// path itself. With an output directory the input layout below the base
// directory is reproduced there; files outside it land at the top level.
// Otherwise the converted module is written next to the input with the
// suffix added, or not at all without a suffix.
func (w *FileSourceWriter) Destination(path string, req domain.ConvertRequest) string {
	if req.InPlace {
		return path
	}

	name := withSuffix(filepath.Base(path), req.Suffix)
	if req.OutputDir != "" {
		return filepath.Join(req.OutputDir, filepath.Dir(w.relative(path)), name)
	}
	if req.Suffix == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(path), name)
}

func (w *FileSourceWriter) relative(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Base(path)
	}
	base, err := filepath.Abs(w.baseDir)
	if err != nil {
		return filepath.Base(path)
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Base(path)
	}
	return rel
}

func withSuffix(name, suffix string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + suffix + ext
}

// WriteSource implements domain.SourceWriter. The file is written to a
// temporary sibling first and renamed over dest.
func (w *FileSourceWriter) WriteSource(dest string, source string) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.NewOutputError(fmt.Sprintf("failed to create directory: %s", dir), err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*")
	if err != nil {
		return domain.NewOutputError(fmt.Sprintf("failed to create output file: %s", dest), err)
	}
	tmpName := tmp.Name()
	if _, err := io.WriteString(tmp, source); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return domain.NewOutputError(fmt.Sprintf("failed to write output file: %s", dest), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return domain.NewOutputError(fmt.Sprintf("failed to write output file: %s", dest), err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return domain.NewOutputError(fmt.Sprintf("failed to write output file: %s", dest), err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return domain.NewOutputError(fmt.Sprintf("failed to replace output file: %s", dest), err)
	}
	return nil
}

// FileOutputWriter writes reports to files or provided writers
type FileOutputWriter struct {
	status io.Writer // where to print status messages (typically stderr)
}

// NewFileOutputWriter creates a new FileOutputWriter.
func NewFileOutputWriter(status io.Writer) *FileOutputWriter {
	if status == nil {
		status = os.Stderr
	}
	return &FileOutputWriter{status: status}
}

// Write implements domain.ReportWriter.
func (w *FileOutputWriter) Write(writer io.Writer, outputPath string, format domain.OutputFormat, writeFunc func(io.Writer) error) error {
	out := writer
	if outputPath != "" {
		file, err := os.Create(outputPath)
		if err != nil {
			return domain.NewOutputError(fmt.Sprintf("failed to create output file: %s", outputPath), err)
		}
		defer file.Close()
		out = file
	}

	if err := writeFunc(out); err != nil {
		return domain.NewOutputError("failed to write output", err)
	}

	if outputPath != "" {
		absPath, err := filepath.Abs(outputPath)
		if err != nil {
			absPath = outputPath
		}
		fmt.Fprintf(w.status, "%s report generated: %s\n", strings.ToUpper(string(format)), absPath)
	}
	return nil
}
