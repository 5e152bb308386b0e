package app

import (
	"path/filepath"
	"strings"

	"github.com/ludo-technologies/pystage/domain"
)

// ResolveFilePaths collects the Python files the request converts. Files
// inside the output directory are generated and never collected.
func ResolveFilePaths(fileReader domain.FileReader, req domain.ConvertRequest) ([]string, error) {
	collected, err := fileReader.CollectPythonFiles(req.Paths, req.Recursive, req.IncludePatterns, req.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	files := collected[:0]
	for _, file := range collected {
		if req.OutputDir == "" || !isWithin(file, req.OutputDir) {
			files = append(files, file)
		}
	}
	if len(files) == 0 {
		return nil, domain.NewInvalidInputError("no Python files found in the specified paths", nil)
	}
	return files, nil
}

// SelectChangedFiles returns the members of files named in changed. Paths
// are compared in absolute form because watch events carry the watched
// directory's spelling.
func SelectChangedFiles(files, changed []string) []string {
	want := make(map[string]bool, len(changed))
	for _, path := range changed {
		want[absPath(path)] = true
	}

	var selected []string
	for _, file := range files {
		if want[absPath(file)] {
			selected = append(selected, file)
		}
	}
	return selected
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// isWithin reports whether path lies inside dir
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(absPath(dir), absPath(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
