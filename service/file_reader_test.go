package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func relativeAll(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, len(paths))
	for i, p := range paths {
		rel, err := filepath.Rel(root, p)
		require.NoError(t, err)
		out[i] = filepath.ToSlash(rel)
	}
	return out
}

func TestFileReader_CollectPythonFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.py":                  "x = 1\n",
		"main_staged.py":           "x = 1\n",
		"notes.txt":                "",
		"types.pyi":                "",
		"pkg/mod.py":               "",
		"pkg/sub/deep.py":          "",
		"pkg/tests/test_mod.py":    "",
		".hidden/skip.py":          "",
		"__pycache__/cached.py":    "",
		"venv/lib/site.py":         "",
		"demo.egg-info/meta.py":    "",
		"pkg/.dotfile.py":          "",
	})

	tests := []struct {
		name      string
		recursive bool
		include   []string
		exclude   []string
		want      []string
	}{
		{
			name:      "defaults",
			recursive: true,
			include:   []string{"**/*.py"},
			exclude:   []string{"**/*_staged.py"},
			want:      []string{"main.py", "pkg/mod.py", "pkg/sub/deep.py", "pkg/tests/test_mod.py"},
		},
		{
			name:      "not recursive",
			recursive: false,
			include:   []string{"**/*.py"},
			want:      []string{"main.py", "main_staged.py"},
		},
		{
			name:      "globstar directory include",
			recursive: true,
			include:   []string{"pkg/**"},
			want:      []string{"pkg/mod.py", "pkg/sub/deep.py", "pkg/tests/test_mod.py"},
		},
		{
			name:      "exclude tests",
			recursive: true,
			include:   []string{"**/*.py"},
			exclude:   []string{"**/tests/**", "main*.py"},
			want:      []string{"pkg/mod.py", "pkg/sub/deep.py"},
		},
		{
			name:      "no include patterns",
			recursive: true,
			exclude:   []string{"pkg/**"},
			want:      []string{"main.py", "main_staged.py"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := NewFileReader().CollectPythonFiles([]string{root}, tt.recursive, tt.include, tt.exclude)
			require.NoError(t, err)
			assert.Equal(t, tt.want, relativeAll(t, root, files))
		})
	}
}

func TestFileReader_ExplicitFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.py":        "",
		"a_staged.py": "",
		"b.txt":       "",
	})
	reader := NewFileReader()

	files, err := reader.CollectPythonFiles(
		[]string{
			filepath.Join(root, "a.py"),
			filepath.Join(root, "a.py"),
			filepath.Join(root, "a_staged.py"),
			filepath.Join(root, "b.txt"),
			root,
		},
		true, []string{"sub/**"}, []string{"**/*_staged.py"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py"}, relativeAll(t, root, files), "explicit files ignore include patterns but not excludes")

	_, err = reader.CollectPythonFiles([]string{filepath.Join(root, "missing.py")}, true, nil, nil)
	assert.Error(t, err)
}

func TestFileReader_ValidatePaths(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": ""})
	reader := NewFileReader()

	assert.NoError(t, reader.ValidatePaths([]string{root, filepath.Join(root, "a.py")}))
	assert.Error(t, reader.ValidatePaths(nil))

	err := reader.ValidatePaths([]string{filepath.Join(root, "nope")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FILE_NOT_FOUND")
}

func TestFileReader_Helpers(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "x = 1\n"})
	reader := NewFileReader()

	assert.True(t, reader.IsValidPythonFile("x/y.PY"))
	assert.False(t, reader.IsValidPythonFile("x/y.pyi"))

	ok, err := reader.FileExists(filepath.Join(root, "a.py"))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = reader.FileExists(root)
	require.NoError(t, err)
	assert.False(t, ok)

	content, err := reader.ReadFile(filepath.Join(root, "a.py"))
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(content))
}

func TestMatchesAny(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"pkg/cli/**", "pkg/cli/main.py", true},
		{"pkg/cli/**", "pkg/cli/sub/file.py", true},
		{"pkg/cli/**", "other/file.py", false},
		{"**/test.py", "deep/nested/test.py", true},
		{"**/test.py", "test.py", true},
		{"*_staged.py", "a/b/x_staged.py", true},
		{"**/*.py", "x.py", true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesAny([]string{tt.pattern}, tt.path, filepath.Base(tt.path)))
		})
	}
}
