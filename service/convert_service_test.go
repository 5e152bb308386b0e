package service

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/pystage/domain"
)

const loopModule = `total = 0
for i in range(5):
    if i % 2 == 0:
        total = total + i
n = 3
while n > 0:
    n = n - 1
print(total, n)
`

func defaultRequest(paths ...string) domain.ConvertRequest {
	return domain.ConvertRequest{
		Paths:           paths,
		OutputFormat:    domain.OutputFormatText,
		Suffix:          "_staged",
		RuntimeModule:   "ag__",
		LowerJumps:      true,
		Recursive:       true,
		IncludePatterns: []string{"**/*.py"},
	}
}

func TestConvertService_ConvertSource(t *testing.T) {
	svc := NewConvertService()
	req := defaultRequest()

	conversion, err := svc.ConvertSource(context.Background(), "loop.py", []byte(loopModule), req)
	require.NoError(t, err)

	assert.Equal(t, "loop.py", conversion.FilePath)
	assert.Equal(t, 1, conversion.ForLoops)
	assert.Equal(t, 1, conversion.WhileLoops)
	assert.Equal(t, 1, conversion.Conditionals)
	assert.Contains(t, conversion.Source, "ag__.for_stmt(")
	assert.Contains(t, conversion.Source, "ag__.while_stmt(")
	assert.Contains(t, conversion.Source, "ag__.if_stmt(")
	assert.NotContains(t, conversion.Source, "\nwhile ")
	require.Len(t, conversion.Constructs, 3)
	assert.False(t, conversion.Verified)
}

func TestConvertService_RuntimeModule(t *testing.T) {
	req := defaultRequest()
	req.RuntimeModule = "rt"

	conversion, err := NewConvertService().ConvertSource(context.Background(), "m.py", []byte("if a:\n    b = 1\nelse:\n    b = 2\n"), req)
	require.NoError(t, err)
	assert.Contains(t, conversion.Source, "rt.if_stmt(")
	assert.NotContains(t, conversion.Source, "ag__")
}

func TestConvertService_Verify(t *testing.T) {
	req := defaultRequest()
	req.Verify = true

	t.Run("equivalent module", func(t *testing.T) {
		conversion, err := NewConvertService().ConvertSource(context.Background(), "loop.py", []byte(loopModule), req)
		require.NoError(t, err)
		assert.True(t, conversion.Verified)
	})

	t.Run("module outside the evaluated subset is skipped", func(t *testing.T) {
		src := "import os\nif os.sep:\n    x = 1\n"
		conversion, err := NewConvertService().ConvertSource(context.Background(), "imp.py", []byte(src), req)
		require.NoError(t, err)
		assert.False(t, conversion.Verified)
	})

	t.Run("raising module raises the same kind", func(t *testing.T) {
		src := "x = 0\nif x == 0:\n    y = 1 // x\n"
		conversion, err := NewConvertService().ConvertSource(context.Background(), "div.py", []byte(src), req)
		require.NoError(t, err)
		assert.True(t, conversion.Verified)
	})
}

func TestConvertService_Errors(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		lower    bool
		wantCode string
	}{
		{name: "syntax error", source: "if x\n    pass\n", lower: true, wantCode: domain.ErrCodeParseError},
		{name: "unlowered break", source: "while True:\n    break\n", lower: false, wantCode: domain.ErrCodePrecondition},
		{name: "yield in branch", source: "def g(c):\n    if c:\n        yield 1\n", lower: true, wantCode: domain.ErrCodeTransformError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := defaultRequest()
			req.LowerJumps = tt.lower
			_, err := NewConvertService().ConvertSource(context.Background(), "bad.py", []byte(tt.source), req)
			require.Error(t, err)

			var domainErr domain.DomainError
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, tt.wantCode, domainErr.Code)
			assert.Contains(t, err.Error(), "bad.py")
		})
	}
}

func TestConvertService_Convert(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.py":     loopModule,
		"pkg/b.py": "if c:\n    d = 1\n",
		"bad.py":   "while True:\n    x = (\n",
	})
	paths := []string{
		filepath.Join(root, "a.py"),
		filepath.Join(root, "bad.py"),
		filepath.Join(root, "pkg", "b.py"),
	}

	var logs bytes.Buffer
	svc := NewConvertService(
		WithSourceWriter(NewFileSourceWriterAt(root)),
		WithLogger(log.New(&logs, "", 0)),
	)
	req := defaultRequest(paths...)
	req.MaxGoroutines = 2

	response, err := svc.Convert(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, response.Summary.FilesConverted)
	assert.Equal(t, 1, response.Summary.FilesFailed)
	assert.Equal(t, 2, response.Summary.Conditionals)
	assert.Equal(t, 1, response.Summary.ForLoops)
	assert.Equal(t, 1, response.Summary.WhileLoops)
	require.Len(t, response.Errors, 1)
	assert.Contains(t, response.Errors[0], "bad.py")
	assert.NotEmpty(t, response.Version)
	assert.NotEmpty(t, response.GeneratedAt)

	require.Len(t, response.Files, 2)
	assert.Equal(t, paths[0], response.Files[0].FilePath, "files keep input order")
	assert.Equal(t, paths[2], response.Files[1].FilePath)

	staged := filepath.Join(root, "a_staged.py")
	assert.Equal(t, staged, response.Files[0].OutputPath)
	data, err := os.ReadFile(staged)
	require.NoError(t, err)
	assert.Equal(t, response.Files[0].Source, string(data))
	assert.FileExists(t, filepath.Join(root, "pkg", "b_staged.py"))
	assert.NoFileExists(t, filepath.Join(root, "bad_staged.py"))

	assert.Contains(t, logs.String(), "a.py: 1 conditional(s)")
}

func TestConvertService_ConvertToOutputDir(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"src/pkg/m.py": "if c:\n    d = 1\n"})
	out := filepath.Join(root, "out")

	req := defaultRequest(filepath.Join(root, "src", "pkg", "m.py"))
	req.OutputDir = out
	req.Suffix = ""

	response, err := NewConvertService(WithSourceWriter(NewFileSourceWriterAt(root))).Convert(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, response.Files, 1)
	assert.Equal(t, filepath.Join(out, "src", "pkg", "m.py"), response.Files[0].OutputPath)
	assert.FileExists(t, filepath.Join(out, "src", "pkg", "m.py"))
}

func TestConvertService_InPlace(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "m.py")
	writeTree(t, root, map[string]string{"m.py": "if c:\n    d = 1\n"})

	req := defaultRequest(path)
	req.InPlace = true

	_, err := NewConvertService().Convert(context.Background(), req)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "ag__.if_stmt("))
}

func TestConvertService_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "x = 1\n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewConvertService().Convert(ctx, defaultRequest(filepath.Join(root, "a.py")))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConvertService_ReusesParses(t *testing.T) {
	cache := NewParseCache()
	svc := NewConvertService(WithParseCache(cache))
	req := defaultRequest()

	for i := 0; i < 3; i++ {
		_, err := svc.ConvertSource(context.Background(), "m.py", []byte(loopModule), req)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, cache.Hits())
}

func TestConvertService_ProgressCountsFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "x = 1\n", "b.py": "y = 2\n"})

	progress := &ProgressManagerImpl{}
	progress.SetWriter(&bytes.Buffer{})
	svc := NewConvertService(WithProgress(progress), WithSourceWriter(NewFileSourceWriterAt(root)))

	req := defaultRequest(filepath.Join(root, "a.py"), filepath.Join(root, "b.py"))
	req.Suffix = ""
	_, err := svc.Convert(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, progress.Processed())
}
