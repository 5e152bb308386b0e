package mcp_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/pystage/mcp"
	"github.com/ludo-technologies/pystage/service"
)

const loopSource = `total = 0
for i in range(4):
    if i > 1:
        total = total + i
`

type args struct {
	arguments interface{}
	setupFS   func(t *testing.T) string
}

type want struct {
	isError      *bool
	expectPrefix string
	check        func(t *testing.T, result map[string]interface{})
}

func setupTestFile(t *testing.T, filename, content string) string {
	t.Helper()
	dst := filepath.Join(t.TempDir(), filename)
	require.NoError(t, os.WriteFile(dst, []byte(content), 0o644))
	return dst
}

func runToolTest(
	t *testing.T,
	setupFS func(t *testing.T) string,
	arguments interface{},
	handlerFunc func(*mcp.HandlerSet, context.Context, mcplib.CallToolRequest) (*mcplib.CallToolResult, error),
) *mcplib.CallToolResult {
	t.Helper()
	deps := mcp.NewTestDependencies(service.NewFileReader(), nil, "")
	h := mcp.NewHandlerSet(deps)

	if setupFS != nil {
		if m, ok := arguments.(map[string]interface{}); ok {
			m["path"] = setupFS(t)
		}
	}

	req := mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Arguments: arguments,
		},
	}

	res, err := handlerFunc(h, context.Background(), req)
	require.NoError(t, err)
	return res
}

func checkResult(t *testing.T, res *mcplib.CallToolResult, w want) {
	t.Helper()
	if w.isError != nil {
		require.Equal(t, *w.isError, res.IsError, mcplib.GetTextFromContent(res.Content[0]))
	}
	require.NotEmpty(t, res.Content)
	text := mcplib.GetTextFromContent(res.Content[0])
	if w.expectPrefix != "" && !strings.HasPrefix(text, w.expectPrefix) {
		t.Fatalf("error text %q does not start with %q", text, w.expectPrefix)
	}
	if w.check != nil {
		var result map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(text), &result))
		w.check(t, result)
	}
}

func TestHandleConvertControlFlow(t *testing.T) {
	errTrue := true
	errFalse := false

	tests := map[string]struct {
		args args
		want want
	}{
		"invalid_arguments_format": {
			args: args{arguments: "not-a-map"},
			want: want{isError: &errTrue, expectPrefix: "invalid arguments format"},
		},
		"source_and_path_missing": {
			args: args{arguments: map[string]interface{}{}},
			want: want{isError: &errTrue, expectPrefix: "either source or path is required"},
		},
		"path_not_exist": {
			args: args{arguments: map[string]interface{}{"path": "/non/existing/path.py"}},
			want: want{isError: &errTrue, expectPrefix: "path does not exist"},
		},
		"not_python": {
			args: args{
				setupFS:   func(t *testing.T) string { return setupTestFile(t, "notes.txt", "x = 1\n") },
				arguments: map[string]interface{}{},
			},
			want: want{isError: &errTrue, expectPrefix: "not a Python file"},
		},
		"syntax_error": {
			args: args{arguments: map[string]interface{}{"source": "if x\n    pass\n"}},
			want: want{isError: &errTrue, expectPrefix: "conversion failed"},
		},
		"unlowered_break": {
			args: args{arguments: map[string]interface{}{
				"source":      "while True:\n    break\n",
				"lower_jumps": false,
			}},
			want: want{isError: &errTrue, expectPrefix: "conversion failed"},
		},
		"source": {
			args: args{arguments: map[string]interface{}{"source": loopSource}},
			want: want{
				isError: &errFalse,
				check: func(t *testing.T, result map[string]interface{}) {
					assert.Equal(t, "ag__", result["runtime_module"])
					assert.Equal(t, float64(1), result["for_loops"])
					assert.Equal(t, float64(1), result["conditionals"])
					assert.Contains(t, result["source"], "ag__.for_stmt(")
					assert.Len(t, result["constructs"], 2)
				},
			},
		},
		"path_with_runtime_module": {
			args: args{
				setupFS:   func(t *testing.T) string { return setupTestFile(t, "loop.py", loopSource) },
				arguments: map[string]interface{}{"runtime_module": "rt", "verify": true},
			},
			want: want{
				isError: &errFalse,
				check: func(t *testing.T, result map[string]interface{}) {
					assert.True(t, strings.HasSuffix(result["file_path"].(string), "loop.py"))
					assert.Contains(t, result["source"], "rt.if_stmt(")
					assert.Equal(t, true, result["verified"])
				},
			},
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			res := runToolTest(t, tc.args.setupFS, tc.args.arguments, (*mcp.HandlerSet).HandleConvertControlFlow)
			checkResult(t, res, tc.want)
		})
	}
}

func TestHandleAnalyzeLoopState(t *testing.T) {
	errTrue := true
	errFalse := false

	tests := map[string]struct {
		args args
		want want
	}{
		"source_missing": {
			args: args{arguments: map[string]interface{}{}},
			want: want{isError: &errTrue, expectPrefix: "source parameter is required"},
		},
		"bad_line": {
			args: args{arguments: map[string]interface{}{"source": loopSource, "line": float64(0)}},
			want: want{isError: &errTrue, expectPrefix: "line must be >= 1"},
		},
		"no_construct_on_line": {
			args: args{arguments: map[string]interface{}{"source": loopSource, "line": float64(1)}},
			want: want{isError: &errTrue, expectPrefix: "no if, while or for statement starts on line 1"},
		},
		"all_constructs": {
			args: args{arguments: map[string]interface{}{"source": loopSource}},
			want: want{
				isError: &errFalse,
				check: func(t *testing.T, result map[string]interface{}) {
					assert.Len(t, result["constructs"], 2)
				},
			},
		},
		"loop_on_line": {
			args: args{arguments: map[string]interface{}{"source": loopSource, "line": float64(2)}},
			want: want{
				isError: &errFalse,
				check: func(t *testing.T, result map[string]interface{}) {
					constructs := result["constructs"].([]interface{})
					require.Len(t, constructs, 1)
					loop := constructs[0].(map[string]interface{})
					assert.Equal(t, "for", loop["kind"])
					assert.Equal(t, float64(2), loop["line"])
					assert.Contains(t, loop["state"], "total")
				},
			},
		},
		"no_constructs": {
			args: args{arguments: map[string]interface{}{"source": "x = 1\n"}},
			want: want{
				isError: &errFalse,
				check: func(t *testing.T, result map[string]interface{}) {
					assert.Empty(t, result["constructs"])
				},
			},
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			res := runToolTest(t, tc.args.setupFS, tc.args.arguments, (*mcp.HandlerSet).HandleAnalyzeLoopState)
			checkResult(t, res, tc.want)
		})
	}
}
