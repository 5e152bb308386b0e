package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/pystage/internal/version"
)

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	code := run(root, args)
	return code, stdout.String(), stderr.String()
}

func writeModule(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const branchModule = `x = 3
if x > 2:
    y = 1
else:
    y = 2
`

func TestVersionCommand(t *testing.T) {
	code, out, _ := execute(t, "version", "--short")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, version.Short()+"\n", out)

	code, out, _ = execute(t, "version")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "pystage "+version.Short())
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", ".pystage.toml")

	code, out, _ := execute(t, "init", "--config", path)
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "Configuration file created")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "runtime_module")

	code, _, errOut := execute(t, "init", "--config", path)
	assert.Equal(t, exitError, code)
	assert.Contains(t, errOut, "already exists")

	code, _, _ = execute(t, "init", "--config", path, "--force")
	assert.Equal(t, exitOK, code)
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "m.py", branchModule)

	code, out, errOut := execute(t, "convert", dir)
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "Control Flow Staging Report")

	staged, err := os.ReadFile(filepath.Join(dir, "m_staged.py"))
	require.NoError(t, err)
	assert.Contains(t, string(staged), "ag__.if_stmt(")

	// staged output is excluded on the next run
	code, out, _ = execute(t, "convert", "--format", "json", dir)
	require.Equal(t, exitOK, code)
	var report struct {
		Files []struct {
			FilePath string `json:"file_path"`
		} `json:"files"`
		Summary struct {
			FilesConverted int `json:"files_converted"`
			Conditionals   int `json:"conditionals"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Summary.FilesConverted)
	assert.Equal(t, 1, report.Summary.Conditionals)
}

func TestConvertCommand_Options(t *testing.T) {
	dir := t.TempDir()
	src := writeModule(t, dir, "src/m.py", branchModule)
	out := filepath.Join(dir, "out")

	code, _, errOut := execute(t, "convert",
		"--output-dir", out,
		"--suffix", "",
		"--runtime-module", "rt",
		"--verify",
		"--report", filepath.Join(dir, "report.yaml"),
		"--format", "yaml",
		src)
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, errOut, "YAML report generated")

	converted, err := os.ReadFile(filepath.Join(out, "m.py"))
	require.NoError(t, err)
	assert.Contains(t, string(converted), "rt.if_stmt(")

	report, err := os.ReadFile(filepath.Join(dir, "report.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "files_verified: 1")
}

func TestConvertCommand_Config(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, ".pystage.toml", "[transform]\nruntime_module = \"staging\"\n\n[output]\nsuffix = \"_conv\"\n")
	writeModule(t, dir, "m.py", branchModule)

	code, _, errOut := execute(t, "convert", "--exclude", "**/*_conv.py", dir)
	require.Equal(t, exitOK, code, errOut)

	converted, err := os.ReadFile(filepath.Join(dir, "m_conv.py"))
	require.NoError(t, err)
	assert.Contains(t, string(converted), "staging.if_stmt(")

	// flags win over the file
	code, _, errOut = execute(t, "convert", "--runtime-module", "cli", "--exclude", "**/*_conv.py", dir)
	require.Equal(t, exitOK, code, errOut)
	converted, err = os.ReadFile(filepath.Join(dir, "m_conv.py"))
	require.NoError(t, err)
	assert.Contains(t, string(converted), "cli.if_stmt(")
}

func TestConvertCommand_ExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		args     func(dir string) []string
		wantCode int
		wantErr  string
	}{
		{
			name:     "some files fail",
			files:    map[string]string{"ok.py": branchModule, "bad.py": "if x\n    pass\n"},
			args:     func(dir string) []string { return []string{"convert", dir} },
			wantCode: exitFileFailure,
			wantErr:  "1 of 2 file(s) failed",
		},
		{
			name:     "missing path",
			args:     func(dir string) []string { return []string{"convert", filepath.Join(dir, "nope")} },
			wantCode: exitError,
		},
		{
			name:     "unsupported format",
			files:    map[string]string{"ok.py": branchModule},
			args:     func(dir string) []string { return []string{"convert", "--format", "html", dir} },
			wantCode: exitError,
			wantErr:  "unsupported output format",
		},
		{
			name:     "unlowered break",
			files:    map[string]string{"loop.py": "while True:\n    break\n"},
			args:     func(dir string) []string { return []string{"convert", "--no-lower-jumps", dir} },
			wantCode: exitFileFailure,
		},
		{
			name:     "no arguments",
			args:     func(string) []string { return []string{"convert"} },
			wantCode: exitError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeModule(t, dir, name, content)
			}
			code, _, errOut := execute(t, tt.args(dir)...)
			assert.Equal(t, tt.wantCode, code, errOut)
			if tt.wantErr != "" {
				assert.Contains(t, errOut, tt.wantErr)
			}
		})
	}
}

func TestConfigStartDir(t *testing.T) {
	dir := t.TempDir()
	file := writeModule(t, dir, "pkg/m.py", "")

	assert.Equal(t, ".", configStartDir(nil))
	assert.Equal(t, dir, configStartDir([]string{dir}))
	assert.Equal(t, filepath.Dir(file), configStartDir([]string{file, dir}))
	assert.True(t, strings.HasSuffix(configStartDir([]string{filepath.Join(dir, "missing")}), "missing"))
}
