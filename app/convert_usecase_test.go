package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/pystage/domain"
	"github.com/ludo-technologies/pystage/service"
)

type mockConvertService struct {
	mock.Mock
}

func (m *mockConvertService) Convert(ctx context.Context, req domain.ConvertRequest) (*domain.ConvertResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConvertResponse), args.Error(1)
}

func (m *mockConvertService) ConvertSource(ctx context.Context, name string, source []byte, req domain.ConvertRequest) (*domain.FileConversion, error) {
	args := m.Called(ctx, name, source, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FileConversion), args.Error(1)
}

type mockFileReader struct {
	mock.Mock
}

func (m *mockFileReader) CollectPythonFiles(paths []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	args := m.Called(paths, recursive, includePatterns, excludePatterns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockFileReader) ReadFile(path string) ([]byte, error) {
	args := m.Called(path)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockFileReader) IsValidPythonFile(path string) bool {
	return m.Called(path).Bool(0)
}

func (m *mockFileReader) FileExists(path string) (bool, error) {
	args := m.Called(path)
	return args.Bool(0), args.Error(1)
}

type mockOutputFormatter struct {
	mock.Mock
}

func (m *mockOutputFormatter) Format(response *domain.ConvertResponse, format domain.OutputFormat) (string, error) {
	args := m.Called(response, format)
	return args.String(0), args.Error(1)
}

func (m *mockOutputFormatter) Write(response *domain.ConvertResponse, format domain.OutputFormat, writer io.Writer) error {
	return m.Called(response, format, writer).Error(0)
}

type mockConfigLoader struct {
	mock.Mock
}

func (m *mockConfigLoader) LoadConfig(path string) (*domain.ConvertRequest, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConvertRequest), args.Error(1)
}

func (m *mockConfigLoader) LoadDefaultConfig() *domain.ConvertRequest {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*domain.ConvertRequest)
}

func (m *mockConfigLoader) MergeConfig(base *domain.ConvertRequest, override *domain.ConvertRequest) *domain.ConvertRequest {
	return m.Called(base, override).Get(0).(*domain.ConvertRequest)
}

// fakeWatcher delivers its batches and then stops
type fakeWatcher struct {
	batches []domain.ChangeSet
	closed  bool
}

func (w *fakeWatcher) Run(ctx context.Context, onChange func(context.Context, domain.ChangeSet) error) error {
	for _, batch := range w.batches {
		if err := onChange(ctx, batch); err != nil {
			return err
		}
	}
	return context.Canceled
}

func (w *fakeWatcher) Close() error {
	w.closed = true
	return nil
}

func validConvertRequest() domain.ConvertRequest {
	return domain.ConvertRequest{
		Paths:           []string{"src"},
		OutputWriter:    &bytes.Buffer{},
		OutputFormat:    domain.OutputFormatText,
		Suffix:          "_staged",
		RuntimeModule:   "ag__",
		LowerJumps:      true,
		Recursive:       true,
		IncludePatterns: []string{"**/*.py"},
	}
}

func responseFor(files ...string) *domain.ConvertResponse {
	response := &domain.ConvertResponse{}
	for _, f := range files {
		response.Files = append(response.Files, domain.FileConversion{FilePath: f, Conditionals: 1})
		response.Summary.FilesConverted++
		response.Summary.Conditionals++
	}
	return response
}

func TestConvertUseCase_Execute(t *testing.T) {
	files := []string{"src/a.py", "src/b.py"}

	tests := []struct {
		name       string
		request    func() domain.ConvertRequest
		setupMocks func(*mockConvertService, *mockFileReader, *mockOutputFormatter)
		wantErr    string
		wantFailed bool
	}{
		{
			name:    "success",
			request: validConvertRequest,
			setupMocks: func(svc *mockConvertService, fr *mockFileReader, f *mockOutputFormatter) {
				fr.On("CollectPythonFiles", []string{"src"}, true, []string{"**/*.py"}, []string(nil)).Return(files, nil)
				svc.On("Convert", mock.Anything, mock.MatchedBy(func(req domain.ConvertRequest) bool {
					return assert.ObjectsAreEqual(files, req.Paths)
				})).Return(responseFor(files...), nil)
				f.On("Write", mock.Anything, domain.OutputFormatText, mock.Anything).Return(nil)
			},
		},
		{
			name: "no paths",
			request: func() domain.ConvertRequest {
				req := validConvertRequest()
				req.Paths = nil
				return req
			},
			setupMocks: func(*mockConvertService, *mockFileReader, *mockOutputFormatter) {},
			wantErr:    "no input paths",
		},
		{
			name: "unsupported format",
			request: func() domain.ConvertRequest {
				req := validConvertRequest()
				req.OutputFormat = "html"
				return req
			},
			setupMocks: func(*mockConvertService, *mockFileReader, *mockOutputFormatter) {},
			wantErr:    "unsupported output format",
		},
		{
			name: "in place with output directory",
			request: func() domain.ConvertRequest {
				req := validConvertRequest()
				req.InPlace = true
				req.OutputDir = "out"
				return req
			},
			setupMocks: func(*mockConvertService, *mockFileReader, *mockOutputFormatter) {},
			wantErr:    "mutually exclusive",
		},
		{
			name:    "no python files",
			request: validConvertRequest,
			setupMocks: func(svc *mockConvertService, fr *mockFileReader, f *mockOutputFormatter) {
				fr.On("CollectPythonFiles", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]string{}, nil)
			},
			wantErr: "no Python files found",
		},
		{
			name:    "service error",
			request: validConvertRequest,
			setupMocks: func(svc *mockConvertService, fr *mockFileReader, f *mockOutputFormatter) {
				fr.On("CollectPythonFiles", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(files, nil)
				svc.On("Convert", mock.Anything, mock.Anything).Return(nil, errors.New("conversion cancelled"))
			},
			wantErr: "conversion cancelled",
		},
		{
			name:    "failed files are reported after the report is written",
			request: validConvertRequest,
			setupMocks: func(svc *mockConvertService, fr *mockFileReader, f *mockOutputFormatter) {
				fr.On("CollectPythonFiles", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(files, nil)
				response := responseFor("src/a.py")
				response.Summary.FilesFailed = 1
				response.Errors = []string{"[src/b.py] parse error"}
				svc.On("Convert", mock.Anything, mock.Anything).Return(response, nil)
				f.On("Write", mock.Anything, domain.OutputFormatText, mock.Anything).Return(nil)
			},
			wantErr:    "1 of 2 file(s) failed",
			wantFailed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockConvertService{}
			fr := &mockFileReader{}
			f := &mockOutputFormatter{}
			tt.setupMocks(svc, fr, f)

			uc := NewConvertUseCase(svc, fr, f, nil, nil)
			response, err := uc.Execute(context.Background(), tt.request())

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				var failure *FileFailureError
				assert.Equal(t, tt.wantFailed, errors.As(err, &failure))
				if tt.wantFailed {
					assert.NotNil(t, response)
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, 2, response.Summary.FilesConverted)
			}

			svc.AssertExpectations(t)
			fr.AssertExpectations(t)
			f.AssertExpectations(t)
		})
	}
}

func TestConvertUseCase_MergesConfiguration(t *testing.T) {
	svc := &mockConvertService{}
	fr := &mockFileReader{}
	f := &mockOutputFormatter{}
	loader := &mockConfigLoader{}

	req := validConvertRequest()
	req.ConfigPath = "pystage.yaml"
	fromFile := &domain.ConvertRequest{RuntimeModule: "rt", OutputFormat: domain.OutputFormatJSON}
	merged := req
	merged.RuntimeModule = "rt"
	merged.OutputFormat = domain.OutputFormatJSON

	loader.On("LoadConfig", "pystage.yaml").Return(fromFile, nil)
	loader.On("MergeConfig", fromFile, mock.Anything).Return(&merged)
	fr.On("CollectPythonFiles", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]string{"src/a.py"}, nil)
	svc.On("Convert", mock.Anything, mock.MatchedBy(func(r domain.ConvertRequest) bool {
		return r.RuntimeModule == "rt"
	})).Return(responseFor("src/a.py"), nil)
	f.On("Write", mock.Anything, domain.OutputFormatJSON, mock.Anything).Return(nil)

	_, err := NewConvertUseCase(svc, fr, f, loader, nil).Execute(context.Background(), req)
	require.NoError(t, err)
	loader.AssertExpectations(t)
	svc.AssertExpectations(t)
}

func TestConvertUseCase_ConfigError(t *testing.T) {
	loader := &mockConfigLoader{}
	loader.On("LoadConfig", "bad.toml").Return(nil, errors.New("parse failure"))

	req := validConvertRequest()
	req.ConfigPath = "bad.toml"
	_, err := NewConvertUseCase(&mockConvertService{}, &mockFileReader{}, &mockOutputFormatter{}, loader, nil).Execute(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrCodeConfigError)
	assert.Contains(t, err.Error(), "bad.toml")
}

func TestConvertUseCase_WritesReportThroughReportWriter(t *testing.T) {
	svc := &mockConvertService{}
	fr := &mockFileReader{}
	f := &mockOutputFormatter{}

	fr.On("CollectPythonFiles", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]string{"src/a.py"}, nil)
	svc.On("Convert", mock.Anything, mock.Anything).Return(responseFor("src/a.py"), nil)
	f.On("Write", mock.Anything, domain.OutputFormatYAML, mock.Anything).Return(nil)

	reportPath := filepath.Join(t.TempDir(), "report.yaml")
	req := validConvertRequest()
	req.OutputWriter = nil
	req.ReportPath = reportPath
	req.OutputFormat = domain.OutputFormatYAML

	var status bytes.Buffer
	uc := NewConvertUseCase(svc, fr, f, nil, service.NewFileOutputWriter(&status))
	_, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.FileExists(t, reportPath)
	assert.Contains(t, status.String(), "YAML report generated")
}

func TestConvertUseCase_Watch(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.py", "b.py", "b_staged.py"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x = 1\n"), 0o644))
	}
	a := filepath.Join(root, "a.py")
	b := filepath.Join(root, "b.py")

	svc := &mockConvertService{}
	f := &mockOutputFormatter{}
	f.On("Write", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc.On("Convert", mock.Anything, mock.MatchedBy(func(r domain.ConvertRequest) bool {
		return len(r.Paths) == 2
	})).Return(responseFor(a, b), nil).Once()
	svc.On("Convert", mock.Anything, mock.MatchedBy(func(r domain.ConvertRequest) bool {
		return assert.ObjectsAreEqual([]string{b}, r.Paths)
	})).Return(responseFor(b), nil).Once()

	req := validConvertRequest()
	req.Paths = []string{root}
	req.ExcludePatterns = []string{"**/*_staged.py"}

	watcher := &fakeWatcher{batches: []domain.ChangeSet{
		{Changed: []string{b, filepath.Join(root, "b_staged.py"), filepath.Join(root, "notes.py")}},
		{Removed: []string{a}},
	}}

	uc := NewConvertUseCase(svc, service.NewFileReader(), f, nil, nil)
	require.NoError(t, uc.Watch(context.Background(), req, watcher))
	svc.AssertExpectations(t)
}

func TestConvertUseCase_WatchRejectsInPlace(t *testing.T) {
	req := validConvertRequest()
	req.InPlace = true

	err := NewConvertUseCase(&mockConvertService{}, &mockFileReader{}, &mockOutputFormatter{}, nil, nil).Watch(context.Background(), req, &fakeWatcher{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in place")
}

func TestResolveFilePaths_SkipsOutputDirectory(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.py", "out/a.py"} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0o644))
	}

	req := validConvertRequest()
	req.Paths = []string{root}
	req.OutputDir = filepath.Join(root, "out")

	files, err := ResolveFilePaths(service.NewFileReader(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.py")}, files)
}

func TestSelectChangedFiles(t *testing.T) {
	files := []string{"pkg/a.py", "pkg/b.py"}
	abs, err := filepath.Abs("pkg/b.py")
	require.NoError(t, err)

	assert.Equal(t, []string{"pkg/b.py"}, SelectChangedFiles(files, []string{abs, "other.py"}))
	assert.Empty(t, SelectChangedFiles(files, nil))
}

func TestConvertUseCaseBuilder(t *testing.T) {
	_, err := NewConvertUseCaseBuilder().Build()
	assert.Error(t, err)

	uc, err := NewConvertUseCaseBuilder().
		WithService(&mockConvertService{}).
		WithFileReader(&mockFileReader{}).
		WithFormatter(&mockOutputFormatter{}).
		WithConfigLoader(&mockConfigLoader{}).
		WithReportWriter(service.NewFileOutputWriter(io.Discard)).
		Build()
	require.NoError(t, err)
	assert.NotNil(t, uc)
}
