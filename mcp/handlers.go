package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ludo-technologies/pystage/domain"
)

// HandlerSet exposes MCP tool handlers with shared dependencies.
type HandlerSet struct {
	deps *Dependencies
}

// NewHandlerSet constructs a handler set.
func NewHandlerSet(deps *Dependencies) *HandlerSet {
	if deps == nil {
		deps = NewDependencies(nil, "", nil)
	}
	return &HandlerSet{deps: deps}
}

// HandleConvertControlFlow handles the convert_control_flow tool
func (h *HandlerSet) HandleConvertControlFlow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	name, source, errResult := h.moduleSource(args)
	if errResult != nil {
		return errResult, nil
	}

	req := h.deps.baseRequest()
	if rm, ok := args["runtime_module"].(string); ok && rm != "" {
		req.RuntimeModule = rm
	}
	if lj, ok := args["lower_jumps"].(bool); ok {
		req.LowerJumps = lj
	}
	if v, ok := args["verify"].(bool); ok {
		req.Verify = v
	}

	conversion, err := h.deps.service.ConvertSource(ctx, name, source, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("conversion failed: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"file_path":        conversion.FilePath,
		"source":           conversion.Source,
		"runtime_module":   req.RuntimeModule,
		"conditionals":     conversion.Conditionals,
		"while_loops":      conversion.WhileLoops,
		"for_loops":        conversion.ForLoops,
		"undefined_guards": conversion.UndefinedGuards,
		"verified":         conversion.Verified,
		"constructs":       constructsOrEmpty(conversion.Constructs),
	})
}

// HandleAnalyzeLoopState handles the analyze_loop_state tool
func (h *HandlerSet) HandleAnalyzeLoopState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	source, ok := args["source"].(string)
	if !ok {
		return mcp.NewToolResultError("source parameter is required and must be a string"), nil
	}

	line := 0
	if l, ok := args["line"].(float64); ok {
		if l < 1 {
			return mcp.NewToolResultError("line must be >= 1"), nil
		}
		line = int(l)
	}

	conversion, err := h.deps.service.ConvertSource(ctx, "<source>", []byte(source), h.deps.baseRequest())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	constructs := conversion.Constructs
	if line > 0 {
		constructs = nil
		for _, c := range conversion.Constructs {
			if c.Line == line {
				constructs = append(constructs, c)
			}
		}
		if len(constructs) == 0 {
			return mcp.NewToolResultError(fmt.Sprintf("no if, while or for statement starts on line %d", line)), nil
		}
	}

	return jsonResult(map[string]interface{}{
		"constructs": constructsOrEmpty(constructs),
	})
}

// moduleSource reads the module named by the source or path argument
func (h *HandlerSet) moduleSource(args map[string]interface{}) (string, []byte, *mcp.CallToolResult) {
	if source, ok := args["source"].(string); ok && source != "" {
		return "<source>", []byte(source), nil
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", nil, mcp.NewToolResultError("either source or path is required")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", nil, mcp.NewToolResultError(fmt.Sprintf("path does not exist: %s", path))
	}
	if !h.deps.fileReader.IsValidPythonFile(path) {
		return "", nil, mcp.NewToolResultError(fmt.Sprintf("not a Python file: %s", path))
	}

	content, err := h.deps.fileReader.ReadFile(path)
	if err != nil {
		return "", nil, mcp.NewToolResultError(fmt.Sprintf("failed to read %s: %v", path, err))
	}
	return path, content, nil
}

func constructsOrEmpty(constructs []domain.ConstructReport) []domain.ConstructReport {
	if constructs == nil {
		return []domain.ConstructReport{}
	}
	return constructs
}

func jsonResult(data interface{}) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
