package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterTools registers the pystage tools with the server
func RegisterTools(s *server.MCPServer, h *HandlerSet) {
	s.AddTool(mcp.NewTool("convert_control_flow",
		mcp.WithDescription("Rewrite if/while/for statements of a Python module into if_stmt, while_stmt and for_stmt calls with explicit loop state"),
		mcp.WithString("source",
			mcp.Description("Python module source. Either source or path is required")),
		mcp.WithString("path",
			mcp.Description("Path to a Python file to convert")),
		mcp.WithString("runtime_module",
			mcp.Description("Module providing the primitives (default: ag__)")),
		mcp.WithBoolean("lower_jumps",
			mcp.Description("Lower break, continue and return before conversion (default: true)")),
		mcp.WithBoolean("verify",
			mcp.Description("Run original and converted module and compare bindings (default: false)")),
	), h.HandleConvertControlFlow)

	s.AddTool(mcp.NewTool("analyze_loop_state",
		mcp.WithDescription("Report the state, undefined and aliased variables of each converted if/while/for statement"),
		mcp.WithString("source",
			mcp.Required(),
			mcp.Description("Python module source")),
		mcp.WithNumber("line",
			mcp.Description("Only report the statement starting on this line (default: all)")),
	), h.HandleAnalyzeLoopState)
}
