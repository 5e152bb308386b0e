package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/pflag"

	"github.com/ludo-technologies/pystage/internal/config"
	"github.com/ludo-technologies/pystage/internal/version"
	"github.com/ludo-technologies/pystage/mcp"
)

const serverName = "pystage"

type options struct {
	configPath string
	verbose    bool
}

// parseOptions reads the server flags from args (without the program name)
func parseOptions(args []string) (options, error) {
	var opts options
	fs := pflag.NewFlagSet(serverName+"-mcp", pflag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", "", "Configuration file path")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "Log every converted module")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	// stdout carries JSON-RPC
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	cfg, err := config.LoadConfig(opts.configPath, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	var logger *log.Logger
	if opts.verbose || cfg.Output.Verbose {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	server := mcpserver.NewMCPServer(
		serverName,
		version.Short(),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
	)
	mcp.RegisterTools(server, mcp.NewHandlerSet(mcp.NewDependencies(cfg, opts.configPath, logger)))

	log.Printf("Starting %s MCP server %s\n", serverName, version.Short())
	log.Println("Registered tools:")
	log.Println("  - convert_control_flow: Rewrite if/while/for into runtime primitive calls")
	log.Println("  - analyze_loop_state: Report loop state and undefined variables")
	log.Println("Server ready - waiting for MCP client connection...")

	if err := mcpserver.ServeStdio(server); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
