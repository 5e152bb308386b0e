package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/pystage/internal/version"
)

// Exit codes
const (
	exitOK          = 0
	exitFileFailure = 1
	exitError       = 2
)

// exitCodeError carries the process exit code for an error that was
// already reported
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }

func (e *exitCodeError) Unwrap() error { return e.err }

// NewRootCmd builds the pystage command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pystage",
		Short: "Stage Python control flow into functional form",
		Long: `pystage rewrites if, while and for statements of Python modules into
calls of if_stmt, while_stmt and for_stmt. The bodies of converted statements
become nested functions with explicit get_state/set_state pairs, so a tracing
runtime can execute, stage or differentiate the control flow.

Variables that are only defined on some paths are initialized with the
Undefined sentinel of the runtime module.`,
		Version:       version.Short(),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	root.AddCommand(NewConvertCmd())
	root.AddCommand(NewInitCmd())
	root.AddCommand(NewVersionCmd())
	return root
}

func main() {
	os.Exit(run(NewRootCmd(), os.Args[1:]))
}

// run executes root with args and returns the exit code
func run(root *cobra.Command, args []string) int {
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitOK
	}

	var coded *exitCodeError
	if errors.As(err, &coded) {
		return coded.code
	}
	fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
	return exitError
}
