// Package cli provides the command-line interface for qparse.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bwann/qparse/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "qparse",
		Short: "Summarize dial-up modem calls from Qmodem capture logs",
		Long: `qparse scans Qmodem capture logs produced by scripted test calls and
summarizes every call: handshake time, connect speed, download throughput,
link diagnostics from the modem's ATI6/ATI11 status screens, and how the
call ended.

Capture files are read in the order given and calls are reconstructed from
the script's marker lines (#### start_qmodem, #### end_call, and so on).

Exit codes:
  0 - All calls connected and all downloads succeeded
  1 - At least one connect or download failure was recorded
  2 - Configuration or runtime error (unreadable file, bad flag, bad filter)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add subcommands
	rootCmd.AddCommand(commands.NewReportCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
