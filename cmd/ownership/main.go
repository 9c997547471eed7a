package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ownership/internal/owner"
	"ownership/internal/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ownership",
		Short: "Scope-bound exclusive and shared ownership, step by step",
		Long: `ownership walks through scope-bound ownership of heap values:
an exclusive owner that can only be moved, a shared owner released by
its last handle, and teardown that runs through the dynamic type.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
			if err != nil {
				return fmt.Errorf("failed to get color flag: %w", err)
			}
			return applyColorMode(colorFlag)
		},
	}

	flags := root.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.String("config", "", "path to "+configFileName+" (default: search upward from the working directory)")
	flags.String("trace", "", `trace output file ("-" for stderr)`)
	flags.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	flags.String("trace-format", "auto", "streamed trace format (auto|text|ndjson)")
	flags.Int("trace-ring-size", 4096, "events kept by the ring tracer")
	flags.Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval (0 = off)")
	flags.String("cpu-profile", "", "write a CPU profile to this file")
	flags.String("mem-profile", "", "write a heap profile to this file on exit")
	flags.String("runtime-trace", "", "write a Go runtime execution trace to this file")

	root.AddCommand(newDemoCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newRulesCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// main builds the command tree and executes it. Any error exits with status 1;
// ownership errors are reported with their code.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

func reportError(w io.Writer, err error) {
	var oe *owner.Error
	if errors.As(err, &oe) {
		fmt.Fprintf(w, "panic %s: %v\n", oe.Code, err)
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}
