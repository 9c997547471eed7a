package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"ownership/internal/snapshot"
	"ownership/internal/ui"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats FILE",
		Short: "Show a snapshot written by demo --snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  runStats,
	}
	cmd.Flags().String("format", "pretty", "output format (pretty|json)")
	cmd.Flags().String("snapshot-format", "", "snapshot encoding (msgpack|cbor; default from extension)")
	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	encoding, err := cmd.Flags().GetString("snapshot-format")
	if err != nil {
		return fmt.Errorf("failed to get snapshot-format flag: %w", err)
	}
	snapFormat, err := snapshot.ParseFormat(encoding)
	if err != nil {
		return err
	}

	snap, err := snapshot.Read(args[0], snapFormat)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return renderStats(cmd.OutOrStdout(), snap, strings.ToLower(format), terminalWidth())
}

func renderStats(out io.Writer, snap *snapshot.Snapshot, format string, width int) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case "pretty":
		_, err := io.WriteString(out, ui.RenderSnapshot(snap, width))
		return err
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
}
