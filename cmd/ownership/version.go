package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"ownership/internal/version"
)

// versionPayload is the --format=json shape of `ownership version`.
type versionPayload struct {
	Tool       string `json:"tool"`
	Version    string `json:"version"`
	Tagline    string `json:"tagline"`
	GitCommit  string `json:"git_commit,omitempty"`
	GitMessage string `json:"git_message,omitempty"`
	BuildDate  string `json:"build_date,omitempty"`
}

const versionTagline = "one owner, one teardown"

// buildField is one optional line of version output, enabled by flag.
type buildField struct {
	flag  string
	label string
	value string
}

func buildFields() []buildField {
	return []buildField{
		{flag: "hash", label: "commit", value: version.GitCommit},
		{flag: "message", label: "message", value: version.GitMessage},
		{flag: "date", label: "built", value: version.BuildDate},
	}
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show ownership build metadata",
		Args:  cobra.NoArgs,
		RunE:  runVersion,
	}
	f := cmd.Flags()
	f.Bool("hash", false, "include git commit hash")
	f.Bool("message", false, "include git commit message")
	f.Bool("date", false, "include build timestamp")
	f.Bool("full", false, "include all build metadata")
	f.String("format", "pretty", "output format (pretty|json)")
	return cmd
}

func runVersion(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	format, err := f.GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
	full, err := f.GetBool("full")
	if err != nil {
		return fmt.Errorf("failed to get full flag: %w", err)
	}

	var shown []buildField
	for _, bf := range buildFields() {
		on, err := f.GetBool(bf.flag)
		if err != nil {
			return fmt.Errorf("failed to get %s flag: %w", bf.flag, err)
		}
		if on || full {
			bf.value = strings.TrimSpace(bf.value)
			if bf.value == "" {
				bf.value = "unknown"
			}
			shown = append(shown, bf)
		}
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		return writeVersionJSON(out, shown)
	}
	writeVersionPretty(out, shown)
	return nil
}

func writeVersionPretty(out io.Writer, shown []buildField) {
	fmt.Fprintf(out, "ownership %s: %s\n", version.Colored(), versionTagline)
	if len(shown) == 0 {
		fmt.Fprintln(out, "more build metadata: --hash --message --date or --full")
		return
	}
	for _, bf := range shown {
		fmt.Fprintf(out, "%-8s %s\n", bf.label+":", bf.value)
	}
}

func writeVersionJSON(out io.Writer, shown []buildField) error {
	v := strings.TrimSpace(version.Version)
	if v == "" {
		v = "dev"
	}
	payload := versionPayload{Tool: "ownership", Version: v, Tagline: versionTagline}
	for _, bf := range shown {
		switch bf.flag {
		case "hash":
			payload.GitCommit = bf.value
		case "message":
			payload.GitMessage = bf.value
		case "date":
			payload.BuildDate = bf.value
		}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
