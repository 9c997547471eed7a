package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ownership/internal/demo"
	"ownership/internal/owner"
	"ownership/internal/snapshot"
	"ownership/internal/trace"
	"ownership/internal/version"
)

type demoPayload struct {
	Tool    string       `json:"tool"`
	Version string       `json:"version"`
	OK      bool         `json:"ok"`
	Error   string       `json:"error,omitempty"`
	Result  *demo.Result `json:"result,omitempty"`
}

var stepHeading = color.New(color.FgCyan, color.Bold)

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the ownership walk-through",
		Long: `Run the ownership scenarios in order and print what each one observes.

Values come from ownership.toml when present; flags override the file.

Examples:
  ownership demo
  ownership demo --step shared --copies 5
  ownership demo --format json --snapshot run.mp
  ownership demo --heap-limit 1        # watch construction fail`,
		Args: cobra.NoArgs,
		RunE: runDemo,
	}
	f := cmd.Flags()
	f.String("format", "pretty", "output format (pretty|json)")
	f.String("ui", "auto", "progress UI (auto|on|off)")
	f.Bool("stats", false, "print heap ledger counters after the run")
	f.String("snapshot", "", "write a run snapshot to this file (.mp, .msgpack or .cbor)")
	f.String("snapshot-format", "", "snapshot encoding (msgpack|cbor; default from extension)")
	f.Bool("no-leak-check", false, "do not fail when values outlive their step")
	f.Int("heap-limit", 0, "maximum live heap records (0 = unlimited)")
	f.StringSlice("step", nil, "run only these steps ("+strings.Join(demo.Names(), ", ")+")")
	f.Int("unique", 0, "value adopted by the first exclusive owner")
	f.Int("factory", 0, "value built in place")
	f.Int("shared", 0, "value held by the shared owners")
	f.Int("transfer", 0, "value passed by transfer")
	f.Int("offset", 0, "offset added by the receiving function")
	f.Int("copies", 0, "number of shared owner copies")
	f.Int("workers", 0, "goroutines cloning the shared owner")
	return cmd
}

type demoOptions struct {
	format       string
	ui           uiMode
	stats        bool
	quiet        bool
	timings      bool
	steps        []string
	snapshotPath string
	snapshotFmt  snapshot.Format
}

func runDemo(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyDemoFlags(cmd, &cfg); err != nil {
		return err
	}
	opts, err := readDemoOptions(cmd, cfg)
	if err != nil {
		return err
	}

	cleanup, err := setupTracing(cmd, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	steps, err := demo.Select(opts.steps...)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	tracer := trace.FromContext(ctx)
	runner := demo.Runner{
		Heap:   &owner.Heap{Limit: cfg.Demo.HeapLimit, Tracer: tracer},
		Tracer: tracer,
		Steps:  steps,
		Config: cfg.Demo,
	}

	out := cmd.OutOrStdout()
	var res *demo.Result
	var runErr error
	switch {
	case opts.format == "json":
		res, runErr = runner.Run(ctx)
	case shouldUseTUI(opts.ui) && !opts.quiet:
		res, runErr = runDemoWithUI(ctx, "ownership demo", runner)
		if res != nil {
			for _, line := range res.Lines {
				fmt.Fprintln(out, line)
			}
		}
	default:
		runner.Out = out
		if !opts.quiet {
			runner.Sink = headingSink{w: out}
		}
		res, runErr = runner.Run(ctx)
	}

	if runErr != nil {
		dumpRing(cmd, cmd.ErrOrStderr())
	}

	if opts.format == "json" {
		if err := writeDemoJSON(out, res, runErr); err != nil {
			return err
		}
	} else if res != nil {
		if opts.stats {
			printHeapStats(out, res.Stats, res.Live)
		}
		if opts.timings {
			printStepTimings(out, res.Timings)
		}
	}

	if opts.snapshotPath != "" && res != nil {
		snap, err := snapshot.FromResult(res, "ownership", version.Version)
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		if err := snapshot.Write(opts.snapshotPath, snap, opts.snapshotFmt); err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		if !opts.quiet && opts.format != "json" {
			fmt.Fprintf(cmd.ErrOrStderr(), "snapshot written to %s\n", opts.snapshotPath)
		}
	}
	return runErr
}

// applyDemoFlags overlays explicitly set flags on the file configuration.
func applyDemoFlags(cmd *cobra.Command, cfg *runConfig) error {
	f := cmd.Flags()
	ints := []struct {
		name string
		dst  *int
	}{
		{"unique", &cfg.Demo.Unique},
		{"factory", &cfg.Demo.Factory},
		{"shared", &cfg.Demo.Shared},
		{"transfer", &cfg.Demo.Transfer},
		{"offset", &cfg.Demo.Offset},
		{"copies", &cfg.Demo.Copies},
		{"workers", &cfg.Demo.Workers},
		{"heap-limit", &cfg.Demo.HeapLimit},
	}
	for _, fl := range ints {
		if !f.Changed(fl.name) {
			continue
		}
		v, err := f.GetInt(fl.name)
		if err != nil {
			return fmt.Errorf("failed to get %s flag: %w", fl.name, err)
		}
		*fl.dst = v
	}
	if f.Changed("no-leak-check") {
		noCheck, err := f.GetBool("no-leak-check")
		if err != nil {
			return fmt.Errorf("failed to get no-leak-check flag: %w", err)
		}
		cfg.Demo.CheckLeaks = !noCheck
	}
	if f.Changed("snapshot") {
		p, err := f.GetString("snapshot")
		if err != nil {
			return fmt.Errorf("failed to get snapshot flag: %w", err)
		}
		cfg.SnapshotPath = p
	}
	if f.Changed("snapshot-format") {
		s, err := f.GetString("snapshot-format")
		if err != nil {
			return fmt.Errorf("failed to get snapshot-format flag: %w", err)
		}
		format, err := snapshot.ParseFormat(s)
		if err != nil {
			return err
		}
		cfg.SnapshotFormat = format
	}
	return cfg.Demo.Validate()
}

func readDemoOptions(cmd *cobra.Command, cfg runConfig) (demoOptions, error) {
	f := cmd.Flags()
	format, err := f.GetString("format")
	if err != nil {
		return demoOptions{}, fmt.Errorf("failed to get format flag: %w", err)
	}
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "pretty", "json":
	default:
		return demoOptions{}, fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
	uiValue, err := f.GetString("ui")
	if err != nil {
		return demoOptions{}, fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return demoOptions{}, err
	}
	stats, err := f.GetBool("stats")
	if err != nil {
		return demoOptions{}, fmt.Errorf("failed to get stats flag: %w", err)
	}
	steps, err := f.GetStringSlice("step")
	if err != nil {
		return demoOptions{}, fmt.Errorf("failed to get step flag: %w", err)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return demoOptions{}, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return demoOptions{}, fmt.Errorf("failed to get timings flag: %w", err)
	}
	return demoOptions{
		format:       format,
		ui:           mode,
		stats:        stats,
		quiet:        quiet,
		timings:      timings,
		steps:        steps,
		snapshotPath: cfg.SnapshotPath,
		snapshotFmt:  cfg.SnapshotFormat,
	}, nil
}

func writeDemoJSON(out io.Writer, res *demo.Result, runErr error) error {
	payload := demoPayload{
		Tool:    "ownership",
		Version: version.Version,
		OK:      runErr == nil,
		Result:  res,
	}
	if runErr != nil {
		payload.Error = runErr.Error()
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

// headingSink prints a heading before each step's transcript.
type headingSink struct {
	w io.Writer
}

func (s headingSink) OnEvent(ev demo.Event) {
	switch ev.Status {
	case demo.StatusRunning:
		fmt.Fprintln(s.w, stepHeading.Sprintf("== %s", ev.Step))
	case demo.StatusError:
		fmt.Fprintln(s.w, color.RedString("!! %s failed: %v", ev.Step, ev.Err))
	}
}
