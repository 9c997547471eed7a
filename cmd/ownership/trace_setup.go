package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ownership/internal/trace"
)

// setupTracing reads the trace flags, falling back to the [trace] section
// of the config file for flags that were not set, and attaches the tracer
// to the command context. It returns a cleanup function.
func setupTracing(cmd *cobra.Command, cfg runConfig) (func(), error) {
	flags := cmd.Root().PersistentFlags()

	traceOutput, err := flags.GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := flags.GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := flags.GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	formatStr, err := flags.GetString("trace-format")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-format flag: %w", err)
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeatInterval, err := flags.GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	if !flags.Changed("trace") && cfg.TraceOutput != "" {
		traceOutput = cfg.TraceOutput
	}
	if !flags.Changed("trace-level") && cfg.TraceLevel != "" {
		levelStr = cfg.TraceLevel
	}
	if !flags.Changed("trace-mode") && cfg.TraceMode != "" {
		modeStr = cfg.TraceMode
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	// --trace without a level means "show me the scenarios".
	if level == trace.LevelOff && traceOutput != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}
	format := cfg.TraceFormat
	if flags.Changed("trace-format") {
		if format, err = trace.ParseFormat(formatStr); err != nil {
			return nil, fmt.Errorf("invalid trace format: %w", err)
		}
	}

	tcfg := trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: traceOutput,
		RingSize:   ringSize,
	}
	if traceOutput == "-" || traceOutput == "" {
		tcfg.Output = nopCloser{cmd.ErrOrStderr()}
	}
	tracer, err := trace.New(tcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	var heartbeat *trace.Heartbeat
	if heartbeatInterval > 0 {
		heartbeat = trace.StartHeartbeat(tracer, heartbeatInterval)
	}

	cleanup := func() {
		heartbeat.Stop()
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}

// dumpRing writes the ring buffer behind the context tracer, if any.
func dumpRing(cmd *cobra.Command, w io.Writer) {
	ring, ok := trace.RingOf(trace.FromContext(cmd.Context()))
	if !ok {
		return
	}
	fmt.Fprintln(w, "trace: last events before failure:")
	if err := ring.Dump(w, trace.FormatText); err != nil {
		fmt.Fprintf(w, "trace: dump error: %v\n", err)
	}
}

// nopCloser keeps StreamTracer.Close away from the command's stderr.
type nopCloser struct{ io.Writer }
