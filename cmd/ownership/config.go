package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"ownership/internal/demo"
	"ownership/internal/snapshot"
	"ownership/internal/trace"
)

const configFileName = "ownership.toml"

// fileConfig mirrors ownership.toml. Every section is optional; only keys
// present in the file override the defaults.
type fileConfig struct {
	Demo     demoSection     `toml:"demo"`
	Heap     heapSection     `toml:"heap"`
	Trace    traceSection    `toml:"trace"`
	Snapshot snapshotSection `toml:"snapshot"`
}

type demoSection struct {
	Unique     int  `toml:"unique"`
	Factory    int  `toml:"factory"`
	Shared     int  `toml:"shared"`
	Transfer   int  `toml:"transfer"`
	Offset     int  `toml:"offset"`
	Copies     int  `toml:"copies"`
	Workers    int  `toml:"workers"`
	CheckLeaks bool `toml:"check_leaks"`
}

type heapSection struct {
	Limit int `toml:"limit"`
}

type traceSection struct {
	Level  string `toml:"level"`
	Mode   string `toml:"mode"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

type snapshotSection struct {
	Path   string `toml:"path"`
	Format string `toml:"format"`
}

// runConfig is the resolved configuration: defaults overlaid with the file.
// Command-line flags are applied on top by each command.
type runConfig struct {
	Path string // config file used, empty when none was found

	Demo demo.Config

	TraceLevel  string
	TraceMode   string
	TraceFormat trace.Format
	TraceOutput string

	SnapshotPath   string
	SnapshotFormat snapshot.Format
}

func defaultRunConfig() runConfig {
	return runConfig{Demo: demo.DefaultConfig()}
}

func findConfigFile(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

func loadConfigFile(path string) (runConfig, error) {
	cfg := defaultRunConfig()
	cfg.Path = path

	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return runConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return runConfig{}, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}

	ints := []struct {
		section, key string
		src          int
		dst          *int
		min          int
	}{
		{"demo", "unique", fc.Demo.Unique, &cfg.Demo.Unique, math.MinInt},
		{"demo", "factory", fc.Demo.Factory, &cfg.Demo.Factory, math.MinInt},
		{"demo", "shared", fc.Demo.Shared, &cfg.Demo.Shared, math.MinInt},
		{"demo", "transfer", fc.Demo.Transfer, &cfg.Demo.Transfer, math.MinInt},
		{"demo", "offset", fc.Demo.Offset, &cfg.Demo.Offset, math.MinInt},
		{"demo", "copies", fc.Demo.Copies, &cfg.Demo.Copies, 0},
		{"demo", "workers", fc.Demo.Workers, &cfg.Demo.Workers, 0},
		{"heap", "limit", fc.Heap.Limit, &cfg.Demo.HeapLimit, 0},
	}
	for _, f := range ints {
		if !meta.IsDefined(f.section, f.key) {
			continue
		}
		if f.src < f.min {
			return runConfig{}, fmt.Errorf("%s: [%s].%s must be >= %d, got %d", path, f.section, f.key, f.min, f.src)
		}
		*f.dst = f.src
	}
	if meta.IsDefined("demo", "check_leaks") {
		cfg.Demo.CheckLeaks = fc.Demo.CheckLeaks
	}

	if meta.IsDefined("trace", "level") {
		if _, err := trace.ParseLevel(fc.Trace.Level); err != nil {
			return runConfig{}, fmt.Errorf("%s: [trace].level: %w", path, err)
		}
		cfg.TraceLevel = fc.Trace.Level
	}
	if meta.IsDefined("trace", "mode") {
		if _, err := trace.ParseMode(fc.Trace.Mode); err != nil {
			return runConfig{}, fmt.Errorf("%s: [trace].mode: %w", path, err)
		}
		cfg.TraceMode = fc.Trace.Mode
	}
	if meta.IsDefined("trace", "format") {
		format, err := trace.ParseFormat(fc.Trace.Format)
		if err != nil {
			return runConfig{}, fmt.Errorf("%s: [trace].format: %w", path, err)
		}
		cfg.TraceFormat = format
	}
	cfg.TraceOutput = fc.Trace.Output

	if meta.IsDefined("snapshot", "format") {
		format, err := snapshot.ParseFormat(fc.Snapshot.Format)
		if err != nil {
			return runConfig{}, fmt.Errorf("%s: [snapshot].format: %w", path, err)
		}
		cfg.SnapshotFormat = format
	}
	if fc.Snapshot.Path != "" {
		p := fc.Snapshot.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(filepath.Dir(path), p)
		}
		cfg.SnapshotPath = p
	}
	return cfg, nil
}

// resolveConfig loads --config when given, otherwise the nearest
// ownership.toml above the working directory, otherwise the defaults.
func resolveConfig(cmd *cobra.Command) (runConfig, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return runConfig{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		return loadConfigFile(path)
	}
	found, ok, err := findConfigFile(".")
	if err != nil {
		return runConfig{}, err
	}
	if !ok {
		return defaultRunConfig(), nil
	}
	return loadConfigFile(found)
}
