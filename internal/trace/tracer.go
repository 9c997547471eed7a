package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Tracer receives events. Emit must be safe for concurrent use: the
// shared-workers step clones owners from several goroutines.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
}

// StorageMode selects where events go.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1 // written as they happen
	ModeRing                          // kept in memory for a failure dump
	ModeBoth
)

var modeNames = map[StorageMode]string{
	ModeStream: "stream",
	ModeRing:   "ring",
	ModeBoth:   "both",
}

func (m StorageMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParseMode accepts stream, ring or both. The empty string is ModeStream.
func ParseMode(s string) (StorageMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeStream, nil
	}
	for mode, name := range modeNames {
		if name == s {
			return mode, nil
		}
	}
	return ModeStream, fmt.Errorf("unknown trace mode %q (want stream|ring|both)", s)
}

// DefaultRingSize is the ring capacity when none is configured.
const DefaultRingSize = 4096

// Config describes the tracer New builds.
type Config struct {
	Level Level
	Mode  StorageMode
	// Format of streamed events. FormatAuto picks NDJSON for .ndjson and
	// .jsonl outputs and text otherwise.
	Format Format
	// Output takes precedence over OutputPath.
	Output io.Writer
	// OutputPath is a file to create; "" and "-" mean stderr.
	OutputPath string
	RingSize   int
}

// New builds the tracer cfg describes. LevelOff yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	var stream, ring Tracer
	if cfg.Mode == ModeStream || cfg.Mode == ModeBoth {
		w, err := cfg.writer()
		if err != nil {
			return nil, err
		}
		stream = NewStreamTracer(w, cfg.Level, cfg.format())
	}
	if cfg.Mode == ModeRing || cfg.Mode == ModeBoth {
		ring = NewRingTracer(cfg.RingSize, cfg.Level)
	}
	switch {
	case stream != nil && ring != nil:
		return NewMultiTracer(cfg.Level, stream, ring), nil
	case stream != nil:
		return stream, nil
	case ring != nil:
		return ring, nil
	}
	return nil, fmt.Errorf("unknown trace mode %v", cfg.Mode)
}

func (cfg Config) format() Format {
	if cfg.Format != FormatAuto {
		return cfg.Format
	}
	switch filepath.Ext(cfg.OutputPath) {
	case ".ndjson", ".jsonl":
		return FormatNDJSON
	}
	return FormatText
}

func (cfg Config) writer() (io.Writer, error) {
	if cfg.Output != nil {
		return cfg.Output, nil
	}
	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		return keepOpen{os.Stderr}, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("trace output: %w", err)
	}
	return &fileSink{Writer: bufio.NewWriter(f), f: f}, nil
}

// keepOpen hides Close so closing a tracer leaves stderr alone.
type keepOpen struct{ io.Writer }

// fileSink buffers writes to a trace file; Close flushes before closing.
type fileSink struct {
	*bufio.Writer
	f *os.File
}

func (s *fileSink) Close() error {
	return errors.Join(s.Flush(), s.f.Close())
}

// RingOf finds the ring behind t, looking inside a MultiTracer.
func RingOf(t Tracer) (*RingTracer, bool) {
	if r, ok := t.(*RingTracer); ok {
		return r, true
	}
	if m, ok := t.(*MultiTracer); ok {
		for _, inner := range m.tracers {
			if r, ok := RingOf(inner); ok {
				return r, true
			}
		}
	}
	return nil, false
}
