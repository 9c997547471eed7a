// Package observ times the steps of a demo run.
package observ

import (
	"fmt"
	"strings"
	"time"
)

// Timer records consecutive phases. It is not safe for concurrent use; the
// runner times steps one after another.
type Timer struct {
	now    func() time.Time
	phases []phase
}

type phase struct {
	name    string
	started time.Time
	took    time.Duration
	note    string
}

func NewTimer() *Timer { return &Timer{now: time.Now} }

// Begin opens a phase and returns the index End expects.
func (t *Timer) Begin(name string) int {
	t.phases = append(t.phases, phase{name: name, started: t.now()})
	return len(t.phases) - 1
}

// End closes phase idx with an optional note. Unknown indexes are ignored.
func (t *Timer) End(idx int, note string) {
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.took = t.now().Sub(p.started)
	p.note = note
}

func (t *Timer) Summary() string { return t.Report().Summary() }

// PhaseReport is one timed phase as stored in JSON output and snapshots.
type PhaseReport struct {
	Name       string  `json:"name" msgpack:"name" cbor:"name"`
	DurationMS float64 `json:"duration_ms" msgpack:"duration_ms" cbor:"duration_ms"`
	Note       string  `json:"note,omitempty" msgpack:"note,omitempty" cbor:"note,omitempty"`
}

// Report is every phase plus their sum.
type Report struct {
	TotalMS float64       `json:"total_ms" msgpack:"total_ms" cbor:"total_ms"`
	Phases  []PhaseReport `json:"phases" msgpack:"phases" cbor:"phases"`
}

// Report returns the zero Report when nothing was timed.
func (t *Timer) Report() Report {
	var r Report
	var total time.Duration
	for _, p := range t.phases {
		total += p.took
		r.Phases = append(r.Phases, PhaseReport{Name: p.name, DurationMS: millis(p.took), Note: p.note})
	}
	r.TotalMS = millis(total)
	return r
}

// Summary renders one line per phase with its share of the total, e.g.
//
//	timings:
//	  shared              0.42 ms  61%
//	  transfer            0.27 ms  39%  [error]
//	  total               0.69 ms
func (r Report) Summary() string {
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range r.Phases {
		share := 0.0
		if r.TotalMS > 0 {
			share = 100 * p.DurationMS / r.TotalMS
		}
		fmt.Fprintf(&sb, "  %-16s %8.2f ms %3.0f%%", p.Name, p.DurationMS, share)
		if p.Note != "" {
			fmt.Fprintf(&sb, "  [%s]", p.Note)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "  %-16s %8.2f ms\n", "total", r.TotalMS)
	return sb.String()
}

func millis(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
