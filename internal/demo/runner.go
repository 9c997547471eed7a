package demo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"ownership/internal/observ"
	"ownership/internal/owner"
	"ownership/internal/trace"
)

// Runner executes steps against one ledger and collects their transcript.
type Runner struct {
	// Out receives the transcript as it is printed; may be nil.
	Out io.Writer
	// Heap is the ledger owners are recorded in. When nil, Run creates one
	// with Config.HeapLimit.
	Heap *owner.Heap
	// Tracer falls back to the tracer attached to the context.
	Tracer trace.Tracer
	// Sink receives progress events; may be nil.
	Sink Sink
	// Steps to run; nil runs Steps().
	Steps  []Step
	Config Config
}

// StepReport is the outcome of one step.
type StepReport struct {
	Name      string        `json:"name"`
	Title     string        `json:"title"`
	Lines     []string      `json:"lines"`
	Teardowns []string      `json:"teardowns,omitempty"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	Err       string        `json:"error,omitempty"`
}

// Result is the outcome of a run. It is returned even when Run fails, with
// the steps that ran so far.
type Result struct {
	Lines   []string       `json:"lines"`
	Steps   []StepReport   `json:"steps"`
	Stats   owner.Stats    `json:"stats"`
	Live    []owner.Object `json:"live,omitempty"`
	Timings observ.Report  `json:"timings"`
}

// Run executes the steps in order. It stops at the first failing step, and
// with Config.CheckLeaks it fails with a HeapLeak error when any owned value
// outlives its step.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := r.Config.Validate(); err != nil {
		return nil, err
	}
	tracer := r.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}
	heap := r.Heap
	if heap == nil {
		heap = &owner.Heap{Limit: r.Config.HeapLimit}
	}
	if heap.Tracer == nil {
		heap.Tracer = tracer
	}
	sink := r.Sink
	if sink == nil {
		sink = NopSink{}
	}
	steps := r.Steps
	if steps == nil {
		steps = Steps()
	}

	out := &transcript{out: r.Out}
	timer := observ.NewTimer()
	res := &Result{Steps: make([]StepReport, 0, len(steps))}
	finish := func() {
		res.Stats = heap.Stats()
		res.Live = heap.Live()
		res.Timings = timer.Report()
	}

	runSpan := trace.Begin(tracer, trace.ScopeRun, "demo", trace.ParentSpan(ctx))
	for _, s := range steps {
		sink.OnEvent(Event{Step: s.Name, Status: StatusQueued})
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			runSpan.End("canceled")
			finish()
			return res, err
		}
		sink.OnEvent(Event{Step: s.Name, Status: StatusRunning})
		idx := timer.Begin(s.Name)
		span := trace.Begin(tracer, trace.ScopeScenario, s.Name, runSpan.ID())
		start := time.Now()

		e := &env{
			ctx:    trace.WithParent(ctx, span.ID()),
			w:      out,
			cfg:    r.Config,
			heap:   heap,
			tracer: tracer,
		}
		err := s.exec(e)
		elapsed := time.Since(start)

		rep := StepReport{
			Name:      s.Name,
			Title:     s.Title,
			Lines:     out.take(),
			Teardowns: e.teardowns,
			Elapsed:   elapsed,
		}
		res.Lines = append(res.Lines, rep.Lines...)
		if err != nil {
			rep.Err = err.Error()
			res.Steps = append(res.Steps, rep)
			timer.End(idx, "error")
			span.WithExtra("error", err.Error()).End("error")
			sink.OnEvent(Event{Step: s.Name, Status: StatusError, Err: err, Elapsed: elapsed})
			runSpan.End("error")
			finish()
			return res, fmt.Errorf("step %s: %w", s.Name, err)
		}
		res.Steps = append(res.Steps, rep)
		timer.End(idx, "")
		span.End("ok")
		sink.OnEvent(Event{Step: s.Name, Status: StatusDone, Elapsed: elapsed})
	}

	finish()
	if r.Config.CheckLeaks {
		if err := heap.CheckLeaks(); err != nil {
			runSpan.End("leak")
			return res, err
		}
	}
	runSpan.End("ok")
	return res, nil
}

// transcript tees step output to Out and keeps it for the report.
type transcript struct {
	mu  sync.Mutex
	out io.Writer
	buf bytes.Buffer
}

func (t *transcript) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if t.out != nil {
		return t.out.Write(p)
	}
	return len(p), nil
}

// take returns the lines written since the last call.
func (t *transcript) take() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	text := strings.TrimRight(t.buf.String(), "\n")
	t.buf.Reset()
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
