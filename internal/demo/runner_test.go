package demo_test

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"ownership/internal/demo"
	"ownership/internal/owner"
	"ownership/internal/testkit"
	"ownership/internal/trace"
)

var defaultTranscript = []string{
	"235",
	"711",
	"PrintMessage() defined in DerivedMessenger.",
	"Method called through an exclusive owner.",
	"1317",
	"Owner parameter + 10: 1729",
	"ptrBar: <empty>",
	"shared owners after 8 workers: 1",
}

func TestRunDefaultTranscript(t *testing.T) {
	var out bytes.Buffer
	h := &owner.Heap{}
	r := demo.Runner{Out: &out, Heap: h, Config: demo.DefaultConfig()}
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := testkit.CheckLedger(h); err != nil {
		t.Fatalf("ledger inconsistent after run: %v", err)
	}
	if !reflect.DeepEqual(res.Lines, defaultTranscript) {
		t.Fatalf("transcript:\n%s\nwant:\n%s", strings.Join(res.Lines, "\n"), strings.Join(defaultTranscript, "\n"))
	}
	if got := out.String(); got != strings.Join(defaultTranscript, "\n")+"\n" {
		t.Fatalf("Out got %q", got)
	}
	if len(res.Steps) != len(demo.Steps()) {
		t.Fatalf("steps = %d, want %d", len(res.Steps), len(demo.Steps()))
	}
	if res.Stats.Live != 0 || len(res.Live) != 0 {
		t.Fatalf("values survived the run: %+v", res.Live)
	}
	if res.Stats.Allocs != 8 || res.Stats.Frees != 8 {
		t.Fatalf("unexpected ledger counters: %+v", res.Stats)
	}
	if len(res.Timings.Phases) != len(res.Steps) {
		t.Fatalf("timings = %d phases, want %d", len(res.Timings.Phases), len(res.Steps))
	}
}

func TestPolymorphicStepRunsDerivedTeardown(t *testing.T) {
	steps, err := demo.Select("polymorphic")
	if err != nil {
		t.Fatal(err)
	}
	r := demo.Runner{Steps: steps, Config: demo.DefaultConfig()}
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	got := res.Steps[0].Teardowns
	want := []string{"DerivedMessenger", "BaseMessenger"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("teardowns = %v, want %v", got, want)
	}
}

func TestRunCustomValues(t *testing.T) {
	cfg := demo.DefaultConfig()
	cfg.Transfer = 100
	cfg.Offset = 1
	cfg.Copies = 5
	cfg.Workers = 3
	cfg.Shared = 42

	r := demo.Runner{Config: cfg}
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(res.Lines, "\n")
	for _, want := range []string{"Owner parameter + 1: 101", "shared owners after 3 workers: 1", "\n42\n"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("transcript missing %q:\n%s", want, joined)
		}
	}
	if res.Stats.Retains != 5+3 {
		t.Fatalf("retains = %d, want 8", res.Stats.Retains)
	}
}

func TestRunEvents(t *testing.T) {
	ch := make(chan demo.Event, 64)
	r := demo.Runner{Sink: demo.ChannelSink{Ch: ch}, Config: demo.DefaultConfig()}
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	close(ch)

	counts := map[demo.Status]int{}
	var first demo.Event
	for ev := range ch {
		if first.Step == "" {
			first = ev
		}
		counts[ev.Status]++
	}
	n := len(demo.Steps())
	if counts[demo.StatusQueued] != n || counts[demo.StatusRunning] != n || counts[demo.StatusDone] != n {
		t.Fatalf("unexpected event counts: %v", counts)
	}
	if first.Status != demo.StatusQueued || first.Step != "unique-adopt" {
		t.Fatalf("first event = %+v", first)
	}
}

func TestRunHeapLimitStopsAtStep(t *testing.T) {
	cfg := demo.DefaultConfig()
	cfg.HeapLimit = 1
	ch := make(chan demo.Event, 64)
	r := demo.Runner{Sink: demo.ChannelSink{Ch: ch}, Config: cfg}

	res, err := r.Run(context.Background())
	if !errors.Is(err, owner.ErrOutOfMemory) {
		t.Fatalf("err = %v, want ErrOutOfMemory", err)
	}
	if !strings.Contains(err.Error(), "step polymorphic") {
		t.Fatalf("error should name the step: %v", err)
	}
	if len(res.Steps) != 3 || res.Steps[2].Err == "" {
		t.Fatalf("unexpected reports: %+v", res.Steps)
	}
	if res.Stats.Live != 0 {
		t.Fatalf("failed step leaked: %+v", res.Live)
	}
	close(ch)
	var sawError bool
	for ev := range ch {
		if ev.Status == demo.StatusError {
			sawError = ev.Step == "polymorphic" && ev.Err != nil
		}
	}
	if !sawError {
		t.Fatal("expected an error event for polymorphic")
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := demo.Runner{Config: demo.DefaultConfig()}
	res, err := r.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(res.Lines) != 0 {
		t.Fatalf("canceled run printed %v", res.Lines)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := demo.DefaultConfig()
	cfg.Copies = -1
	r := demo.Runner{Config: cfg}
	if _, err := r.Run(context.Background()); err == nil {
		t.Fatal("expected an error for negative copies")
	}
}

func TestRunTracesEachStep(t *testing.T) {
	ring := trace.NewRingTracer(4096, trace.LevelDebug)
	ctx := trace.WithTracer(context.Background(), ring)
	r := demo.Runner{Config: demo.DefaultConfig()}
	if _, err := r.Run(ctx); err != nil {
		t.Fatal(err)
	}

	var began []string
	var heapEvents int
	for _, ev := range ring.Snapshot() {
		if ev.Kind == trace.KindSpanBegin && ev.Scope == trace.ScopeScenario {
			began = append(began, ev.Name)
		}
		if ev.Scope == trace.ScopeHeap {
			heapEvents++
		}
	}
	if !reflect.DeepEqual(began, demo.Names()) {
		t.Fatalf("scenario spans = %v, want %v", began, demo.Names())
	}
	if heapEvents == 0 {
		t.Fatal("expected heap events in the trace")
	}
}

func TestSelect(t *testing.T) {
	steps, err := demo.Select("transfer", "unique-adopt")
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 2 || steps[0].Name != "unique-adopt" || steps[1].Name != "transfer" {
		t.Fatalf("unexpected selection: %+v", steps)
	}
	if _, err := demo.Select("nope"); err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("expected unknown step error, got %v", err)
	}
}
