package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"

	"ownership/internal/demo"
	"ownership/internal/snapshot"
)

func TestProgressModelTracksSteps(t *testing.T) {
	steps := demo.Steps()
	m := NewProgressModel("demo", steps, nil).(*progressModel)

	m.applyEvent(demo.Event{Step: "unique-adopt", Status: demo.StatusDone})
	m.applyEvent(demo.Event{Step: "unique-make", Status: demo.StatusRunning})
	m.applyEvent(demo.Event{Step: "unknown", Status: demo.StatusDone})

	want := 1.5 / float64(len(steps))
	if got := m.percent(); got != want {
		t.Fatalf("percent = %v, want %v", got, want)
	}

	m.applyEvent(demo.Event{Step: "polymorphic", Status: demo.StatusError})
	m.done = true
	view := m.View()
	if !strings.Contains(view, "failed: demo (polymorphic)") {
		t.Fatalf("view should name the failed step:\n%s", view)
	}
	if !strings.Contains(view, "unique-adopt") {
		t.Fatalf("view should list steps:\n%s", view)
	}
}

func TestProgressViewShowsElapsedAndError(t *testing.T) {
	m := NewProgressModel("demo", demo.Steps(), nil).(*progressModel)
	m.applyEvent(demo.Event{Step: "unique-adopt", Status: demo.StatusDone, Elapsed: 1500 * time.Microsecond})
	m.applyEvent(demo.Event{Step: "polymorphic", Status: demo.StatusError, Err: errors.New("boom")})
	m.done = true

	view := m.View()
	if !strings.Contains(view, "(1.5ms)") {
		t.Fatalf("view should show elapsed time of finished steps:\n%s", view)
	}
	if !strings.Contains(view, "boom") {
		t.Fatalf("view should show the step error:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exclusive-owner", 10, "exclusi..."},
		{"abcdef", 2, "ab"},
		{"anything", 0, "anything"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.width); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}

func TestTruncateFillsWidth(t *testing.T) {
	line := "PrintMessage() defined in DerivedMessenger."
	for _, width := range []int{4, 10, 20, 42} {
		got := truncate(line, width)
		if w := runewidth.StringWidth(got); w != width {
			t.Fatalf("truncate(_, %d) = %q, width %d", width, got, w)
		}
		if !strings.HasSuffix(got, "...") {
			t.Fatalf("truncate(_, %d) = %q, want ... tail", width, got)
		}
	}
}

func TestRenderSnapshotNarrow(t *testing.T) {
	snap := &snapshot.Snapshot{
		Schema: snapshot.SchemaVersion,
		Steps: []snapshot.Step{
			{Name: "polymorphic", Lines: []string{"PrintMessage() defined in DerivedMessenger."}},
		},
	}
	out := RenderSnapshot(snap, 26)
	if !strings.Contains(out, "      PrintMessage() de...\n") {
		t.Fatalf("line not cut to 20 columns:\n%s", out)
	}
}

func TestRenderSnapshot(t *testing.T) {
	snap := &snapshot.Snapshot{
		Schema:    snapshot.SchemaVersion,
		Tool:      "ownership",
		Version:   "test",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Stats:     snapshot.Stats{Allocs: 8, Frees: 7, Live: 1},
		Steps: []snapshot.Step{
			{Name: "polymorphic", Lines: []string{"PrintMessage() defined in DerivedMessenger."}, Teardowns: []string{"DerivedMessenger", "BaseMessenger"}},
			{Name: "transfer", Err: "OWN1001: boom"},
		},
		Live: []snapshot.Object{{Handle: 3, Kind: "unique", Type: "int", Owner: "leaked", RefCount: 1}},
	}
	out := RenderSnapshot(snap, 0)
	for _, want := range []string{
		"2026-01-02 03:04:05 UTC",
		"DerivedMessenger -> BaseMessenger",
		"OWN1001: boom",
		"1 objects still alive",
		"unique#3 rc=1 type=int owner=leaked",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
}
