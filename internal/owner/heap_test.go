package owner_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"ownership/internal/owner"
	"ownership/internal/trace"
)

func TestHeapCountersFollowOwners(t *testing.T) {
	h := &owner.Heap{}
	a := owner.Make(1, owner.WithHeap(h), owner.Named("a"))
	s := owner.MakeShared(2, owner.WithHeap(h), owner.Named("s"))
	c := s.Clone()

	st := h.Stats()
	if st.Allocs != 2 || st.Live != 2 || st.Retains != 1 {
		t.Fatalf("stats after alloc: %+v", st)
	}
	live := h.Live()
	if len(live) != 2 || live[0].Kind != owner.KindUnique || live[1].RefCount != 2 {
		t.Fatalf("unexpected live records: %v", live)
	}

	a.Release()
	s.Release()
	c.Release()
	st = h.Stats()
	if st.Frees != 2 || st.Live != 0 || st.PeakLive != 2 || st.Releases != 3 {
		t.Fatalf("stats after release: %+v", st)
	}
	if err := h.CheckLeaks(); err != nil {
		t.Fatal(err)
	}
}

func TestHeapReleaseAfterFreePanics(t *testing.T) {
	h := &owner.Heap{}
	p := owner.Make(3, owner.WithHeap(h))
	obj := h.Live()[0]
	p.Release()

	err := expectCode(t, owner.CodeUseAfterFree, func() { h.Release(obj.Handle) })
	if !strings.Contains(err.Message, "already freed") {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	expectCode(t, owner.CodeUseAfterFree, func() { h.Retain(obj.Handle) })
	expectCode(t, owner.CodeDoubleFree, func() { h.Free(obj.Handle) })
}

func TestHeapInvalidHandle(t *testing.T) {
	h := &owner.Heap{}
	expectCode(t, owner.CodeInvalidHandle, func() { h.Free(42) })
	if _, ok := h.Lookup(42); ok {
		t.Fatal("lookup of unknown handle should fail")
	}
}

func TestHeapNilIsNoop(t *testing.T) {
	var h *owner.Heap
	h.Retain(1)
	h.Release(1)
	h.Free(1)
	if h.Stats() != (owner.Stats{}) || h.Live() != nil || h.CheckLeaks() != nil {
		t.Fatal("nil heap should report nothing")
	}
}

func TestHeapLeakReport(t *testing.T) {
	h := &owner.Heap{}
	a := owner.Make("x", owner.WithHeap(h), owner.Named("kept"))
	s := owner.MakeShared(1, owner.WithHeap(h))

	err := h.CheckLeaks()
	if !errors.Is(err, owner.ErrHeapLeak) {
		t.Fatalf("err = %v, want ErrHeapLeak", err)
	}
	msg := err.Error()
	for _, want := range []string{
		"OWN2004",
		"2 objects still alive",
		"shared=1, unique=1",
		"unique#1(rc=1,type=string,owner=kept)",
		"shared#2(rc=1,type=int,owner=shared<int>)",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("leak message %q missing %q", msg, want)
		}
	}

	var buf bytes.Buffer
	if err := h.Dump(&buf); err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 2 {
		t.Fatalf("dump has %d lines, want 2:\n%s", lines, buf.String())
	}
	a.Release()
	s.Release()
}

func TestHeapLimit(t *testing.T) {
	h := &owner.Heap{Limit: 1}
	a := owner.Make(1, owner.WithHeap(h))
	defer a.Release()

	_, err := owner.MakeFunc(func() (*int, error) {
		t.Fatal("constructor must not run past the limit")
		return nil, nil
	}, owner.WithHeap(h))
	if !errors.Is(err, owner.ErrOutOfMemory) {
		t.Fatalf("err = %v, want ErrOutOfMemory", err)
	}
	expectCode(t, owner.CodeOutOfMemory, func() { owner.MakeShared(2, owner.WithHeap(h)) })
}

func TestHeapDuplicateAdoption(t *testing.T) {
	h := &owner.Heap{}
	v := 5
	first := owner.Adopt(&v, owner.WithHeap(h), owner.Named("first"))
	defer first.Release()

	err := expectCode(t, owner.CodeInvariantViolation, func() {
		owner.Adopt(&v, owner.WithHeap(h), owner.Named("second"))
	})
	if !strings.Contains(err.Message, `already owned by unique#1 (owner "first")`) {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	if h.Stats().Live != 1 {
		t.Fatal("rejected adoption must not create a record")
	}
}

func TestHeapTraceEvents(t *testing.T) {
	ring := trace.NewRingTracer(64, trace.LevelDebug)
	h := &owner.Heap{Tracer: ring}

	s := owner.MakeShared(1, owner.WithHeap(h), owner.Named("p1"))
	c := s.Clone()
	s.Release()
	c.Release()

	var names []string
	for _, ev := range ring.Snapshot() {
		names = append(names, ev.Name)
	}
	got := strings.Join(names, ",")
	want := "alloc,retain,clone,release,release,free"
	if got != want {
		t.Fatalf("events = %s, want %s", got, want)
	}
}
