package demo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ownership/internal/owner"
)

func leakyStep() Step {
	return Step{Name: "leaky", Title: "forgets to release", run: func(e *env) error {
		owner.Make(1, e.opts("leaked")...)
		return nil
	}}
}

func TestRunReportsLeak(t *testing.T) {
	r := Runner{Steps: []Step{leakyStep()}, Config: DefaultConfig()}
	res, err := r.Run(context.Background())
	if !errors.Is(err, owner.ErrHeapLeak) {
		t.Fatalf("err = %v, want ErrHeapLeak", err)
	}
	if len(res.Live) != 1 || res.Live[0].Owner != "leaked" {
		t.Fatalf("live = %+v", res.Live)
	}
}

func TestRunWithoutLeakCheck(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CheckLeaks = false
	r := Runner{Steps: []Step{leakyStep()}, Config: cfg}
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.Live != 1 {
		t.Fatalf("live = %d, want 1", res.Stats.Live)
	}
}

func TestStepPanicBecomesError(t *testing.T) {
	s := Step{Name: "empty", run: func(e *env) error {
		p := owner.Make(1)
		q := p.Move()
		defer q.Release()
		_ = p.Value()
		return nil
	}}
	err := s.exec(&env{ctx: context.Background()})
	if !errors.Is(err, owner.ErrNullDereference) {
		t.Fatalf("err = %v, want ErrNullDereference", err)
	}
}

func TestNilOwnerInStepBecomesError(t *testing.T) {
	s := Step{Name: "nil-move", run: func(e *env) error {
		var p *owner.Unique[int]
		q := p.Move()
		defer q.Release()
		return nil
	}}
	err := s.exec(&env{ctx: context.Background()})
	if !errors.Is(err, owner.ErrNullDereference) {
		t.Fatalf("err = %v, want ErrNullDereference", err)
	}
}

func TestAcceptParameterReleasesOwner(t *testing.T) {
	h := &owner.Heap{}
	var sb strings.Builder
	p := owner.Make(1719, owner.WithHeap(h))
	acceptParameter(&sb, p.Move(), 10)
	if sb.String() != "Owner parameter + 10: 1729\n" {
		t.Fatalf("printed %q", sb.String())
	}
	if p.Valid() {
		t.Fatal("source must be empty after transfer")
	}
	if err := h.CheckLeaks(); err != nil {
		t.Fatal(err)
	}
}

func TestMethodCallAdoptsRawObject(t *testing.T) {
	h := &owner.Heap{}
	var sb strings.Builder
	e := &env{ctx: context.Background(), w: &sb, cfg: DefaultConfig(), heap: h}
	if err := methodCall(e); err != nil {
		t.Fatal(err)
	}
	if sb.String() != "Method called through an exclusive owner.\n" {
		t.Fatalf("output = %q", sb.String())
	}
	st := h.Stats()
	if st.Allocs != 1 || st.Frees != 1 || st.Live != 0 {
		t.Fatalf("stats = %+v", st)
	}
	if obj, ok := h.Lookup(1); !ok || obj.Owner != "sObj" || obj.Type != "demo.SomeObject" {
		t.Fatalf("record = %+v", obj)
	}
}
