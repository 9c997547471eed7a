package owner_test

import (
	"errors"
	"sync"
	"testing"

	"ownership/internal/owner"
	"ownership/internal/testkit"
)

func TestSharedCopiesSeeSameValue(t *testing.T) {
	p1 := owner.MakeShared(1317)
	p2 := p1.Clone()
	p3 := p2.Clone()
	defer p1.Release()
	defer p2.Release()
	defer p3.Release()

	for i, p := range []*owner.Shared[int]{p1, p2, p3} {
		if got := p.Value(); got != 1317 {
			t.Fatalf("p%d.Value() = %d, want 1317", i+1, got)
		}
		if got := p.UseCount(); got != 3 {
			t.Fatalf("p%d.UseCount() = %d, want 3", i+1, got)
		}
	}
	if p1.Get() != p3.Get() {
		t.Fatal("copies must point at the same value")
	}
}

func TestSharedUseCountAfterNCopies(t *testing.T) {
	for _, n := range []int{0, 1, 5, 32} {
		root := owner.MakeShared("v")
		copies := make([]*owner.Shared[string], 0, n)
		for i := 0; i < n; i++ {
			copies = append(copies, root.Clone())
		}
		if got := root.UseCount(); got != int64(n+1) {
			t.Fatalf("after %d copies UseCount = %d, want %d", n, got, n+1)
		}
		for _, c := range copies {
			if c.Value() != "v" {
				t.Fatal("copy lost access to the value")
			}
			c.Release()
		}
		if got := root.UseCount(); got != 1 {
			t.Fatalf("after releasing copies UseCount = %d, want 1", got)
		}
		root.Release()
	}
}

func TestSharedTeardownRunsOnceOnLastRelease(t *testing.T) {
	destroyed := 0
	a := owner.MakeShared(resource{destroyed: &destroyed})
	b := a.Clone()
	c := b.Clone()

	a.Release()
	b.Release()
	if destroyed != 0 {
		t.Fatalf("teardown ran with an owner left: %d", destroyed)
	}
	c.Release()
	c.Release()
	if destroyed != 1 {
		t.Fatalf("teardown ran %d times, want 1", destroyed)
	}
	if a.UseCount() != 0 || a.Valid() {
		t.Fatal("released handle must be empty")
	}
}

func TestSharedAssign(t *testing.T) {
	destroyed := 0
	a := owner.MakeShared(resource{id: 1, destroyed: &destroyed})
	b := owner.MakeShared(resource{id: 2, destroyed: &destroyed})

	b.Assign(a)
	if destroyed != 1 {
		t.Fatalf("assign should release b's old value, destroyed=%d", destroyed)
	}
	if b.Get().id != 1 || a.UseCount() != 2 {
		t.Fatalf("after assign: id=%d count=%d", b.Get().id, a.UseCount())
	}
	b.Assign(b)
	if a.UseCount() != 2 {
		t.Fatalf("self assign changed count to %d", a.UseCount())
	}
	a.Release()
	b.Release()
	if destroyed != 2 {
		t.Fatalf("destroyed = %d, want 2", destroyed)
	}
}

func TestSharedMoveKeepsCount(t *testing.T) {
	a := owner.MakeShared(9, owner.Named("nine"))
	keep := a.Clone()
	b := a.Move()
	defer b.Release()
	defer keep.Release()

	if b.UseCount() != 2 {
		t.Fatalf("UseCount after move = %d, want 2", b.UseCount())
	}
	if _, err := a.TryGet(); !errors.Is(err, owner.ErrNullDereference) {
		t.Fatalf("moved-from handle err = %v", err)
	}
	if a.String() != "<empty>" || b.String() != "9" {
		t.Fatalf("String(): a=%q b=%q", a.String(), b.String())
	}
}

func TestSharedEmptyHandles(t *testing.T) {
	empty := owner.AdoptShared[int](nil)
	if empty.Valid() || empty.UseCount() != 0 {
		t.Fatal("AdoptShared(nil) should be empty")
	}
	c := empty.Clone()
	if c.Valid() {
		t.Fatal("clone of empty must be empty")
	}
	expectCode(t, owner.CodeNullDereference, func() { c.Value() })
	c.Release()
	empty.Release()
}

func TestSharedConcurrentCloneRelease(t *testing.T) {
	h := &owner.Heap{}
	destroyed := 0
	root := owner.MakeShared(resource{destroyed: &destroyed}, owner.WithHeap(h))

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c := root.Clone()
				_ = c.Get()
				c.Release()
			}
		}()
	}
	wg.Wait()
	if err := testkit.CheckLedger(h); err != nil {
		t.Fatal(err)
	}

	if root.UseCount() != 1 {
		t.Fatalf("UseCount = %d, want 1", root.UseCount())
	}
	root.Release()
	if destroyed != 1 {
		t.Fatalf("teardown ran %d times, want 1", destroyed)
	}
	st := h.Stats()
	if st.Retains != workers*100 || st.Releases != workers*100+1 {
		t.Fatalf("unexpected ledger counters: %+v", st)
	}
	if err := h.CheckLeaks(); err != nil {
		t.Fatal(err)
	}
}

func TestSharedIndependentAdoptionDetectedByHeap(t *testing.T) {
	h := &owner.Heap{}
	v := 7
	first := owner.AdoptShared(&v, owner.WithHeap(h), owner.Named("first"))
	defer first.Release()

	err := expectCode(t, owner.CodeInvariantViolation, func() {
		owner.AdoptShared(&v, owner.WithHeap(h), owner.Named("second"))
	})
	if err.Owner != "second" {
		t.Fatalf("error owner = %q, want second", err.Owner)
	}
	if first.UseCount() != 1 {
		t.Fatal("failed adoption must not touch the first owner")
	}
}

func TestMakeSharedFuncFailure(t *testing.T) {
	_, err := owner.MakeSharedFunc(func() (*int, error) { return nil, errors.New("boom") })
	if !errors.Is(err, owner.ErrOutOfMemory) {
		t.Fatalf("err = %v, want ErrOutOfMemory", err)
	}
}

func TestSharedNilOwnerPanicsWithCode(t *testing.T) {
	var s *owner.Shared[int]
	live := owner.MakeShared(5)
	defer live.Release()

	expectCode(t, owner.CodeNullDereference, func() { s.Clone() })
	expectCode(t, owner.CodeNullDereference, func() { s.Move() })
	expectCode(t, owner.CodeNullDereference, func() { s.Assign(live) })
	expectCode(t, owner.CodeNullDereference, func() { live.Assign(s) })
	if live.UseCount() != 1 || live.Value() != 5 {
		t.Fatalf("live handle changed: count=%d", live.UseCount())
	}
}

func TestSharedStringRejectsCopy(t *testing.T) {
	s := owner.MakeShared(7, owner.Named("s"))
	cp := *s //nolint:govet // the copy is the point of the test
	s.Release()

	expectCode(t, owner.CodeInvariantViolation, func() { _ = cp.String() })
	if s.String() != "<empty>" {
		t.Fatalf("released handle renders %q", s.String())
	}
}
