package demo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"ownership/internal/owner"
	"ownership/internal/trace"
)

// Step is one scenario of the walk-through. Each step runs in its own scope
// and releases everything it created before returning.
type Step struct {
	Name  string
	Title string
	run   func(*env) error
}

// env is what a step sees while it runs.
type env struct {
	ctx       context.Context
	w         io.Writer
	cfg       Config
	heap      *owner.Heap
	tracer    trace.Tracer
	teardowns []string
}

func (e *env) opts(name string) []owner.Option {
	return []owner.Option{owner.WithHeap(e.heap), owner.Named(name)}
}

// Steps returns the scenarios in walk-through order.
func Steps() []Step {
	return []Step{
		{Name: "unique-adopt", Title: "exclusive owner adopts a raw allocation", run: uniqueAdopt},
		{Name: "unique-make", Title: "exclusive owner built in place", run: uniqueMake},
		{Name: "polymorphic", Title: "base-typed owner holding a derived value", run: polymorphic},
		{Name: "method-call", Title: "method call through an exclusive owner", run: methodCall},
		{Name: "shared", Title: "one value, several shared owners", run: shared},
		{Name: "transfer", Title: "exclusive owner passed by transfer", run: transfer},
		{Name: "shared-workers", Title: "shared owners cloned across goroutines", run: sharedWorkers},
	}
}

// Select returns the named steps in walk-through order. No names selects all.
func Select(names ...string) ([]Step, error) {
	all := Steps()
	if len(names) == 0 {
		return all, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.TrimSpace(n)] = true
	}
	out := make([]Step, 0, len(names))
	for _, s := range all {
		if want[s.Name] {
			out = append(out, s)
			delete(want, s.Name)
		}
	}
	if len(want) > 0 {
		unknown := make([]string, 0, len(want))
		for n := range want {
			unknown = append(unknown, n)
		}
		return nil, fmt.Errorf("unknown step(s): %s (known: %s)", strings.Join(unknown, ", "), strings.Join(Names(), ", "))
	}
	return out, nil
}

// Names lists every step name.
func Names() []string {
	all := Steps()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name
	}
	return names
}

// exec runs the step and turns an ownership panic into an error.
func (s Step) exec(e *env) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = owner.Recover(r)
		}
	}()
	return s.run(e)
}

func uniqueAdopt(e *env) error {
	raw := new(int)
	*raw = e.cfg.Unique
	p := owner.Adopt(raw, e.opts("p")...)
	defer p.Release()

	fmt.Fprintln(e.w, p.Value())
	return nil
}

func uniqueMake(e *env) error {
	pp := owner.Make(e.cfg.Factory, e.opts("pp")...)
	defer pp.Release()

	fmt.Fprintln(e.w, pp.Value())
	return nil
}

func polymorphic(e *env) error {
	onDestroy := func(typeName string) {
		e.teardowns = append(e.teardowns, typeName)
		trace.Point(e.tracer, trace.ScopeOwner, "teardown", typeName)
	}
	derived := NewDerivedMessenger(onDestroy, owner.WithHeap(e.heap))
	ppp, err := owner.MakeFunc(func() (*Messenger, error) {
		var m Messenger = derived
		return &m, nil
	}, e.opts("ppp")...)
	if err != nil {
		derived.Destroy()
		return err
	}
	defer ppp.Release()

	ppp.Value().PrintMessage(e.w)
	return nil
}

func methodCall(e *env) error {
	sObj := owner.Adopt(new(SomeObject), e.opts("sObj")...)
	defer sObj.Release()

	sObj.Get().SomeMethod(e.w)
	return nil
}

func shared(e *env) error {
	p1 := owner.MakeShared(e.cfg.Shared, e.opts("p1")...)
	defer p1.Release()

	owners := []*owner.Shared[int]{p1}
	for i := 0; i < e.cfg.Copies; i++ {
		c := owners[len(owners)-1].Clone()
		defer c.Release()
		owners = append(owners, c)
	}

	want := int64(e.cfg.Copies + 1)
	for i, o := range owners {
		if n := o.UseCount(); n != want {
			return fmt.Errorf("%w: owner %d reports use count %d, want %d", owner.ErrInvariantViolation, i+1, n, want)
		}
		if v := o.Value(); v != e.cfg.Shared {
			return fmt.Errorf("%w: owner %d reads %d, want %d", owner.ErrInvariantViolation, i+1, v, e.cfg.Shared)
		}
	}
	fmt.Fprintln(e.w, owners[len(owners)-1].Value())
	return nil
}

// acceptParameter takes ownership of ptr and releases it before returning.
func acceptParameter(w io.Writer, ptr *owner.Unique[int], offset int) {
	defer ptr.Release()
	*ptr.Get() += offset
	fmt.Fprintf(w, "Owner parameter + %d: %d\n", offset, ptr.Value())
}

func transfer(e *env) error {
	ptrBar := owner.Make(e.cfg.Transfer, e.opts("ptrBar")...)
	defer ptrBar.Release()

	acceptParameter(e.w, ptrBar.Move(), e.cfg.Offset)

	if _, err := ptrBar.TryGet(); !errors.Is(err, owner.ErrNullDereference) {
		return fmt.Errorf("%w: ptrBar still owns a value after transfer", owner.ErrInvariantViolation)
	}
	fmt.Fprintf(e.w, "ptrBar: %s\n", ptrBar)
	return nil
}

func sharedWorkers(e *env) error {
	root := owner.MakeShared(e.cfg.Shared, e.opts("root")...)
	defer root.Release()

	g, gctx := errgroup.WithContext(e.ctx)
	for i := 0; i < e.cfg.Workers; i++ {
		i := i // per-iteration copy (go.mod targets go 1.21 loop semantics)
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = owner.Recover(r)
				}
			}()
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			span := trace.Begin(e.tracer, trace.ScopeOwner, fmt.Sprintf("worker %d", i), trace.ParentSpan(gctx))
			defer span.End("")
			c := root.Clone()
			defer c.Release()
			if v := c.Value(); v != e.cfg.Shared {
				return fmt.Errorf("worker %d read %d, want %d", i, v, e.cfg.Shared)
			}
			span.WithExtra("owners", fmt.Sprint(c.UseCount()))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Fprintf(e.w, "shared owners after %d workers: %d\n", e.cfg.Workers, root.UseCount())
	return nil
}
