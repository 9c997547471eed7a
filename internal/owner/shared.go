package owner

import (
	"fmt"
	"sync/atomic"
)

// control is the block shared by every handle to one value.
type control[T any] struct {
	ptr    *T
	refs   atomic.Int64
	heap   *Heap
	handle Handle
	name   string
}

// Shared is one owning handle to a value that may have several owners. The
// value is torn down when the last handle is released.
//
// Counting is atomic, so handles to the same value may be cloned and
// released on different goroutines. Clone, Get and UseCount may run
// concurrently on one handle; Release, Move and Assign may not.
type Shared[T any] struct {
	guard noCopy
	ctrl  *control[T]
	moved bool
}

func newShared[T any](c *control[T]) *Shared[T] {
	s := &Shared[T]{ctrl: c}
	s.guard.init()
	return s
}

// AdoptShared takes ownership of an existing allocation with a count of 1.
// Adopting the same pointer into two independent Shared owners is a caller
// bug; only an attached Heap detects it (the call panics).
func AdoptShared[T any](p *T, opts ...Option) *Shared[T] {
	cfg := buildConfig(opts)
	if p == nil {
		s := &Shared[T]{}
		s.guard.init()
		return s
	}
	c := &control[T]{ptr: p, heap: cfg.heap, name: cfg.name}
	handle, err := track(cfg.heap, KindShared, p, c.label())
	if err != nil {
		panic(err)
	}
	c.handle = handle
	c.refs.Store(1)
	return newShared(c)
}

// MakeShared allocates a T holding v with a count of 1.
func MakeShared[T any](v T, opts ...Option) *Shared[T] {
	s, err := MakeSharedFunc(func() (*T, error) {
		p := new(T)
		*p = v
		return p, nil
	}, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// MakeSharedFunc is the fallible form of MakeShared.
func MakeSharedFunc[T any](ctor func() (*T, error), opts ...Option) (*Shared[T], error) {
	cfg := buildConfig(opts)
	c := &control[T]{heap: cfg.heap, name: cfg.name}
	if err := cfg.heap.admit(c.label()); err != nil {
		return nil, err
	}
	p, err := ctor()
	if err != nil || p == nil {
		return nil, constructError(c.label(), err)
	}
	handle, err := track(cfg.heap, KindShared, p, c.label())
	if err != nil {
		destroy(p)
		return nil, err
	}
	c.ptr = p
	c.handle = handle
	c.refs.Store(1)
	return newShared(c), nil
}

func (c *control[T]) label() string {
	return label(c.name, "shared<"+typeName[T](nil)+">")
}

func (s *Shared[T]) label() string {
	if s == nil {
		return "<nil>"
	}
	if s.ctrl != nil {
		return s.ctrl.label()
	}
	return "shared<" + typeName[T](nil) + ">"
}

// Valid reports whether s currently owns a value.
func (s *Shared[T]) Valid() bool {
	if s == nil {
		return false
	}
	s.guard.check(s.label())
	return s.ctrl != nil
}

// UseCount returns the number of live handles to the value, or 0 when s is
// Empty. Diagnostic only: under concurrent use the number may be stale.
func (s *Shared[T]) UseCount() int64 {
	if s == nil {
		return 0
	}
	s.guard.check(s.label())
	if s.ctrl == nil {
		return 0
	}
	return s.ctrl.refs.Load()
}

// TryGet returns the shared pointer, or a CodeNullDereference error when s
// is Empty.
func (s *Shared[T]) TryGet() (*T, error) {
	if s == nil {
		return nil, emptyOwnerError("<nil>", false)
	}
	s.guard.check(s.label())
	if s.ctrl == nil {
		return nil, emptyOwnerError(s.label(), s.moved)
	}
	return s.ctrl.ptr, nil
}

// Get returns the shared pointer. It panics with CodeNullDereference when s
// is Empty.
func (s *Shared[T]) Get() *T {
	p, err := s.TryGet()
	if err != nil {
		panic(err)
	}
	return p
}

// Value returns a copy of the shared value. It panics like Get.
func (s *Shared[T]) Value() T {
	return *s.Get()
}

// Clone returns a new owning handle to the same value and increments the
// count. Cloning an Empty handle returns an Empty handle.
func (s *Shared[T]) Clone() *Shared[T] {
	if s == nil {
		panic(nilOwnerError("clone"))
	}
	s.guard.check(s.label())
	c := s.ctrl
	if c == nil {
		e := &Shared[T]{}
		e.guard.init()
		return e
	}
	c.acquire()
	c.heap.note("clone", c.label(), c.handle)
	return newShared(c)
}

// Assign is copy-assignment: s releases its current value, if any, and
// becomes another owner of src's value.
func (s *Shared[T]) Assign(src *Shared[T]) {
	if s == nil || src == nil {
		panic(nilOwnerError("assign"))
	}
	s.guard.check(s.label())
	src.guard.check(src.label())
	if s.ctrl == src.ctrl {
		return
	}
	if src.ctrl != nil {
		src.ctrl.acquire()
		src.ctrl.heap.note("clone", src.ctrl.label(), src.ctrl.handle)
	}
	s.Release()
	s.ctrl = src.ctrl
	s.moved = false
}

// Move transfers this handle without changing the count and leaves s Empty.
func (s *Shared[T]) Move() *Shared[T] {
	if s == nil {
		panic(nilOwnerError("move"))
	}
	s.guard.check(s.label())
	c := s.ctrl
	s.ctrl = nil
	s.moved = true
	if c == nil {
		e := &Shared[T]{}
		e.guard.init()
		return e
	}
	c.heap.note("move", c.label(), c.handle)
	return newShared(c)
}

// Release drops this handle. When it was the last one the value is torn
// down exactly once. Releasing an Empty handle is a no-op.
func (s *Shared[T]) Release() {
	if s == nil {
		return
	}
	s.guard.check(s.label())
	c := s.ctrl
	if c == nil {
		return
	}
	s.ctrl = nil

	n := c.refs.Add(-1)
	switch {
	case n > 0:
		c.heap.Release(c.handle)
	case n == 0:
		p := c.ptr
		c.ptr = nil
		destroy(p)
		c.heap.Release(c.handle)
	default:
		panic(newError(CodeInvariantViolation, c.label(),
			fmt.Sprintf("shared count of %q dropped below zero (%d)", c.label(), n)))
	}
}

// String renders the shared value, or "<empty>".
func (s *Shared[T]) String() string {
	if s == nil {
		return "<empty>"
	}
	s.guard.check(s.label())
	if s.ctrl == nil || s.ctrl.ptr == nil {
		return "<empty>"
	}
	return fmt.Sprint(*s.ctrl.ptr)
}

// acquire adds one owner. A block whose count already reached zero has been
// torn down and cannot be revived.
func (c *control[T]) acquire() {
	for {
		n := c.refs.Load()
		if n <= 0 {
			panic(newError(CodeInvariantViolation, c.label(),
				fmt.Sprintf("clone of %q after its last owner released it", c.label())))
		}
		if c.refs.CompareAndSwap(n, n+1) {
			break
		}
	}
	c.heap.Retain(c.handle)
}
