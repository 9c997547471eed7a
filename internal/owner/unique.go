package owner

import "fmt"

// Unique is the sole owner of a *T. It is either Owning a value or Empty.
// Always use it through a pointer; a value copy is rejected at the next use.
// A Unique is not safe for concurrent use.
type Unique[T any] struct {
	guard  noCopy
	ptr    *T
	name   string
	heap   *Heap
	handle Handle
	moved  bool
}

// Adopt takes ownership of an existing allocation. The caller must not keep
// another owner of p. Adopt(nil) returns an Empty owner.
// Adopt panics when the attached Heap already tracks p.
func Adopt[T any](p *T, opts ...Option) *Unique[T] {
	cfg := buildConfig(opts)
	u := &Unique[T]{name: cfg.name, heap: cfg.heap}
	u.guard.init()
	if p == nil {
		return u
	}
	handle, err := track(cfg.heap, KindUnique, p, u.label())
	if err != nil {
		panic(err)
	}
	u.ptr = p
	u.handle = handle
	return u
}

// Make allocates a T holding v and owns it from the start.
// It panics with CodeOutOfMemory when the attached Heap is full.
func Make[T any](v T, opts ...Option) *Unique[T] {
	u, err := MakeFunc(func() (*T, error) {
		p := new(T)
		*p = v
		return p, nil
	}, opts...)
	if err != nil {
		panic(err)
	}
	return u
}

// MakeFunc is the fallible form of Make: ctor builds the value, and a ctor
// error or nil result is reported as CodeOutOfMemory before any owner exists.
func MakeFunc[T any](ctor func() (*T, error), opts ...Option) (*Unique[T], error) {
	cfg := buildConfig(opts)
	name := label(cfg.name, "unique<"+typeName[T](nil)+">")
	if err := cfg.heap.admit(name); err != nil {
		return nil, err
	}
	p, err := ctor()
	if err != nil || p == nil {
		return nil, constructError(name, err)
	}
	u := &Unique[T]{name: cfg.name, heap: cfg.heap}
	u.guard.init()
	handle, err := track(cfg.heap, KindUnique, p, u.label())
	if err != nil {
		destroy(p)
		return nil, err
	}
	u.ptr = p
	u.handle = handle
	return u, nil
}

func (u *Unique[T]) label() string {
	if u == nil {
		return "<nil>"
	}
	return label(u.name, "unique<"+typeName[T](nil)+">")
}

// Name returns the label given with Named.
func (u *Unique[T]) Name() string {
	if u == nil {
		return ""
	}
	return u.name
}

// Valid reports whether u currently owns a value.
func (u *Unique[T]) Valid() bool {
	if u == nil {
		return false
	}
	u.guard.check(u.label())
	return u.ptr != nil
}

// TryGet returns the owned pointer, or a CodeNullDereference error when u is
// Empty.
func (u *Unique[T]) TryGet() (*T, error) {
	if u == nil {
		return nil, emptyOwnerError("<nil>", false)
	}
	u.guard.check(u.label())
	if u.ptr == nil {
		return nil, emptyOwnerError(u.label(), u.moved)
	}
	return u.ptr, nil
}

// Get returns the owned pointer. It panics with CodeNullDereference when u
// is Empty.
func (u *Unique[T]) Get() *T {
	p, err := u.TryGet()
	if err != nil {
		panic(err)
	}
	return p
}

// Value returns a copy of the owned value. It panics like Get.
func (u *Unique[T]) Value() T {
	return *u.Get()
}

// Move transfers ownership to a new Unique and leaves u Empty.
// Functions that take ownership accept *Unique[T] and are called as f(p.Move()).
func (u *Unique[T]) Move() *Unique[T] {
	if u == nil {
		panic(nilOwnerError("move"))
	}
	u.guard.check(u.label())
	dst := &Unique[T]{ptr: u.ptr, name: u.name, heap: u.heap, handle: u.handle}
	dst.guard.init()
	if u.ptr != nil {
		u.heap.note("move", u.label(), u.handle)
	}
	u.clear(true)
	return dst
}

// MoveTo is move-assignment: dst's current value is released, then dst takes
// over u's value and u is left Empty. dst keeps its own name.
func (u *Unique[T]) MoveTo(dst *Unique[T]) {
	if dst == nil {
		panic(newError(CodeNullDereference, u.label(), "move into nil owner"))
	}
	if u == nil {
		panic(nilOwnerError("move"))
	}
	u.guard.check(u.label())
	dst.guard.check(dst.label())
	if u == dst {
		return
	}
	dst.Release()
	if u.ptr != nil {
		u.heap.note("move", u.label(), u.handle)
	}
	dst.ptr, dst.heap, dst.handle, dst.moved = u.ptr, u.heap, u.handle, false
	u.clear(true)
}

// Detach gives up ownership without running teardown and returns the raw
// pointer; the caller becomes responsible for it. Detach on an Empty owner
// returns nil.
func (u *Unique[T]) Detach() *T {
	if u == nil {
		panic(nilOwnerError("detach"))
	}
	u.guard.check(u.label())
	p := u.ptr
	if p == nil {
		return nil
	}
	u.heap.note("detach", u.label(), u.handle)
	u.heap.forget(u.handle)
	u.clear(false)
	return p
}

// Reset releases the current value, if any, and adopts p.
// Resetting to the pointer already owned is a no-op.
func (u *Unique[T]) Reset(p *T) {
	if u == nil {
		panic(nilOwnerError("reset"))
	}
	u.guard.check(u.label())
	if p != nil && p == u.ptr {
		return
	}
	u.Release()
	if p == nil {
		return
	}
	handle, err := track(u.heap, KindUnique, p, u.label())
	if err != nil {
		panic(err)
	}
	u.ptr, u.handle, u.moved = p, handle, false
}

// Swap exchanges the owned values of u and other. Names stay put.
func (u *Unique[T]) Swap(other *Unique[T]) {
	if u == nil || other == nil {
		panic(nilOwnerError("swap"))
	}
	u.guard.check(u.label())
	other.guard.check(other.label())
	u.ptr, other.ptr = other.ptr, u.ptr
	u.heap, other.heap = other.heap, u.heap
	u.handle, other.handle = other.handle, u.handle
	u.moved, other.moved = other.moved, u.moved
}

// Share converts exclusive ownership into the first handle of a Shared owner.
// u is left Empty. Sharing an Empty owner returns an Empty Shared.
func (u *Unique[T]) Share() *Shared[T] {
	if u == nil {
		panic(nilOwnerError("share"))
	}
	u.guard.check(u.label())
	if u.ptr == nil {
		s := &Shared[T]{}
		s.guard.init()
		return s
	}
	c := &control[T]{ptr: u.ptr, heap: u.heap, handle: u.handle, name: u.name}
	c.refs.Store(1)
	u.heap.rekind(u.handle, KindShared)
	u.heap.note("share", u.label(), u.handle)
	u.clear(true)
	return newShared(c)
}

// Release tears down the owned value through its dynamic type and leaves u
// Empty. It is a no-op on an Empty owner, so it is safe to defer
// unconditionally even when ownership may have moved away.
func (u *Unique[T]) Release() {
	if u == nil {
		return
	}
	u.guard.check(u.label())
	p, handle := u.ptr, u.handle
	if p == nil {
		return
	}
	u.clear(false)
	destroy(p)
	u.heap.Release(handle)
}

// String renders the owned value, or "<empty>".
func (u *Unique[T]) String() string {
	if u == nil {
		return "<empty>"
	}
	u.guard.check(u.label())
	if u.ptr == nil {
		return "<empty>"
	}
	return fmt.Sprint(*u.ptr)
}

func (u *Unique[T]) clear(moved bool) {
	u.ptr = nil
	u.handle = 0
	u.moved = moved
}
