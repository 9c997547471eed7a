package owner

import (
	"fmt"
	"sync"
	"unsafe"

	"ownership/internal/trace"
)

// Handle identifies a ledger record. Handles are monotonically increasing
// and never reused within one Heap; Handle(0) is always invalid.
type Handle uint32

// Kind tells which container owns a record.
type Kind uint8

const (
	KindUnique Kind = iota + 1
	KindShared
)

func (k Kind) String() string {
	switch k {
	case KindUnique:
		return "unique"
	case KindShared:
		return "shared"
	default:
		return "object"
	}
}

// MarshalText renders the kind by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Object is one ledger record.
type Object struct {
	Handle   Handle `json:"handle"`
	AllocID  uint64 `json:"alloc_id"`
	Kind     Kind   `json:"kind"`
	Type     string `json:"type"`
	Owner    string `json:"owner"`
	RefCount uint32 `json:"rc"`
	Alive    bool   `json:"alive"`

	addr uintptr
}

// Heap is an optional allocation ledger shared by owners created WithHeap.
// The zero value is ready to use. A nil *Heap ignores every call, which is
// how owners without a ledger run.
type Heap struct {
	// Limit caps the number of live records; 0 means unlimited.
	Limit int
	// Tracer receives alloc/retain/release/free events.
	Tracer trace.Tracer

	mu          sync.Mutex
	next        Handle
	nextAllocID uint64
	objs        map[Handle]*Object
	addrs       map[uintptr]Handle
	live        int
	counters    heapCounters
}

type heapCounters struct {
	allocs   uint64
	frees    uint64
	retains  uint64
	releases uint64
	detaches uint64
	peakLive int
}

func (h *Heap) initIfNeeded() {
	if h.objs == nil {
		h.objs = make(map[Handle]*Object, 32)
		h.addrs = make(map[uintptr]Handle, 32)
	}
	if h.next == 0 {
		h.next = 1
	}
	if h.nextAllocID == 0 {
		h.nextAllocID = 1
	}
}

// admit reports whether one more record fits under Limit.
func (h *Heap) admit(owner string) error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.admitLocked(owner)
}

func (h *Heap) admitLocked(owner string) error {
	if h.Limit > 0 && h.live >= h.Limit {
		return newError(CodeOutOfMemory, owner,
			fmt.Sprintf("heap limit reached: %d live objects (limit %d)", h.live, h.Limit))
	}
	return nil
}

// track records a new allocation owned by kind.
func track[T any](h *Heap, kind Kind, p *T, owner string) (Handle, error) {
	if h == nil || p == nil {
		return 0, nil
	}
	var addr uintptr
	if unsafe.Sizeof(*p) > 0 {
		addr = uintptr(unsafe.Pointer(p))
	}
	return h.alloc(kind, typeName(p), owner, addr)
}

func (h *Heap) alloc(kind Kind, typ, owner string, addr uintptr) (Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.initIfNeeded()

	if addr != 0 {
		if prev, ok := h.addrs[addr]; ok {
			obj := h.objs[prev]
			return 0, newError(CodeInvariantViolation, owner, fmt.Sprintf(
				"%s already owned by %s#%d (owner %q); construct a second owner with Clone, not from the raw pointer",
				typ, obj.Kind, prev, obj.Owner))
		}
	}
	if err := h.admitLocked(owner); err != nil {
		return 0, err
	}

	handle := h.next
	h.next++
	obj := &Object{
		Handle:   handle,
		AllocID:  h.nextAllocID,
		Kind:     kind,
		Type:     typ,
		Owner:    owner,
		RefCount: 1,
		Alive:    true,
		addr:     addr,
	}
	h.nextAllocID++
	h.objs[handle] = obj
	if addr != 0 {
		h.addrs[addr] = handle
	}
	h.live++
	if h.live > h.counters.peakLive {
		h.counters.peakLive = h.live
	}
	h.counters.allocs++

	trace.Point(h.Tracer, trace.ScopeHeap, "alloc", owner,
		"handle", fmt.Sprint(handle), "kind", kind.String(), "type", typ)
	return handle, nil
}

// getLocked validates handle and returns its live record.
func (h *Heap) getLocked(handle Handle, op string) *Object {
	h.initIfNeeded()
	if handle == 0 {
		panic(newError(CodeInvalidHandle, "", fmt.Sprintf("%s: invalid handle 0", op)))
	}
	obj, ok := h.objs[handle]
	if !ok || obj == nil {
		panic(newError(CodeInvalidHandle, "", fmt.Sprintf("%s: invalid handle %d", op, handle)))
	}
	if !obj.Alive {
		code := CodeUseAfterFree
		if op == "free" {
			code = CodeDoubleFree
		}
		panic(newError(code, obj.Owner, fmt.Sprintf("%s: %s#%d (alloc=%d) already freed", op, obj.Kind, handle, obj.AllocID)))
	}
	return obj
}

// Lookup returns a copy of the record for handle.
func (h *Heap) Lookup(handle Handle) (Object, bool) {
	if h == nil {
		return Object{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.initIfNeeded()
	obj, ok := h.objs[handle]
	if !ok || obj == nil {
		return Object{}, false
	}
	return *obj, true
}

// Retain adds one owner to a live record.
func (h *Heap) Retain(handle Handle) {
	if h == nil || handle == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	obj := h.getLocked(handle, "retain")
	obj.RefCount++
	h.counters.retains++
	trace.Point(h.Tracer, trace.ScopeHeap, "retain", obj.Owner,
		"handle", fmt.Sprint(handle), "rc", fmt.Sprint(obj.RefCount))
}

// Release drops one owner and frees the record when none remain.
// Releasing a freed record panics with CodeUseAfterFree.
func (h *Heap) Release(handle Handle) {
	if h == nil || handle == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	obj := h.getLocked(handle, "release")
	if obj.RefCount == 0 {
		panic(newError(CodeInvariantViolation, obj.Owner,
			fmt.Sprintf("release: %s#%d has no owners left", obj.Kind, handle)))
	}
	obj.RefCount--
	h.counters.releases++
	trace.Point(h.Tracer, trace.ScopeHeap, "release", obj.Owner,
		"handle", fmt.Sprint(handle), "rc", fmt.Sprint(obj.RefCount))
	if obj.RefCount == 0 {
		h.freeLocked(obj)
	}
}

// Free drops the record regardless of its count.
// Freeing twice panics with CodeDoubleFree.
func (h *Heap) Free(handle Handle) {
	if h == nil || handle == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	obj := h.getLocked(handle, "free")
	obj.RefCount = 0
	h.freeLocked(obj)
}

// forget drops a record whose value left ownership without teardown.
func (h *Heap) forget(handle Handle) {
	if h == nil || handle == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	obj := h.getLocked(handle, "detach")
	obj.RefCount = 0
	h.counters.detaches++
	h.freeLocked(obj)
}

func (h *Heap) freeLocked(obj *Object) {
	obj.Alive = false
	if obj.addr != 0 {
		delete(h.addrs, obj.addr)
		obj.addr = 0
	}
	h.live--
	h.counters.frees++
	trace.Point(h.Tracer, trace.ScopeHeap, "free", obj.Owner,
		"handle", fmt.Sprint(obj.Handle), "type", obj.Type)
}

// rekind moves a record from one container kind to another (Unique.Share).
func (h *Heap) rekind(handle Handle, kind Kind) {
	if h == nil || handle == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.getLocked(handle, "share").Kind = kind
}

// note emits an owner-level trace event.
func (h *Heap) note(name, owner string, handle Handle) {
	if h == nil {
		return
	}
	trace.Point(h.Tracer, trace.ScopeOwner, name, owner, "handle", fmt.Sprint(handle))
}
