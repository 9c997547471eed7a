package owner_test

import (
	"strings"
	"testing"

	"ownership/internal/owner"
)

// base/derived pair used through an interface-typed owner.
type messenger interface {
	Message() string
	owner.Destroyer
}

type baseMessenger struct {
	log *[]string
}

func (b *baseMessenger) Message() string { return "base" }
func (b *baseMessenger) Destroy()        { *b.log = append(*b.log, "base torn down") }

type derivedMessenger struct {
	baseMessenger
	buf *owner.Unique[[]byte]
}

func (d *derivedMessenger) Message() string { return "derived" }

func (d *derivedMessenger) Destroy() {
	*d.log = append(*d.log, "derived torn down")
	d.buf.Release()
	d.baseMessenger.Destroy()
}

// forgetfulMessenger embeds the base without overriding Destroy.
type forgetfulMessenger struct {
	baseMessenger
	buf *owner.Unique[[]byte]
}

func (f *forgetfulMessenger) Message() string { return "forgetful" }

func TestPolymorphicDispatchThroughBaseOwner(t *testing.T) {
	var log []string
	h := &owner.Heap{}
	d := &derivedMessenger{
		baseMessenger: baseMessenger{log: &log},
		buf:           owner.Make(make([]byte, 16), owner.WithHeap(h), owner.Named("scratch")),
	}
	p := owner.Make[messenger](d, owner.WithHeap(h))

	if got := p.Value().Message(); got != "derived" {
		t.Fatalf("Message() = %q, want derived", got)
	}
	p.Release()

	if strings.Join(log, ",") != "derived torn down,base torn down" {
		t.Fatalf("unexpected teardown order: %v", log)
	}
	if err := h.CheckLeaks(); err != nil {
		t.Fatalf("derived teardown should release its buffer: %v", err)
	}
}

func TestMissingOverrideLeaksDerivedResources(t *testing.T) {
	var log []string
	h := &owner.Heap{}
	f := &forgetfulMessenger{
		baseMessenger: baseMessenger{log: &log},
		buf:           owner.Make(make([]byte, 16), owner.WithHeap(h), owner.Named("scratch")),
	}
	p := owner.Make[messenger](f, owner.WithHeap(h))
	p.Release()

	if strings.Join(log, ",") != "base torn down" {
		t.Fatalf("only the base teardown should run: %v", log)
	}
	err := h.CheckLeaks()
	if err == nil {
		t.Fatal("expected the derived buffer to leak")
	}
	if !strings.Contains(err.Error(), "owner=scratch") {
		t.Fatalf("leak report should name the buffer: %v", err)
	}
	f.buf.Release()
}

func TestValueReceiverDestroyer(t *testing.T) {
	count := 0
	p := owner.Make(valueCloser{count: &count})
	p.Release()
	if count != 1 {
		t.Fatalf("value-receiver Destroy ran %d times, want 1", count)
	}
}

type valueCloser struct{ count *int }

func (v valueCloser) Destroy() { *v.count++ }

func TestNilPointerValueSkipsTeardown(t *testing.T) {
	p := owner.Make[*baseMessenger](nil)
	p.Release()
}
