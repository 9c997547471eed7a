package demo

import (
	"fmt"
	"io"

	"ownership/internal/owner"
)

// Messenger is the polymorphic base: a message printer that owns resources.
type Messenger interface {
	PrintMessage(w io.Writer)
	owner.Destroyer
}

// BaseMessenger is the base implementation. OnDestroy, when set, is told the
// name of every teardown that runs.
type BaseMessenger struct {
	OnDestroy func(typeName string)
}

// PrintMessage writes the base message.
func (b *BaseMessenger) PrintMessage(w io.Writer) {
	fmt.Fprintln(w, "PrintMessage() defined in BaseMessenger.")
}

// Destroy tears down the base portion.
func (b *BaseMessenger) Destroy() {
	if b.OnDestroy != nil {
		b.OnDestroy("BaseMessenger")
	}
}

// DerivedMessenger extends the base with a scratch buffer it owns.
type DerivedMessenger struct {
	BaseMessenger
	scratch *owner.Unique[[]byte]
}

// NewDerivedMessenger allocates the scratch buffer through opts, so a heap
// passed WithHeap sees it as a separate record.
func NewDerivedMessenger(onDestroy func(string), opts ...owner.Option) *DerivedMessenger {
	opts = append(opts, owner.Named("scratch"))
	return &DerivedMessenger{
		BaseMessenger: BaseMessenger{OnDestroy: onDestroy},
		scratch:       owner.Make(make([]byte, 0, 64), opts...),
	}
}

// PrintMessage overrides the base message.
func (d *DerivedMessenger) PrintMessage(w io.Writer) {
	buf := append((*d.scratch.Get())[:0], "PrintMessage() defined in DerivedMessenger.\n"...)
	*d.scratch.Get() = buf
	_, _ = w.Write(buf)
}

// Destroy releases the derived resources, then the base portion.
func (d *DerivedMessenger) Destroy() {
	d.scratch.Release()
	if d.OnDestroy != nil {
		d.OnDestroy("DerivedMessenger")
	}
	d.BaseMessenger.Destroy()
}

// SomeObject is a plain object reached through an exclusive owner.
type SomeObject struct{}

// SomeMethod reports that it was called.
func (o *SomeObject) SomeMethod(w io.Writer) {
	fmt.Fprintln(w, "Method called through an exclusive owner.")
}
