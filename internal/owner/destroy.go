package owner

import (
	"fmt"
	"reflect"
)

// Destroyer is implemented by values that hold resources of their own.
// Owners call Destroy exactly once, when the last owning reference is
// released. Embedding types that add resources must override Destroy and
// call the embedded Destroy themselves; otherwise only the embedded part is
// torn down.
type Destroyer interface {
	Destroy()
}

// destroy runs teardown through the value's dynamic type. For an interface
// T the stored value is checked first, so Unique[Base] holding a *Derived
// calls Derived's Destroy. Pointer-receiver implementations on a concrete T
// are reached through p.
func destroy[T any](p *T) {
	if p == nil {
		return
	}
	if d, ok := any(*p).(Destroyer); ok {
		if !isNilPointer(d) {
			d.Destroy()
		}
		return
	}
	if d, ok := any(p).(Destroyer); ok {
		d.Destroy()
	}
}

// typeName names the dynamic type of *p for ledger records.
func typeName[T any](p *T) string {
	if p != nil {
		if v := any(*p); v != nil {
			return fmt.Sprintf("%T", v)
		}
	}
	var zero *T
	return fmt.Sprintf("%T", zero)[1:]
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
