// Package owner provides scope-bound ownership of heap values.
//
// Two containers are offered:
//
//   - Unique[T] holds the only owning reference to a value. It cannot be
//     duplicated; ownership moves with Move or MoveTo and the source is left
//     empty.
//   - Shared[T] is one of several owning handles to a value. Clone adds an
//     owner, Release drops one, and the value is torn down when the last
//     owner releases it.
//
// Go's collector reclaims memory on its own, so "release" here means running
// the value's teardown (see Destroyer) at a known point, normally via defer:
//
//	p := owner.Make(235)
//	defer p.Release()
//	fmt.Println(p.Value())
//
// Ownership mistakes fail loudly. Dereferencing an empty owner panics with an
// *Error carrying CodeNullDereference; using a value copy of a Unique panics
// with CodeInvariantViolation. Attaching a Heap (WithHeap) additionally
// records every allocation so double releases and leaks are reported.
//
// Constructing two owners from the same raw pointer is a caller bug. The
// containers cannot see it; a Heap detects it when both owners use the same
// ledger.
package owner
