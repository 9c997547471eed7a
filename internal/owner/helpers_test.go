package owner_test

import (
	"testing"

	"ownership/internal/owner"
)

// expectCode runs fn and requires it to panic with an *owner.Error of code want.
func expectCode(t *testing.T, want owner.Code, fn func()) *owner.Error {
	t.Helper()
	var got *owner.Error
	func() {
		defer func() {
			r := recover()
			if r == nil {
				t.Fatalf("expected panic %v, got nil", want)
			}
			err, ok := r.(*owner.Error)
			if !ok {
				t.Fatalf("unexpected panic type: %T (%v)", r, r)
			}
			got = err
		}()
		fn()
	}()
	if got.Code != want {
		t.Fatalf("expected %v, got %v: %s", want, got.Code, got.Message)
	}
	return got
}

// resource counts its own teardowns.
type resource struct {
	id        int
	destroyed *int
}

func (r *resource) Destroy() { *r.destroyed++ }
