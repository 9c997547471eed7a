package owner

import "fmt"

// Code identifies the kind of ownership failure.
type Code int

// Stable codes - do not change values.
const (
	CodeNullDereference    Code = 1001 // OWN1001: dereference of an empty owner
	CodeOutOfMemory        Code = 1002 // OWN1002: allocation or construction failure
	CodeInvariantViolation Code = 1003 // OWN1003: misuse that breaks single-owner or count invariants
	CodeUseAfterFree       Code = 2001 // OWN2001: ledger record used after it was freed
	CodeDoubleFree         Code = 2002 // OWN2002: ledger record freed twice
	CodeInvalidHandle      Code = 2003 // OWN2003: unknown ledger handle
	CodeHeapLeak           Code = 2004 // OWN2004: values still owned at end of scope
)

// String returns the code as "OWN1001".
func (c Code) String() string {
	return fmt.Sprintf("OWN%d", int(c))
}

// Kind returns a short human name for the code.
func (c Code) Kind() string {
	switch c {
	case CodeNullDereference:
		return "null dereference"
	case CodeOutOfMemory:
		return "out of memory"
	case CodeInvariantViolation:
		return "invariant violation"
	case CodeUseAfterFree:
		return "use after free"
	case CodeDoubleFree:
		return "double free"
	case CodeInvalidHandle:
		return "invalid handle"
	case CodeHeapLeak:
		return "heap leak"
	default:
		return "unknown"
	}
}

// Error is returned, or raised with panic, when an ownership rule is broken.
type Error struct {
	Code    Code
	Owner   string // owner label, if known
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same code, so
// errors.Is(err, owner.ErrNullDereference) works for any message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrNullDereference    = &Error{Code: CodeNullDereference, Message: CodeNullDereference.Kind()}
	ErrOutOfMemory        = &Error{Code: CodeOutOfMemory, Message: CodeOutOfMemory.Kind()}
	ErrInvariantViolation = &Error{Code: CodeInvariantViolation, Message: CodeInvariantViolation.Kind()}
	ErrUseAfterFree       = &Error{Code: CodeUseAfterFree, Message: CodeUseAfterFree.Kind()}
	ErrDoubleFree         = &Error{Code: CodeDoubleFree, Message: CodeDoubleFree.Kind()}
	ErrInvalidHandle      = &Error{Code: CodeInvalidHandle, Message: CodeInvalidHandle.Kind()}
	ErrHeapLeak           = &Error{Code: CodeHeapLeak, Message: CodeHeapLeak.Kind()}
)

func newError(code Code, owner, msg string) *Error {
	return &Error{Code: code, Owner: owner, Message: msg}
}

func emptyOwnerError(label string, moved bool) *Error {
	if moved {
		return newError(CodeNullDereference, label, fmt.Sprintf("owner %q used after move", label))
	}
	return newError(CodeNullDereference, label, fmt.Sprintf("dereference of empty owner %q", label))
}

// nilOwnerError reports op called through a nil owner pointer.
func nilOwnerError(op string) *Error {
	return newError(CodeNullDereference, "<nil>", op+" through a nil owner")
}

func constructError(label string, cause error) *Error {
	if cause == nil {
		return newError(CodeOutOfMemory, label, fmt.Sprintf("constructor for %q returned nil", label))
	}
	return &Error{
		Code:    CodeOutOfMemory,
		Owner:   label,
		Message: fmt.Sprintf("construction of %q failed", label),
		Cause:   cause,
	}
}

// Recover converts a recovered panic value into an error holding an *Error.
// Values that are not ownership errors are re-panicked.
//
//	defer func() {
//		if r := recover(); r != nil {
//			err = owner.Recover(r)
//		}
//	}()
func Recover(r any) error {
	if r == nil {
		return nil
	}
	if err, ok := r.(*Error); ok {
		return err
	}
	panic(r)
}
