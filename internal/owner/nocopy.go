package owner

import "fmt"

// noCopy records its own address when an owner is created. A value copy of
// the owner carries the original address, which check detects. Lock and
// Unlock make `go vet` (copylocks) flag such copies at build time.
type noCopy struct {
	addr *noCopy
}

func (n *noCopy) init() {
	if n.addr == nil {
		n.addr = n
	}
}

func (n *noCopy) check(label string) {
	if n.addr != nil && n.addr != n {
		panic(newError(CodeInvariantViolation, label,
			fmt.Sprintf("illegal copy of owner %q by value; use Move or Clone", label)))
	}
	n.init()
}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
