package trace

import "time"

// Kind tells what an Event marks.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat
)

var kindNames = map[Kind]string{
	KindSpanBegin: "begin",
	KindSpanEnd:   "end",
	KindPoint:     "point",
	KindHeartbeat: "heartbeat",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Scope orders events from coarse to fine.
type Scope uint8

const (
	ScopeRun      Scope = iota + 1 // one demo invocation
	ScopeScenario                  // one step of the walk-through
	ScopeOwner                     // adopt, move, clone, share, detach, teardown
	ScopeHeap                      // alloc, retain, release, free
)

var scopeNames = map[Scope]string{
	ScopeRun:      "run",
	ScopeScenario: "scenario",
	ScopeOwner:    "owner",
	ScopeHeap:     "heap",
}

func (s Scope) String() string {
	if name, ok := scopeNames[s]; ok {
		return name
	}
	return "unknown"
}

// Event is one trace record. Owner and heap events carry the owner label in
// Detail and the ledger handle in Extra["handle"].
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64 // set on begin and end events
	ParentID uint64
	GID      uint64
	Name     string
	Detail   string
	Extra    map[string]string
}
