package trace

import (
	"fmt"
	"strings"
)

// Level is how much of a run is traced. Each level streams everything the
// level below it does.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // nothing streamed; a ring still keeps events for a failure dump
	LevelPhase        // run and scenario spans
	LevelDetail       // plus owner transitions
	LevelDebug        // plus every ledger mutation
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("level(%d)", uint8(l))
}

// ParseLevel accepts a level name in any case. The empty string is LevelOff.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LevelOff, nil
	}
	for i, name := range levelNames {
		if name == s {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("unknown trace level %q (want %s)", s, strings.Join(levelNames[:], "|"))
}

// finest is the deepest scope l streams, or 0 when it streams nothing.
func (l Level) finest() Scope {
	switch l {
	case LevelPhase:
		return ScopeScenario
	case LevelDetail:
		return ScopeOwner
	case LevelDebug:
		return ScopeHeap
	}
	return 0
}

// ShouldEmit reports whether a stream at level l writes events of scope.
func (l Level) ShouldEmit(scope Scope) bool {
	return scope != 0 && scope <= l.finest()
}
