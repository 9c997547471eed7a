// Package trace records what the ownership demo does while it runs.
//
// Every owner transition (adopt, move, clone, release) and every ledger
// mutation can be emitted as an Event, which makes the otherwise invisible
// teardown order observable from the command line.
//
// # Usage
//
//	ownership demo --trace=- --trace-level=debug
//
// # Tracers
//
//   - Nop: zero-overhead tracer used when tracing is off
//   - StreamTracer: writes each event immediately (text or NDJSON)
//   - RingTracer: keeps the last N events in memory, dumped when a run fails
//   - MultiTracer: fans out to several tracers
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: nothing streamed, ring dumps only
//   - LevelPhase: run and scenario boundaries
//   - LevelDetail: owner transitions
//   - LevelDebug: every ledger mutation
//
// # Scopes
//
// Events are tagged with a scope, coarsest first: ScopeRun, ScopeScenario,
// ScopeOwner, ScopeHeap.
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeScenario, "shared", 0)
//	defer span.End("")
package trace
