package trace

import (
	"bytes"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

var seq, spanIDs atomic.Uint64

// NextSeq returns the next global event sequence number.
func NextSeq() uint64 { return seq.Add(1) }

// goroutineID reads the id from the stack header "goroutine 17 [running]:",
// or returns 0 when the header does not parse.
func goroutineID() uint64 {
	var buf [64]byte
	hdr, ok := bytes.CutPrefix(buf[:runtime.Stack(buf[:], false)], []byte("goroutine "))
	if !ok {
		return 0
	}
	if i := bytes.IndexByte(hdr, ' '); i >= 0 {
		hdr = hdr[:i]
	}
	id, err := strconv.ParseUint(string(hdr), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Span is a begin event waiting for its end. Spans begun on a disabled
// tracer are inert, so End can always be deferred.
type Span struct {
	t     Tracer
	begin Event
	extra map[string]string
}

// Begin emits a begin event for name under parent (0 for a root span).
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Enabled() {
		return &Span{}
	}
	s := &Span{t: t, begin: Event{
		Time:     time.Now(),
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   spanIDs.Add(1),
		ParentID: parent,
		GID:      goroutineID(),
		Name:     name,
	}}
	ev := s.begin
	ev.Seq = NextSeq()
	t.Emit(&ev)
	return s
}

func (s *Span) live() bool { return s != nil && s.t != nil }

// End emits the matching end event and returns how long the span was open.
func (s *Span) End(detail string) time.Duration {
	if !s.live() {
		return 0
	}
	ev := s.begin
	ev.Time = time.Now()
	ev.Seq = NextSeq()
	ev.Kind = KindSpanEnd
	ev.Detail = detail
	ev.Extra = s.extra
	s.t.Emit(&ev)
	return ev.Time.Sub(s.begin.Time)
}

// WithExtra attaches key=value to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if !s.live() {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string, 2)
	}
	s.extra[key] = value
	return s
}

// ID is what child spans pass as parent. Inert spans report 0.
func (s *Span) ID() uint64 {
	if !s.live() {
		return 0
	}
	return s.begin.SpanID
}

// Point emits an instant event. kv holds key, value pairs; an odd trailing
// key is ignored.
func Point(t Tracer, scope Scope, name, detail string, kv ...string) {
	if t == nil || !t.Enabled() {
		return
	}
	ev := Event{
		Time:   time.Now(),
		Seq:    NextSeq(),
		Kind:   KindPoint,
		Scope:  scope,
		GID:    goroutineID(),
		Name:   name,
		Detail: detail,
	}
	if n := len(kv) / 2; n > 0 {
		ev.Extra = make(map[string]string, n)
		for i := 0; i < n; i++ {
			ev.Extra[kv[2*i]] = kv[2*i+1]
		}
	}
	t.Emit(&ev)
}
