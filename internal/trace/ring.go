package trace

import (
	"io"
	"sync"
)

// RingTracer remembers the latest events so a failed run can show what the
// owners and the ledger did just before it. Once enabled it keeps every
// scope, whatever the level.
type RingTracer struct {
	level Level

	mu    sync.Mutex
	buf   []Event
	start int // oldest event once buf is full
}

// NewRingTracer keeps up to capacity events; capacity <= 0 means DefaultRingSize.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = DefaultRingSize
	}
	return &RingTracer{level: level, buf: make([]Event, 0, capacity)}
}

func (t *RingTracer) Emit(ev *Event) {
	if !t.Enabled() {
		return
	}
	rec := *ev
	if rec.Seq == 0 {
		rec.Seq = NextSeq()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.buf) < cap(t.buf) {
		t.buf = append(t.buf, rec)
		return
	}
	t.buf[t.start] = rec
	t.start = (t.start + 1) % len(t.buf)
}

// Snapshot returns the kept events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, 0, len(t.buf))
	out = append(out, t.buf[t.start:]...)
	return append(out, t.buf[:t.start]...)
}

// Dump writes the kept events to w, oldest first.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	for _, ev := range t.Snapshot() {
		if _, err := w.Write(FormatEvent(&ev, format)); err != nil {
			return err
		}
	}
	return nil
}

func (*RingTracer) Flush() error    { return nil }
func (*RingTracer) Close() error    { return nil }
func (t *RingTracer) Level() Level  { return t.level }
func (t *RingTracer) Enabled() bool { return t.level != LevelOff }
