package owner

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"fortio.org/safecast"
)

// Stats is a point-in-time view of ledger counters.
type Stats struct {
	Allocs   uint64 `json:"allocs"`
	Frees    uint64 `json:"frees"`
	Retains  uint64 `json:"retains"`
	Releases uint64 `json:"releases"`
	Detaches uint64 `json:"detaches"`
	Live     uint64 `json:"live"`
	PeakLive uint64 `json:"peak_live"`
}

// Stats returns the current counters.
func (h *Heap) Stats() Stats {
	if h == nil {
		return Stats{}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		Allocs:   h.counters.allocs,
		Frees:    h.counters.frees,
		Retains:  h.counters.retains,
		Releases: h.counters.releases,
		Detaches: h.counters.detaches,
		Live:     clampUint64(h.live),
		PeakLive: clampUint64(h.counters.peakLive),
	}
}

func clampUint64(n int) uint64 {
	u, err := safecast.Conv[uint64](n)
	if err != nil {
		return 0
	}
	return u
}

// Live returns copies of all live records ordered by handle.
func (h *Heap) Live() []Object {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Object, 0, h.live)
	for _, obj := range h.objs {
		if obj != nil && obj.Alive {
			out = append(out, *obj)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// String renders a record as "unique#3(rc=1,type=int,owner=p)".
func (o Object) String() string {
	ownerName := o.Owner
	if ownerName == "" {
		ownerName = "-"
	}
	return fmt.Sprintf("%s#%d(rc=%d,type=%s,owner=%s)", o.Kind, o.Handle, o.RefCount, o.Type, ownerName)
}

// CheckLeaks returns a CodeHeapLeak error listing records that are still
// alive, or nil when every owned value has been released.
func (h *Heap) CheckLeaks() error {
	live := h.Live()
	if len(live) == 0 {
		return nil
	}

	kindCounts := make(map[Kind]int, 2)
	const maxList = 8
	list := make([]string, 0, maxList)
	for _, obj := range live {
		kindCounts[obj.Kind]++
		if len(list) < maxList {
			list = append(list, obj.String())
		}
	}

	msg := fmt.Sprintf("heap leak detected: %d objects still alive", len(live))
	kindList := make([]string, 0, len(kindCounts))
	for kind, n := range kindCounts {
		kindList = append(kindList, fmt.Sprintf("%s=%d", kind, n))
	}
	sort.Strings(kindList)
	msg += " (" + strings.Join(kindList, ", ") + "): " + strings.Join(list, ", ")
	return newError(CodeHeapLeak, "", msg)
}

// Dump writes one line per live record.
func (h *Heap) Dump(w io.Writer) error {
	for _, obj := range h.Live() {
		if _, err := fmt.Fprintf(w, "%s alloc=%d\n", obj, obj.AllocID); err != nil {
			return err
		}
	}
	return nil
}
