// Package testkit holds consistency checks shared by tests.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"ownership/internal/owner"
)

// CheckLedger runs the ledger invariants on h:
// 1) live count matches the live records and allocs minus frees
// 2) peak is never below the live count
// 3) every live record has at least one owner and a unique handle
// 4) shared retains never exceed shared releases plus live shared owners
func CheckLedger(h *owner.Heap) error {
	if h == nil {
		return fmt.Errorf("nil heap")
	}
	st := h.Stats()
	live := h.Live()

	// 1) counters agree with records
	n, err := safecast.Conv[uint64](len(live))
	if err != nil {
		return fmt.Errorf("live record count overflow: %w", err)
	}
	if st.Live != n {
		return fmt.Errorf("stats report %d live, ledger holds %d", st.Live, n)
	}
	if st.Allocs < st.Frees || st.Allocs-st.Frees != st.Live {
		return fmt.Errorf("allocs=%d frees=%d do not account for live=%d", st.Allocs, st.Frees, st.Live)
	}

	// 2) peak
	if st.PeakLive < st.Live {
		return fmt.Errorf("peak %d below live %d", st.PeakLive, st.Live)
	}

	// 3) records
	seen := make(map[owner.Handle]bool, len(live))
	var sharedOwners uint64
	for _, obj := range live {
		if obj.Handle == 0 {
			return fmt.Errorf("live record with handle 0: %s", obj)
		}
		if seen[obj.Handle] {
			return fmt.Errorf("handle %d listed twice", obj.Handle)
		}
		seen[obj.Handle] = true
		if obj.RefCount == 0 {
			return fmt.Errorf("live record without owners: %s", obj)
		}
		if obj.Kind == owner.KindUnique && obj.RefCount != 1 {
			return fmt.Errorf("exclusive record with %d owners: %s", obj.RefCount, obj)
		}
		if obj.Kind == owner.KindShared {
			sharedOwners += uint64(obj.RefCount) - 1
		}
	}

	// 4) every retain is matched by a release or a live extra owner
	if st.Retains > st.Releases+sharedOwners {
		return fmt.Errorf("retains=%d exceed releases=%d plus live extra owners=%d", st.Retains, st.Releases, sharedOwners)
	}
	return nil
}
