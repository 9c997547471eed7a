package main

import (
	"fmt"
	"io"

	"ownership/internal/observ"
	"ownership/internal/owner"
)

func printStepTimings(out io.Writer, report observ.Report) {
	if out == nil || len(report.Phases) == 0 {
		return
	}
	if _, err := io.WriteString(out, report.Summary()); err != nil {
		panic(err)
	}
}

func printHeapStats(out io.Writer, st owner.Stats, live []owner.Object) {
	if out == nil {
		return
	}
	fmt.Fprintf(out, "heap: allocs=%d frees=%d retains=%d releases=%d detaches=%d live=%d peak=%d\n",
		st.Allocs, st.Frees, st.Retains, st.Releases, st.Detaches, st.Live, st.PeakLive)
	for _, obj := range live {
		fmt.Fprintf(out, "  live %s alloc=%d\n", obj, obj.AllocID)
	}
}
