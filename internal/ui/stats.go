package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"ownership/internal/snapshot"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// RenderSnapshot renders a stored run for the terminal. width bounds the
// step lines; 0 means unbounded.
func RenderSnapshot(snap *snapshot.Snapshot, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (schema %d)\n", headingStyle.Render(snap.Tool), snap.Version, snap.Schema)
	fmt.Fprintf(&b, "%s %s\n\n", labelStyle.Render("recorded"), snap.CreatedAt.Format("2006-01-02 15:04:05 MST"))

	st := snap.Stats
	counters := []struct {
		name  string
		value uint64
	}{
		{"allocs", st.Allocs},
		{"frees", st.Frees},
		{"retains", st.Retains},
		{"releases", st.Releases},
		{"detaches", st.Detaches},
		{"live", uint64(st.Live)},
		{"peak live", uint64(st.PeakLive)},
	}
	var rows []string
	for _, c := range counters {
		rows = append(rows, fmt.Sprintf("%s %d", runewidth.FillRight(c.name, 10), c.value))
	}
	b.WriteString(boxStyle.Render(strings.Join(rows, "\n")))
	b.WriteString("\n\n")

	for _, s := range snap.Steps {
		mark := okStyle.Render("ok ")
		if s.Err != "" {
			mark = badStyle.Render("err")
		}
		fmt.Fprintf(&b, "%s %s %6dus\n", mark, runewidth.FillRight(s.Name, 16), s.ElapsedUS)
		for _, line := range s.Lines {
			fmt.Fprintf(&b, "      %s\n", truncate(line, width-6))
		}
		if len(s.Teardowns) > 0 {
			fmt.Fprintf(&b, "      %s %s\n", labelStyle.Render("teardown:"), strings.Join(s.Teardowns, " -> "))
		}
		if s.Err != "" {
			fmt.Fprintf(&b, "      %s\n", badStyle.Render(s.Err))
		}
	}

	if len(snap.Live) > 0 {
		b.WriteString("\n")
		b.WriteString(badStyle.Render(fmt.Sprintf("%d objects still alive:", len(snap.Live))))
		b.WriteString("\n")
		for _, obj := range snap.Live {
			fmt.Fprintf(&b, "  %s#%d rc=%d type=%s owner=%s\n", obj.Kind, obj.Handle, obj.RefCount, obj.Type, obj.Owner)
		}
	}
	return b.String()
}
