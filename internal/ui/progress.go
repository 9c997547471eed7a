package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"ownership/internal/demo"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	statusStyles = map[demo.Status]lipgloss.Style{
		demo.StatusQueued:  labelStyle,
		demo.StatusRunning: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		demo.StatusDone:    okStyle,
		demo.StatusError:   badStyle,
	}
)

const (
	statusCol = 9
	nameCol   = 16
)

// row is one step as the progress view shows it.
type row struct {
	name    string
	title   string
	status  demo.Status
	elapsed time.Duration
	err     string
}

// weight is how much of the bar a row fills; a running step counts half.
func (r row) weight() float64 {
	switch r.status {
	case demo.StatusDone, demo.StatusError:
		return 1
	case demo.StatusRunning:
		return 0.5
	}
	return 0
}

type progressModel struct {
	title   string
	events  <-chan demo.Event
	spinner spinner.Model
	bar     progress.Model
	rows    []row
	byName  map[string]int
	width   int
	done    bool
	failed  string
}

type (
	eventMsg demo.Event
	closedMsg struct{}
)

// NewProgressModel renders one row per step and quits once events is closed.
func NewProgressModel(title string, steps []demo.Step, events <-chan demo.Event) tea.Model {
	m := &progressModel{
		title:   title,
		events:  events,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(statusStyles[demo.StatusRunning])),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(76)),
		byName:  make(map[string]int, len(steps)),
		width:   80,
	}
	for _, s := range steps {
		m.byName[s.Name] = len(m.rows)
		m.rows = append(m.rows, row{name: s.Name, title: s.Title, status: demo.StatusQueued})
	}
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

// next waits for the runner's next event.
func (m *progressModel) next() tea.Cmd {
	return func() tea.Msg {
		if ev, ok := <-m.events; ok {
			return eventMsg(ev)
		}
		return closedMsg{}
	}
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.applyEvent(demo.Event(msg)), m.next())
	case closedMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = msg.Width - 4
		}
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) applyEvent(ev demo.Event) tea.Cmd {
	i, ok := m.byName[ev.Step]
	if !ok {
		return nil
	}
	r := &m.rows[i]
	r.status = ev.Status
	if ev.Status == demo.StatusDone || ev.Status == demo.StatusError {
		r.elapsed = ev.Elapsed
	}
	if ev.Status == demo.StatusError {
		m.failed = ev.Step
		if ev.Err != nil {
			r.err = ev.Err.Error()
		}
	}
	return m.bar.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.rows) == 0 {
		return 0
	}
	var sum float64
	for _, r := range m.rows {
		sum += r.weight()
	}
	return sum / float64(len(m.rows))
}

func (m *progressModel) header() string {
	switch {
	case m.done && m.failed != "":
		return fmt.Sprintf("failed: %s (%s)", m.title, m.failed)
	case m.done:
		return "done: " + m.title
	}
	return m.spinner.View() + " " + m.title
}

func (m *progressModel) View() string {
	if len(m.rows) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.header()))
	b.WriteString("\n\n")

	textCol := max(m.width-statusCol-nameCol-6, 20)
	for _, r := range m.rows {
		status := statusStyles[r.status].Render(fmt.Sprintf("%*s", statusCol, r.status))
		name := runewidth.FillRight(truncate(r.name, nameCol), nameCol)
		text := r.title
		if r.status == demo.StatusDone {
			text = fmt.Sprintf("%s (%s)", r.title, r.elapsed.Round(time.Microsecond))
		}
		fmt.Fprintf(&b, "  %s %s %s\n", status, name, truncate(text, textCol))
		if r.err != "" {
			fmt.Fprintf(&b, "  %*s %s\n", statusCol+nameCol+1, "", badStyle.Render(truncate(r.err, textCol)))
		}
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.bar.ViewAs(m.percent()))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteString("\n")
	return b.String()
}

// truncate cuts value to width display columns, ending in "..." when
// there is room for it. width <= 0 leaves value untouched.
func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
