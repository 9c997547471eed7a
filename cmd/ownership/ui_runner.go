package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"ownership/internal/demo"
	"ownership/internal/ui"
)

type demoOutcome struct {
	result *demo.Result
	err    error
}

// runDemoWithUI runs r in the background and renders its progress until the
// run finishes. The transcript is not printed; it is in the result.
func runDemoWithUI(ctx context.Context, title string, r demo.Runner) (*demo.Result, error) {
	steps := r.Steps
	if steps == nil {
		steps = demo.Steps()
	}
	events := make(chan demo.Event, 256)
	outcomeCh := make(chan demoOutcome, 1)

	go func() {
		r.Out = nil
		r.Steps = steps
		r.Sink = demo.ChannelSink{Ch: events}
		res, err := r.Run(ctx)
		outcomeCh <- demoOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, steps, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
