package demo

import "time"

// Status captures the progress of one step.
type Status string

const (
	// StatusQueued indicates the step is waiting to start.
	StatusQueued Status = "queued"
	// StatusRunning indicates the step is running.
	StatusRunning Status = "running"
	// StatusDone indicates the step finished.
	StatusDone Status = "done"
	// StatusError indicates the step failed.
	StatusError Status = "error"
)

// Event reports progress for a step.
type Event struct {
	Step    string
	Status  Status
	Err     error
	Elapsed time.Duration
}

// Sink consumes progress events.
type Sink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) OnEvent(Event) {}
