package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jlieth/legacy-scrobbler-go/internal/events"
)

// Bridge connects the event bus to the bubbletea program
type Bridge struct {
	program *tea.Program
}

// NewBridge creates a new bridge for the given program
func NewBridge(program *tea.Program) *Bridge {
	return &Bridge{
		program: program,
	}
}

// Handler returns an event handler function for the event bus
func (b *Bridge) Handler() events.Handler {
	return func(evt events.Event) {
		msg := b.eventToMsg(evt)
		if msg != nil {
			b.program.Send(msg)
		}
	}
}

// eventToMsg converts an events.Event to a tea.Msg
func (b *Bridge) eventToMsg(evt events.Event) tea.Msg {
	switch evt.Type {
	case events.RunStarted:
		total := 0
		if names, ok := evt.Payload.([]string); ok {
			total = len(names)
		}
		return RunStartedMsg{TotalEnvs: total}

	case events.EnvStarted:
		commands := 0
		if n, ok := evt.Payload.(int); ok {
			commands = n
		}
		return EnvStartedMsg{
			Name:          evt.Env,
			TotalCommands: commands,
		}

	case events.EnvCompleted:
		return EnvCompletedMsg{Name: evt.Env}

	case events.EnvFailed:
		return EnvFailedMsg{
			Name:  evt.Env,
			Error: evt.Error,
		}

	case events.EnvSkipped:
		return EnvSkippedMsg{Name: evt.Env}

	case events.DepsInstalling:
		return DepsPhaseMsg{Name: evt.Env}

	case events.CommandStarted:
		idx := 0
		if evt.Command != nil {
			idx = *evt.Command
		}
		command, _ := evt.Payload.(string)
		return CommandStartedMsg{
			Env:     evt.Env,
			Index:   idx,
			Command: command,
		}

	case events.CommandCompleted:
		idx := 0
		if evt.Command != nil {
			idx = *evt.Command
		}
		return CommandCompletedMsg{
			Env:   evt.Env,
			Index: idx,
		}

	default:
		return nil
	}
}

// SendDone sends a DoneMsg to the program
func (b *Bridge) SendDone() {
	b.program.Send(DoneMsg{})
}
