// Package tui renders live environment-run progress with bubbletea.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// EnvState tracks the state of a single environment in the TUI
type EnvState struct {
	Name              string
	TotalCommands     int
	CompletedCommands int
	CurrentCommand    int
	CommandText       string
	Phase             string
	PhaseIcon         string
}

// Model is the bubbletea model for the TUI
type Model struct {
	// Configuration
	TotalEnvs int
	Parallel  bool
	Styles    Styles

	// State
	ActiveEnvs    map[string]*EnvState
	CompletedEnvs int
	FailedEnvs    int
	SkippedEnvs   int
	StartTime     time.Time
	LogLines      []string
	LogLimit      int
	Width         int
	Height        int

	// Control
	Quitting bool
	Done     bool
}

// NewModel creates a new TUI model
func NewModel(totalEnvs int, parallel bool) *Model {
	return &Model{
		TotalEnvs:  totalEnvs,
		Parallel:   parallel,
		Styles:     DefaultStyles(),
		ActiveEnvs: make(map[string]*EnvState),
		StartTime:  time.Now(),
		LogLimit:   500,
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
	)
}

// TickMsg is sent every second to update the timer
type TickMsg time.Time

// tickCmd returns a command that sends TickMsg every second
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// DoneMsg signals the TUI should exit
type DoneMsg struct{}

// RunStartedMsg indicates a run has started with an environment count
type RunStartedMsg struct {
	TotalEnvs int
}

// EnvStartedMsg indicates an environment has started
type EnvStartedMsg struct {
	Name          string
	TotalCommands int
}

// EnvCompletedMsg indicates an environment finished cleanly
type EnvCompletedMsg struct {
	Name string
}

// EnvFailedMsg indicates an environment failed
type EnvFailedMsg struct {
	Name  string
	Error string
}

// EnvSkippedMsg indicates an environment was skipped after an earlier failure
type EnvSkippedMsg struct {
	Name string
}

// DepsPhaseMsg indicates an environment is installing dependencies
type DepsPhaseMsg struct {
	Name string
}

// CommandStartedMsg indicates a command within an environment started
type CommandStartedMsg struct {
	Env     string
	Index   int
	Command string
}

// CommandCompletedMsg indicates a command within an environment completed
type CommandCompletedMsg struct {
	Env   string
	Index int
}
