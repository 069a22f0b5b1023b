package tui

import tea "github.com/charmbracelet/bubbletea"

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.Quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case TickMsg:
		// Continue ticking for timer updates
		return m, tickCmd()

	case DoneMsg:
		m.Done = true
		return m, tea.Quit

	case RunStartedMsg:
		m.TotalEnvs = msg.TotalEnvs

	case EnvStartedMsg:
		m.ActiveEnvs[msg.Name] = &EnvState{
			Name:          msg.Name,
			TotalCommands: msg.TotalCommands,
			Phase:         "starting",
			PhaseIcon:     IconWaiting,
		}

	case EnvCompletedMsg:
		delete(m.ActiveEnvs, msg.Name)
		m.CompletedEnvs++

	case EnvFailedMsg:
		delete(m.ActiveEnvs, msg.Name)
		m.FailedEnvs++
		if msg.Error != "" {
			m.appendLog(msg.Error)
		}

	case EnvSkippedMsg:
		m.SkippedEnvs++

	case DepsPhaseMsg:
		if env, ok := m.ActiveEnvs[msg.Name]; ok {
			env.Phase = "installing deps"
			env.PhaseIcon = IconDeps
		}

	case CommandStartedMsg:
		if env, ok := m.ActiveEnvs[msg.Env]; ok {
			env.CurrentCommand = msg.Index
			env.CommandText = msg.Command
			env.Phase = "running"
			env.PhaseIcon = IconRunning
		}

	case CommandCompletedMsg:
		if env, ok := m.ActiveEnvs[msg.Env]; ok {
			env.CompletedCommands++
		}

	case LogMsg:
		m.appendLog(msg.Line)
	}

	return m, nil
}

func (m *Model) appendLog(line string) {
	m.LogLines = append(m.LogLines, line)
	if m.LogLimit > 0 && len(m.LogLines) > m.LogLimit {
		m.LogLines = m.LogLines[len(m.LogLines)-m.LogLimit:]
	}
}
