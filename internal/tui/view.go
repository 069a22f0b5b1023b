package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// logTail is how many recent log lines show under the environment list.
const logTail = 6

// View implements tea.Model
func (m *Model) View() string {
	if m.Done || m.Quitting {
		return ""
	}

	var b strings.Builder

	// Header
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	// Active environments
	b.WriteString(m.renderActiveEnvs())

	// Status line
	b.WriteString(m.renderStatusLine())
	b.WriteString("\n")

	// Log tail
	b.WriteString(m.renderLogTail())

	// Footer
	b.WriteString(m.renderFooter())

	return b.String()
}

// renderHeader renders the title line with timer and run mode
func (m *Model) renderHeader() string {
	elapsed := time.Since(m.StartTime).Round(time.Second)
	timer := fmt.Sprintf("[%s]", formatDuration(elapsed))
	mode := "sequential"
	if m.Parallel {
		mode = "parallel"
	}

	return fmt.Sprintf("%s  %s  %s",
		m.Styles.Title.Render("envrun"),
		m.Styles.Timer.Render(timer),
		m.Styles.Mode.Render(mode),
	)
}

// renderActiveEnvs renders the list of in-progress environments
func (m *Model) renderActiveEnvs() string {
	if len(m.ActiveEnvs) == 0 {
		return "  No active environments\n\n"
	}

	var b strings.Builder

	// Sort environments by name for stable display
	names := make([]string, 0, len(m.ActiveEnvs))
	for name := range m.ActiveEnvs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b.WriteString(m.renderEnv(m.ActiveEnvs[name]))
		b.WriteString("\n")
	}

	return b.String()
}

// renderEnv renders a single active environment
func (m *Model) renderEnv(env *EnvState) string {
	var b strings.Builder

	// Environment header: ● name [████░░░░░░░░] 2/5 commands
	icon := m.Styles.EnvActive.Render(IconActive)
	name := m.Styles.EnvName.Render(env.Name)
	progress := m.renderProgressBar(env.CompletedCommands, env.TotalCommands, 20)
	cmdCount := fmt.Sprintf("%d/%d commands", env.CompletedCommands, env.TotalCommands)

	fmt.Fprintf(&b, "  %s %s %s %s\n", icon, name, progress, cmdCount)

	// Phase line: ▶ #2 pytest -v: running
	phaseIcon := m.Styles.PhaseIcon.Render(env.PhaseIcon)
	var desc string
	if env.CommandText != "" {
		desc = fmt.Sprintf("#%d %s", env.CurrentCommand+1, truncate(env.CommandText, 60))
	} else {
		desc = env.Phase
	}
	phaseText := m.Styles.PhaseText.Render(fmt.Sprintf("%s: %s", desc, env.Phase))
	fmt.Fprintf(&b, "      %s %s\n", phaseIcon, phaseText)

	return b.String()
}

// renderProgressBar creates a progress bar of the given width
func (m *Model) renderProgressBar(completed, total, width int) string {
	if total == 0 {
		total = 1 // Avoid division by zero
	}

	filled := min((completed*width)/total, width)

	filledStr := strings.Repeat("█", filled)
	emptyStr := strings.Repeat("░", width-filled)

	return "[" +
		m.Styles.ProgressFilled.Render(filledStr) +
		m.Styles.ProgressEmpty.Render(emptyStr) +
		"]"
}

// renderStatusLine renders the summary status line
func (m *Model) renderStatusLine() string {
	activeCount := len(m.ActiveEnvs)

	complete := m.Styles.StatusComplete.Render(fmt.Sprintf("%d passed", m.CompletedEnvs))
	failed := m.Styles.StatusFailed.Render(fmt.Sprintf("%d failed", m.FailedEnvs))
	active := m.Styles.StatusActive.Render(fmt.Sprintf("%d active", activeCount))

	line := fmt.Sprintf("  Environments: %d/%d %s | %s | %s",
		m.CompletedEnvs+m.FailedEnvs,
		m.TotalEnvs,
		complete,
		failed,
		active,
	)
	if m.SkippedEnvs > 0 {
		line += fmt.Sprintf(" | %d skipped", m.SkippedEnvs)
	}
	return line
}

// renderLogTail renders the most recent log lines
func (m *Model) renderLogTail() string {
	if len(m.LogLines) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.Styles.LogTitle.Render("  Log"))
	b.WriteString("\n")

	start := len(m.LogLines) - logTail
	if start < 0 {
		start = 0
	}
	for _, line := range m.LogLines[start:] {
		b.WriteString(m.Styles.LogLine.Render("  " + truncate(line, 100)))
		b.WriteString("\n")
	}
	return b.String()
}

// renderFooter renders the help text
func (m *Model) renderFooter() string {
	key := m.Styles.FooterKey.Render("q")
	return m.Styles.Footer.Render(fmt.Sprintf("  Press %s to quit", key))
}

// formatDuration formats a duration as HH:MM:SS
func formatDuration(d time.Duration) string {
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
