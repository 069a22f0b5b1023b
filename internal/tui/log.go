package tui

import (
	"bytes"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// LogMsg appends one line to the TUI log tail.
type LogMsg struct {
	Line string
}

// msgSender is the part of tea.Program the writer needs.
type msgSender interface {
	Send(tea.Msg)
}

// LogWriter is an io.Writer that feeds log output into the TUI, so the
// standard logger can be redirected at it while the display is active.
type LogWriter struct {
	sender  msgSender
	mu      sync.Mutex
	partial bytes.Buffer
	lines   chan string
}

// NewLogWriter creates a LogWriter sending lines into the program.
func NewLogWriter(program *tea.Program) *LogWriter {
	return newLogWriter(program)
}

func newLogWriter(sender msgSender) *LogWriter {
	w := &LogWriter{
		sender: sender,
		lines:  make(chan string, 200),
	}
	go func() {
		for line := range w.lines {
			w.sender.Send(LogMsg{Line: line})
		}
	}()
	return w
}

// Write implements io.Writer, splitting output into lines.
func (w *LogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, _ = w.partial.Write(p)

	for {
		data := w.partial.Bytes()
		idx := bytes.IndexByte(data, '\n')
		if idx == -1 {
			break
		}
		line := strings.TrimRight(string(data[:idx]), "\r")
		w.partial.Next(idx + 1)
		if line == "" {
			continue
		}
		select {
		case w.lines <- line:
		default:
			// Drop lines rather than block the logger.
		}
	}

	return len(p), nil
}
