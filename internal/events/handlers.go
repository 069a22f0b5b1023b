package events

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// LogConfig configures the logging handler
type LogConfig struct {
	// Writer is where logs are written (default: os.Stderr)
	Writer io.Writer

	// IncludePayload includes event payload in log output
	IncludePayload bool
}

// LogHandler returns a handler that logs events to the configured writer.
// Format: [event.type] env cmd=#N
func LogHandler(cfg LogConfig) Handler {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}

	return func(e Event) {
		var buf strings.Builder
		buf.WriteString("[")
		buf.WriteString(string(e.Type))
		buf.WriteString("]")

		if e.Env != "" {
			buf.WriteString(" ")
			buf.WriteString(e.Env)
		}
		if e.Command != nil {
			fmt.Fprintf(&buf, " cmd=#%d", *e.Command)
		}
		if e.Error != "" {
			fmt.Fprintf(&buf, " error=%q", e.Error)
		}
		if cfg.IncludePayload && e.Payload != nil {
			fmt.Fprintf(&buf, " payload=%v", e.Payload)
		}
		buf.WriteString("\n")

		fmt.Fprint(cfg.Writer, buf.String())
	}
}
