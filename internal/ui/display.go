package ui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Display levels as they appear in console lines
const (
	LevelError   = "Error"
	LevelWarning = "Warning"
	LevelInfo    = "Info"
	LevelDebug   = "Debug"
)

// Console prints engine messages as "time | level | name | msg" lines and
// asks for acknowledgement of critical failures when interactive.
type Console struct {
	Out  io.Writer
	Name string
	// Interactive enables blocking prompts for critical messages
	Interactive bool
	// DebugEnabled gates Debug output
	DebugEnabled bool
	// Now and Acknowledge are replaced in tests
	Now         func() time.Time
	Acknowledge func(label string) error

	mu sync.Mutex
}

// NewConsole creates a Console writing to Stderr
func NewConsole(name string, interactive, debug bool) *Console {
	return &Console{
		Out:          Stderr,
		Name:         name,
		Interactive:  interactive,
		DebugEnabled: debug,
		Now:          time.Now,
		Acknowledge:  AcknowledgePrompt,
	}
}

// FormatDisplayLine formats a console line
func FormatDisplayLine(t time.Time, level, name, msg string) string {
	return fmt.Sprintf("%s | %s | %s | %s ", t.Format(time.ANSIC), level, name, msg)
}

// Display writes one console line at level
func (c *Console) Display(level, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	line := FormatDisplayLine(now(), level, c.Name, msg)

	switch level {
	case LevelError:
		Error.Fprintln(c.Out, line)
	case LevelWarning:
		Warning.Fprintln(c.Out, line)
	case LevelDebug:
		Muted.Fprintln(c.Out, line)
	default:
		fmt.Fprintln(c.Out, line)
	}
}

// Error displays an error line
func (c *Console) Error(msg string) { c.Display(LevelError, msg) }

// Warning displays a warning line
func (c *Console) Warning(msg string) { c.Display(LevelWarning, msg) }

// Info displays an info line
func (c *Console) Info(msg string) { c.Display(LevelInfo, msg) }

// Debug displays a debug line when debug output is enabled
func (c *Console) Debug(msg string) {
	if c.DebugEnabled {
		c.Display(LevelDebug, msg)
	}
}

// HasUI reports whether blocking prompts can be shown
func (c *Console) HasUI() bool {
	return c.Interactive
}

// Critical prints a critical failure and, when interactive, waits for the
// user to acknowledge it.
func (c *Console) Critical(title, msg string) {
	c.mu.Lock()
	Error.Fprintf(c.Out, "%s %s\n", CrossMark, title)
	fmt.Fprintln(c.Out, msg)
	c.mu.Unlock()

	if c.Interactive && c.Acknowledge != nil {
		_ = c.Acknowledge("Press Enter to continue")
	}
}
