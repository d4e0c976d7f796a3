// Package pywasmlog provides leveled, colorized diagnostic logging for
// compile stages; the per-opcode Step form exists but the interpreter does
// not call it. The default Logger is a no-op, the
// same "nothing attached, nothing logged" default as the teacher's listener
// factories (experimental/logging): attaching a verbose Logger is opt-in and
// never changes compiled output.
package pywasmlog

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Level orders the severity of a log line.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Logger emits one-line leveled log messages. Stage is the form the compiler
// uses for each compile stage; Step formats a per-opcode line and has no
// caller in the interpreter; Logf is the general form.
type Logger interface {
	Logf(level Level, format string, args ...any)
	Stage(name string, format string, args ...any)
	Step(opcode byte, format string, args ...any)
}

// noop is the default Logger: every call is a deliberate no-op, so a
// Compiler with no Logger attached pays no formatting cost.
type noop struct{}

func (noop) Logf(Level, string, ...any)   {}
func (noop) Stage(string, string, ...any) {}
func (noop) Step(byte, string, ...any)    {}

// NewNoop returns the default no-op Logger.
func NewNoop() Logger { return noop{} }

var levelColor = map[Level]*color.Color{
	LevelDebug: color.New(color.FgHiBlack),
	LevelInfo:  color.New(color.FgCyan),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed, color.Bold),
}

// writerLogger writes colorized, leveled one-line logs to an io.Writer
// (typically os.Stderr for a CLI, matching cmd/pywasmc's status output).
type writerLogger struct {
	w     io.Writer
	level Level
}

// New returns a Logger that writes to w, suppressing lines below minLevel.
func New(w io.Writer, minLevel Level) Logger {
	return &writerLogger{w: w, level: minLevel}
}

// NewStderr returns a Logger writing to os.Stderr at LevelInfo and above.
func NewStderr() Logger { return New(os.Stderr, LevelInfo) }

func (l *writerLogger) Logf(level Level, format string, args ...any) {
	if level < l.level {
		return
	}
	c := levelColor[level]
	prefix := c.Sprintf("[%s]", level)
	fmt.Fprintf(l.w, "%s %s\n", prefix, fmt.Sprintf(format, args...))
}

func (l *writerLogger) Stage(name string, format string, args ...any) {
	l.Logf(LevelInfo, "%s: %s", name, fmt.Sprintf(format, args...))
}

func (l *writerLogger) Step(opcode byte, format string, args ...any) {
	l.Logf(LevelDebug, "opcode 0x%02x: %s", opcode, fmt.Sprintf(format, args...))
}
