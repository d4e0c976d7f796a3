package pywasmlog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoopLoggerDoesNothing(t *testing.T) {
	l := NewNoop()
	require.NotPanics(t, func() {
		l.Logf(LevelError, "boom %d", 1)
		l.Stage("lower", "ok")
		l.Step(0x6A, "add")
	})
}

func TestWriterLoggerRespectsMinLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)
	l.Logf(LevelInfo, "suppressed")
	require.Empty(t, buf.String())

	l.Logf(LevelWarn, "shown")
	require.Contains(t, buf.String(), "shown")
}

func TestWriterLoggerStageAndStep(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug)

	l.Stage("codegen", "emitted %d bytes", 42)
	require.Contains(t, buf.String(), "codegen")
	require.Contains(t, buf.String(), "42")

	buf.Reset()
	l.Step(0x41, "i32.const")
	require.Contains(t, buf.String(), "0x41")
}
