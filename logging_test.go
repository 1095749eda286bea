package kernel

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogLevelString(t *testing.T) {
	require.Equal(t, "DEBUG", LevelDebug.String())
	require.Equal(t, "INFO", LevelInfo.String())
	require.Equal(t, "WARN", LevelWarn.String())
	require.Equal(t, "ERROR", LevelError.String())
	require.Equal(t, "UNKNOWN(99)", LogLevel(99).String())
}

func TestNoOpLoggerDiscardsEverything(t *testing.T) {
	l := NewNoOpLogger()
	require.False(t, l.IsEnabled(LevelError))
	l.Log(LogEntry{Level: LevelError, Message: "ignored"}) // must not panic
}

func TestWriterLoggerRespectsLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(LevelWarn, &buf)
	require.False(t, l.IsEnabled(LevelDebug))
	require.True(t, l.IsEnabled(LevelWarn))

	LogDebug(l, "task", "should not appear", nil)
	require.Empty(t, buf.String())

	LogWarn(l, "task", "should appear", map[string]interface{}{"id": 7})
	require.Contains(t, buf.String(), "should appear")
	require.Contains(t, buf.String(), "task")
}

func TestWriterLoggerIncludesTaskAndObjectIDs(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(LevelDebug, &buf)
	l.Log(LogEntry{Level: LevelDebug, Category: "mutex", TaskID: 3, ObjectID: 9, Message: "boosted"})
	out := buf.String()
	require.Contains(t, out, "task=3")
	require.Contains(t, out, "obj=9")
}

func TestWriterLoggerIncludesErrSuffix(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(LevelError, &buf)
	LogError(l, "sem", "wait failed", errors.New("boom"), nil)
	require.Contains(t, buf.String(), "err=boom")
}

func TestSetStructuredLoggerChangesGlobal(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(LevelDebug, &buf)
	SetStructuredLogger(l)
	t.Cleanup(func() { SetStructuredLogger(nil) })

	require.Same(t, Logger(l), getGlobalLogger())
	SDebug("task", "via global shorthand")
	require.Contains(t, buf.String(), "via global shorthand")
}

func TestGetGlobalLoggerDefaultsToNoOp(t *testing.T) {
	SetStructuredLogger(nil)
	_, ok := getGlobalLogger().(*NoOpLogger)
	require.True(t, ok)
}

func TestCategoryHelpersRespectEnablement(t *testing.T) {
	var buf bytes.Buffer
	quiet := NewWriterLogger(LevelError, &buf)
	logTaskStateChange(quiet, 1, TaskReady, TaskRunning)
	logMutexInherit(quiet, 1, 2, 0, -100)
	logTickWrap(quiet, 42)
	require.Empty(t, buf.String(), "debug/info categories must be suppressed below LevelError")

	loud := NewWriterLogger(LevelDebug, &buf)
	logTaskStateChange(loud, 1, TaskReady, TaskRunning)
	require.Contains(t, buf.String(), "state change")

	logFault(loud, &Fault{Invariant: "x", Err: &FaultError{Invariant: "x"}})
	require.Contains(t, buf.String(), "fault")
}
