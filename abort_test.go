package kernel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFaultOnFaultHandlerFiresOnRaise(t *testing.T) {
	f := newFault()
	var got *Fault
	f.OnFault(func(fault *Fault) { got = fault })

	require.False(t, f.Raised())
	require.Panics(t, func() { f.raise("test.invariant", "detail here", nil, nil) })
	require.True(t, f.Raised())
	require.Equal(t, "test.invariant", got.Invariant)
	require.Equal(t, "detail here", got.Detail)
	var faultErr *FaultError
	require.ErrorAs(t, got.Err, &faultErr)
	require.Equal(t, "test.invariant", faultErr.Invariant)
}

func TestFaultOnFaultHandlerRegisteredAfterRaiseRunsImmediately(t *testing.T) {
	f := newFault()
	require.Panics(t, func() { f.raise("already.fired", "", nil, nil) })

	called := false
	f.OnFault(func(fault *Fault) { called = true })
	require.True(t, called)
}

func TestFaultRaiseIsIdempotent(t *testing.T) {
	f := newFault()
	calls := 0
	f.OnFault(func(fault *Fault) { calls++ })
	require.Panics(t, func() { f.raise("first", "", nil, nil) })
	require.NotPanics(t, func() { f.raise("second", "", nil, nil) }) // no-op, handler not invoked again
	require.Equal(t, 1, calls)
	require.Equal(t, "first", f.Invariant)
}

func TestSystemAssertPanicsOnFalseCondition(t *testing.T) {
	s := newTestSystem(t)
	var handled *Fault
	s.OnFault(func(f *Fault) { handled = f })
	require.Panics(t, func() {
		s.Assert(false, "test.broken", "value was %d", 42)
	})
	require.True(t, s.fault.Raised())
	require.Equal(t, s.fault, handled, "System.OnFault handler must see the fault before the panic")
	require.Equal(t, "test.broken", s.fault.Invariant)
	require.Equal(t, "value was 42", s.fault.Detail)
}

func TestSystemAssertTrueConditionIsNoop(t *testing.T) {
	s := newTestSystem(t)
	require.NotPanics(t, func() {
		s.Assert(true, "never.fires", "unused")
	})
	require.False(t, s.fault.Raised())
}

func TestSystemAssertRunsOnFaultHookBeforePanic(t *testing.T) {
	var hookInvariant string
	s, err := NewSystem(WithTickRate(1), WithHooks(Hooks{
		OnFault: func(f *Fault) { hookInvariant = f.Invariant },
	}))
	require.NoError(t, err)
	defer s.Shutdown()

	require.Panics(t, func() {
		s.Assert(false, "hook.invariant", "")
	})
	require.Equal(t, "hook.invariant", hookInvariant)
}

func TestSystemAssertLogsTheFaultBeforePanicking(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(LevelError, &buf)
	s, err := NewSystem(WithTickRate(1))
	require.NoError(t, err)
	s.logger = logger
	defer s.Shutdown()

	require.Panics(t, func() {
		s.Assert(false, "logged.invariant", "boom")
	})
	require.Contains(t, buf.String(), "logged.invariant")
}
