package kernel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestSystem builds a System whose real tick ISR goroutine fires at most
// once per test's lifetime (a 1 Hz tick rate against sub-millisecond test
// bodies). Timing-sensitive assertions drive s.tickHandler directly instead
// of waiting on that goroutine, so its rare real firings never race a test.
func newTestSystem(t *testing.T, opts ...Option) *System {
	t.Helper()
	all := append([]Option{WithTickRate(1)}, opts...)
	s, err := NewSystem(all...)
	require.NoError(t, err)
	t.Cleanup(s.Shutdown)
	return s
}

// awaitState polls t.State() until it matches want or the deadline elapses,
// giving the other task's goroutine a chance to actually park/block. This
// stands in for a hardware debugger sampling task state between ISRs; the
// kernel itself never spins like this internally.
func awaitState(t *testing.T, task *Task, want TaskState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if task.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("task %s did not reach state %s, still %s", task.Name(), want, task.State())
}

// drainReady lets every currently-ready task run to completion before the
// caller makes assertions, by repeatedly yielding the calling (main) task
// until nothing else is ready. Tests that start one or more workers and want
// them to finish call this rather than guessing how many Yields are needed.
func drainReady(t *testing.T, s *System) {
	t.Helper()
	for i := 0; i < 256; i++ {
		s.Lock()
		empty := s.ready.Len() == 0
		s.Unlock()
		if empty {
			return
		}
		s.Yield()
	}
	t.Fatal("drainReady: ready list never drained")
}
