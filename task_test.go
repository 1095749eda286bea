package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTaskLifecycleStartYieldExit(t *testing.T) {
	s := newTestSystem(t)

	var ran bool
	worker, err := s.CreateTask("worker", PriorityNormal, func(task *Task) {
		ran = true
		task.Yield()
	})
	require.NoError(t, err)
	require.Equal(t, TaskSuspended, worker.State())
	require.Equal(t, 2048, worker.StackSize(), "default stack reservation from Config")

	require.NoError(t, worker.Start())
	require.Equal(t, TaskReady, worker.State())

	drainReady(t, s)
	require.True(t, ran)
	require.Equal(t, TaskStopped, worker.State())
}

func TestTaskStartTwiceIsInvalid(t *testing.T) {
	s := newTestSystem(t)
	worker, err := s.CreateTask("worker", PriorityNormal, func(task *Task) {})
	require.NoError(t, err)
	require.NoError(t, worker.Start())
	require.ErrorIs(t, worker.Start(), ErrInvalid)
}

func TestTaskCreateRejectsNilEntry(t *testing.T) {
	s := newTestSystem(t)
	_, err := s.CreateTask("worker", PriorityNormal, nil)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestTaskJoinWaitsForTermination(t *testing.T) {
	s := newTestSystem(t)

	worker, err := s.CreateTask("worker", PriorityNormal, func(task *Task) {
		require.NoError(t, task.Sleep(1))
	})
	require.NoError(t, err)
	require.NoError(t, worker.Start())

	s.Yield() // dispatch worker up to its Sleep(1) call
	awaitState(t, worker, TaskDelayed)
	s.tickHandler() // reach worker's deadline, making it Ready again

	require.NoError(t, worker.Join(Infinite))
	require.Equal(t, TaskStopped, worker.State())
}

func TestTaskJoinAlreadyStoppedReturnsImmediately(t *testing.T) {
	s := newTestSystem(t)
	worker, err := s.CreateTask("worker", PriorityNormal, func(task *Task) {})
	require.NoError(t, err)
	require.NoError(t, worker.Start())
	drainReady(t, s)
	require.Equal(t, TaskStopped, worker.State())
	require.NoError(t, worker.Join(Immediate))
}

func TestTaskJoinDetachedIsInvalid(t *testing.T) {
	s := newTestSystem(t)
	worker, err := s.CreateTask("worker", PriorityNormal, func(task *Task) {
		task.Yield()
	})
	require.NoError(t, err)
	worker.Detach()
	require.NoError(t, worker.Start())
	require.ErrorIs(t, worker.Join(Immediate), ErrInvalid)
	drainReady(t, s)
}

func TestTaskKillBlockedStopsWithoutResuming(t *testing.T) {
	s := newTestSystem(t)

	errc := make(chan error, 1)
	worker, err := s.CreateTask("worker", PriorityNormal, func(task *Task) {
		errc <- task.Sleep(1_000_000)
	})
	require.NoError(t, err)
	require.NoError(t, worker.Start())

	s.Yield()
	awaitState(t, worker, TaskDelayed)

	require.NoError(t, worker.Kill())
	require.Equal(t, TaskStopped, worker.State())
	// A killed task's goroutine is never resumed to run its remaining code
	// (see DESIGN.md), so errc deliberately never receives a value here.
}

func TestTaskKillAlreadyStoppedIsNoop(t *testing.T) {
	s := newTestSystem(t)
	worker, err := s.CreateTask("worker", PriorityNormal, func(task *Task) {})
	require.NoError(t, err)
	require.NoError(t, worker.Start())
	drainReady(t, s)
	require.NoError(t, worker.Kill())
}

func TestTaskSleepImmediateYieldsOnce(t *testing.T) {
	s := newTestSystem(t)
	worker, err := s.CreateTask("worker", PriorityNormal, func(task *Task) {
		require.NoError(t, task.Sleep(Immediate))
	})
	require.NoError(t, err)
	require.NoError(t, worker.Start())
	drainReady(t, s)
	require.Equal(t, TaskStopped, worker.State())
}

func TestTaskSleepUntilAbsoluteDeadline(t *testing.T) {
	s := newTestSystem(t)

	worker, err := s.CreateTask("worker", PriorityNormal, func(task *Task) {
		require.NoError(t, task.SleepUntil(s.Now()+3))
		// A deadline already in the past just yields once and returns.
		require.NoError(t, task.SleepUntil(0))
	})
	require.NoError(t, err)
	require.NoError(t, worker.Start())

	s.Yield()
	awaitState(t, worker, TaskDelayed)

	for i := 0; i < 3; i++ {
		s.tickHandler()
	}
	drainReady(t, s)
	require.Equal(t, TaskStopped, worker.State())
}

func TestTaskSetPriority(t *testing.T) {
	s := newTestSystem(t)

	worker, err := s.CreateTask("worker", PriorityNormal, func(task *Task) {
		require.NoError(t, task.Sleep(1_000_000))
	})
	require.NoError(t, err)
	require.NoError(t, worker.Start())

	s.Yield()
	awaitState(t, worker, TaskDelayed)

	require.NoError(t, worker.SetPriority(PriorityHigh))
	require.Equal(t, PriorityHigh, worker.Priority())

	require.NoError(t, worker.Kill())
	require.ErrorIs(t, worker.SetPriority(PriorityLow), ErrInvalid)
}

func TestTaskCancelWakesBlockingCallWithCancelled(t *testing.T) {
	s := newTestSystem(t)

	errc := make(chan error, 1)
	worker, err := s.CreateTask("worker", PriorityNormal, func(task *Task) {
		errc <- task.Sleep(1_000_000)
	})
	require.NoError(t, err)
	require.NoError(t, worker.Start())

	s.Yield()
	awaitState(t, worker, TaskDelayed)

	require.NoError(t, worker.Cancel())
	drainReady(t, s)

	// Unlike Kill, the cancelled task resumed, observed the result, and ran
	// to completion on its own.
	require.ErrorIs(t, <-errc, ErrCancelled)
	require.Equal(t, TaskStopped, worker.State())
	require.ErrorIs(t, worker.Cancel(), ErrInvalid)
}

// TestTaskKillBlockedWithTimeoutCancelsItsDeadline guards forceStop's queue
// cleanup: a task blocked on an object with a bounded timeout occupies both
// the wait queue and the delay queue, and killing it must disarm the
// deadline too, or a later tick would push the dead task back onto the
// ready list.
func TestTaskKillBlockedWithTimeoutCancelsItsDeadline(t *testing.T) {
	s := newTestSystem(t)
	mx := s.NewMutex()
	require.NoError(t, mx.Lock(Infinite)) // main holds it

	worker, err := s.CreateTask("worker", PriorityNormal, func(task *Task) {
		_ = mx.Lock(5)
	})
	require.NoError(t, err)
	require.NoError(t, worker.Start())

	s.Yield()
	awaitState(t, worker, TaskBlocked)

	require.NoError(t, worker.Kill())
	s.Lock()
	require.Equal(t, 0, s.delay.Len(), "killing a timed waiter must remove its delay entry")
	s.Unlock()

	for i := 0; i < 6; i++ {
		s.tickHandler()
	}
	require.Equal(t, TaskStopped, worker.State())
	s.Lock()
	require.Equal(t, 0, s.ready.Len(), "a killed task must never reappear on the ready list")
	s.Unlock()
}

func TestIdleTaskStartsSuspendedAndNeverOnReadyList(t *testing.T) {
	s := newTestSystem(t)
	require.Equal(t, PriorityIdle, s.idle.Priority())
	// Nothing ever calls s.idle.Start(); it is dispatched directly by
	// reschedule/exitAndDispatch whenever the ready list is empty.
	require.Equal(t, TaskSuspended, s.idle.State())
}
