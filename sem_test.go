package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSemCountingWaitPost(t *testing.T) {
	s := newTestSystem(t)
	sm := s.NewSem(2, 5)

	require.NoError(t, sm.Wait(Immediate))
	require.NoError(t, sm.Wait(Immediate))
	require.ErrorIs(t, sm.TryWait(), ErrLocked)

	require.NoError(t, sm.Post())
	require.NoError(t, sm.Wait(Immediate))
}

func TestSemBinarySemaphoreBehavesAsMutexLike(t *testing.T) {
	s := newTestSystem(t)
	sm := s.NewSem(1, 1)

	require.NoError(t, sm.Wait(Immediate))
	require.ErrorIs(t, sm.TryWait(), ErrLocked)
	require.NoError(t, sm.Post())
	require.NoError(t, sm.TryWait())
}

func TestSemPostNHandsUnitsDirectlyToWaiters(t *testing.T) {
	s := newTestSystem(t)
	sm := s.NewSem(0, 5)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		worker, err := s.CreateTask("waiter", PriorityNormal, func(task *Task) {
			results <- sm.Wait(Infinite)
		})
		require.NoError(t, err)
		require.NoError(t, worker.Start())
	}
	s.Yield()
	s.Yield()

	require.NoError(t, sm.PostN(2))
	drainReady(t, s)

	require.NoError(t, <-results)
	require.NoError(t, <-results)
	require.Equal(t, uint32(0), sm.count, "units handed directly to waiters never touch count")
}

// TestSemPostNOverflowRejectsWithoutPartialEffect reproduces spec §8 scenario
// 2's timeout/bounds edge: posting past max is rejected outright.
func TestSemPostNOverflowRejectsWithoutPartialEffect(t *testing.T) {
	s := newTestSystem(t)
	sm := s.NewSem(0, 3)

	require.ErrorIs(t, sm.PostN(4), ErrOverflow)
	require.NoError(t, sm.PostN(3))
	require.ErrorIs(t, sm.PostN(1), ErrOverflow)
}

func TestSemWaitTimeoutPrecision(t *testing.T) {
	s := newTestSystem(t)
	sm := s.NewSem(0, 1)

	errc := make(chan error, 1)
	worker, err := s.CreateTask("waiter", PriorityNormal, func(task *Task) {
		errc <- sm.Wait(3)
	})
	require.NoError(t, err)
	require.NoError(t, worker.Start())

	s.Yield()
	awaitState(t, worker, TaskBlocked)

	for i := 0; i < 2; i++ {
		s.tickHandler()
		require.Equal(t, TaskBlocked, worker.State())
	}
	s.tickHandler() // third tick: deadline reached

	drainReady(t, s)
	require.ErrorIs(t, <-errc, ErrTimeout)
}

func TestSemWaitUntilAbsoluteDeadline(t *testing.T) {
	s := newTestSystem(t)
	sm := s.NewSem(0, 1)

	// A deadline already reached behaves like TryWait on an empty semaphore.
	require.ErrorIs(t, sm.WaitUntil(s.Now()), ErrLocked)

	errc := make(chan error, 1)
	worker, err := s.CreateTask("waiter", PriorityNormal, func(task *Task) {
		errc <- sm.WaitUntil(s.Now() + 2)
	})
	require.NoError(t, err)
	require.NoError(t, worker.Start())

	s.Yield()
	awaitState(t, worker, TaskBlocked)

	s.tickHandler()
	require.Equal(t, TaskBlocked, worker.State())
	s.tickHandler() // deadline reached

	drainReady(t, s)
	require.ErrorIs(t, <-errc, ErrTimeout)
	s.Lock()
	require.Equal(t, 0, s.delay.Len(), "expired waiter must have left the delay queue")
	s.Unlock()

	// With a unit available the deadline never matters.
	require.NoError(t, sm.Post())
	require.NoError(t, sm.WaitUntil(s.Now()))
}

func TestSemDestroyWakesWaitersDeleted(t *testing.T) {
	s := newTestSystem(t)
	sm := s.NewSem(0, 1)

	errc := make(chan error, 1)
	worker, err := s.CreateTask("waiter", PriorityNormal, func(task *Task) {
		errc <- sm.Wait(Infinite)
	})
	require.NoError(t, err)
	require.NoError(t, worker.Start())

	s.Yield()
	awaitState(t, worker, TaskBlocked)

	require.NoError(t, sm.Destroy())
	s.Yield()

	require.ErrorIs(t, <-errc, ErrDeleted)
	require.ErrorIs(t, sm.Post(), ErrDeleted)
}
