package kernel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestOnceFlagConcurrentCallersRunFnExactlyOnce reproduces spec §8 scenario
// 3: four tasks race into Do, only one actually runs fn, and every caller
// observes it complete before Do returns.
func TestOnceFlagConcurrentCallersRunFnExactlyOnce(t *testing.T) {
	s := newTestSystem(t)
	once := s.NewOnceFlag()

	var runs atomic.Int32
	const n = 4
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		worker, err := s.CreateTask("racer", PriorityNormal, func(task *Task) {
			results <- once.Do(func() {
				runs.Add(1)
				task.Sleep(1) // let other racers pile up on the waiters queue
			})
		})
		require.NoError(t, err)
		require.NoError(t, worker.Start())
	}

	s.Yield() // dispatch the first racer, who claims oncePending and calls Sleep

	for i := 0; i < 5; i++ {
		s.tickHandler()
	}
	drainReady(t, s)

	for i := 0; i < n; i++ {
		require.NoError(t, <-results)
	}
	require.Equal(t, int32(1), runs.Load(), "fn must run exactly once regardless of caller count")
	require.True(t, once.Done())
}

func TestOnceFlagDoneAfterCompletion(t *testing.T) {
	s := newTestSystem(t)
	once := s.NewOnceFlag()
	require.False(t, once.Done())
	require.NoError(t, once.Do(func() {}))
	require.True(t, once.Done())
	require.NoError(t, once.Do(func() { t.Fatal("fn must not run a second time") }))
}

func TestOnceFlagDestroyWakesWaitersDeleted(t *testing.T) {
	s := newTestSystem(t)
	once := s.NewOnceFlag()

	firstErr := make(chan error, 1)
	first, err := s.CreateTask("first", PriorityNormal, func(task *Task) {
		firstErr <- once.Do(func() {
			require.NoError(t, task.Sleep(1_000_000)) // never returns within the test
		})
	})
	require.NoError(t, err)
	require.NoError(t, first.Start())

	s.Yield()
	awaitState(t, first, TaskDelayed)

	secondErr := make(chan error, 1)
	second, err := s.CreateTask("second", PriorityNormal, func(task *Task) {
		secondErr <- once.Do(func() {})
	})
	require.NoError(t, err)
	require.NoError(t, second.Start())

	s.Yield()
	awaitState(t, second, TaskBlocked)

	require.NoError(t, once.Destroy())
	s.Yield()

	require.ErrorIs(t, <-secondErr, ErrDeleted)
}
