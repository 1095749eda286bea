// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package kernel

import (
	"sync/atomic"
)

// TaskState is one of the six states a Task can occupy (spec §3).
//
//	Suspended --(Start)--> Ready --(scheduled)--> Running
//	Running --(yield)--> Ready; Running --(block)--> Blocked; Running --(sleep)--> Delayed
//	{Blocked,Delayed} --(wake)--> Ready
//	any --(terminate)--> Stopped (terminal)
//
// Ready tasks are on the ready list; Blocked tasks on exactly one wait
// queue, and also on the delay queue when the wait is bounded; Delayed
// tasks on the delay queue only; Suspended and Stopped tasks on neither.
type TaskState uint32

const (
	// TaskReady means the task is on the ready list, eligible to run.
	TaskReady TaskState = iota
	// TaskRunning means the task is the current runner.
	TaskRunning
	// TaskBlocked means the task is queued on a synchronization object's
	// wait queue (mutex, semaphore, condition variable).
	TaskBlocked
	// TaskDelayed means the task is sleeping (Task.Sleep/SleepUntil,
	// System.Delay/DelayUntil) and is queued on the delay queue only. A
	// bounded wait on an object stays TaskBlocked.
	TaskDelayed
	// TaskSuspended means the task has been created but not yet started
	// (the built-in idle task also starts here) and is on no scheduler
	// queue. No operation suspends a task once it has started.
	TaskSuspended
	// TaskStopped is the terminal state; the task has returned, been
	// killed, or faulted. All resources it held have been released.
	TaskStopped
)

func (s TaskState) String() string {
	switch s {
	case TaskReady:
		return "Ready"
	case TaskRunning:
		return "Running"
	case TaskBlocked:
		return "Blocked"
	case TaskDelayed:
		return "Delayed"
	case TaskSuspended:
		return "Suspended"
	case TaskStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// fastState is a cache-line padded atomic state cell. Kernel code only ever
// mutates it while holding System.Lock, but readers (metrics, Join pollers,
// a debugger) may load it lock-free, so it is kept atomic rather than a
// plain field guarded by convention alone.
type fastState struct { // betteralign:ignore
	_ [64]byte      //nolint:unused // cache line padding before the value
	v atomic.Uint32 // state value
	_ [60]byte      //nolint:unused // pad to a full cache line
}

func newFastState(initial TaskState) *fastState {
	s := &fastState{}
	s.v.Store(uint32(initial))
	return s
}

// Load returns the current state atomically. No validation: the caller
// trusts the last value stored under System.Lock.
func (s *fastState) Load() TaskState {
	return TaskState(s.v.Load())
}

// Store unconditionally sets the state. Must only be called with
// System.Lock held.
func (s *fastState) Store(state TaskState) {
	s.v.Store(uint32(state))
}

// SysState is the process-wide System's own run state, independent of any
// one task's state.
type SysState uint32

const (
	// SysUninit: the zero value. NewSystem stores SysRunning before it
	// returns, so a constructed System never reports it.
	SysUninit SysState = iota
	// SysRunning: the scheduler is actively dispatching tasks, including
	// while only the idle task runs.
	SysRunning
	// SysIdle names the state where no task is ready and the idle task is
	// in its CPU-sleep primitive. The System never stores it: it reports
	// SysRunning while the idle task runs.
	SysIdle
	// SysHalted: Shutdown has completed. Terminal.
	SysHalted
)

func (s SysState) String() string {
	switch s {
	case SysUninit:
		return "Uninit"
	case SysRunning:
		return "Running"
	case SysIdle:
		return "Idle"
	case SysHalted:
		return "Halted"
	default:
		return "Unknown"
	}
}
