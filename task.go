// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package kernel

import "sync/atomic"

// Task is one schedulable unit (spec §3/§6): a priority, a current
// scheduler state, and (on a hosted build) a goroutine standing in for the
// architecture-specific execution context a real port would allocate.
type Task struct {
	id   uint64
	name string
	sys  *System

	basePriority Priority // priority this Task was created with
	priority     Priority // effective priority; raised by mutex inheritance

	stackSize int // reserved stack bytes; informational on a hosted build

	state *fastState

	entry func(*Task)

	// Port-managed execution context.
	gate chan struct{}

	// qNext/qPrev/qLevel: intrusive linkage, shared by the ready list and
	// every waitQueue. A task is on at most one of these at a time.
	qNext, qPrev *Task
	qLevel       *priorityLevel

	delay *delayEntry // non-nil while this task has an armed deadline
	waitQ *waitQueue   // non-nil while TaskBlocked, the queue to unlink from
	wake  waitResult   // set by whoever wakes this task; read once it resumes

	blockedOn *Mutex // mutex this task is blocked acquiring, for transitive inheritance

	ownedMutexes []*Mutex // mutexes this task currently holds, for inheritance recompute and auto-release on exit

	joiners  *waitQueue // tasks blocked in Join on this task
	detached atomic.Bool
	killed   atomic.Bool

	started atomic.Bool
}

// ID returns the task's stable identifier, used for logging and registry
// lookups.
func (t *Task) ID() uint64 { return t.id }

// Name returns the task's name as given to CreateTask.
func (t *Task) Name() string { return t.name }

// Priority returns the task's current effective priority (its base
// priority, or higher if boosted by mutex priority inheritance).
func (t *Task) Priority() Priority { return t.priority }

// State returns the task's current scheduler state.
func (t *Task) State() TaskState { return t.state.Load() }

// StackSize returns the stack reservation this task was created with
// (Config.DefaultStackSize, or Config.IdleStackSize for the built-in idle
// task). On a hosted build it is informational; a real port allocates the
// task's stack from it.
func (t *Task) StackSize() int { return t.stackSize }

// Start admits a newly created task onto the ready list. Starting a task
// more than once, or a task that has already terminated, is a no-op
// returning ErrInvalid.
func (t *Task) Start() error {
	if !t.started.CompareAndSwap(false, true) {
		return WrapError("task.Start", t.objectName(), ErrInvalid)
	}
	t.sys.Lock()
	defer t.sys.Unlock()
	if t.State() == TaskStopped {
		return WrapError("task.Start", t.objectName(), ErrInvalid)
	}
	t.sys.admit(t)
	return nil
}

// Yield voluntarily relinquishes the processor, remaining ready. Must be
// called from t's own task function.
func (t *Task) Yield() {
	t.sys.Lock()
	t.sys.yieldCurrent()
	t.sys.Unlock()
}

// Sleep blocks the calling task for the given number of ticks. Sleep(0)
// returns immediately after yielding once.
func (t *Task) Sleep(ticks Timeout) error {
	if ticks == Immediate {
		t.Yield()
		return nil
	}
	t.sys.Lock()
	err := t.sys.delayCurrent(ticks)
	t.sys.Unlock()
	if err == ErrTimeout {
		// A bare Sleep has no event to await other than its own deadline:
		// reaching it is the normal, successful outcome. ErrTimeout is
		// reserved for a bounded wait on an object (Mutex/Sem/Cond) that
		// expired before being signalled.
		return nil
	}
	return WrapError("task.Sleep", t.objectName(), err)
}

// SleepUntil blocks the calling task until the tick counter reaches the
// absolute deadline (wrap-safe, like every deadline comparison in the
// kernel). A deadline at or before the current tick yields once and
// returns.
func (t *Task) SleepUntil(deadline uint64) error {
	t.sys.Lock()
	if tickAfterOrEqual(t.sys.tickNow.Load(), deadline) {
		t.sys.yieldCurrent()
		t.sys.Unlock()
		return nil
	}
	err := t.sys.delayCurrentUntil(deadline)
	t.sys.Unlock()
	if err == ErrTimeout {
		return nil
	}
	return WrapError("task.SleepUntil", t.objectName(), err)
}

// SetPriority changes t's base priority. Its effective priority is
// recomputed at once, still honoring any active mutex priority inheritance,
// and t is repositioned on whichever scheduler queue it currently occupies.
// Raising another task above the current runner preempts it under
// SchedulingPreemptive.
func (t *Task) SetPriority(p Priority) error {
	t.sys.Lock()
	defer t.sys.Unlock()
	if t.State() == TaskStopped {
		return WrapError("task.SetPriority", t.objectName(), ErrInvalid)
	}
	t.basePriority = p
	t.sys.restorePriority(t)
	t.sys.maybePreempt()
	return nil
}

// Cancel wakes t out of whatever blocking call it is parked in: that call
// returns ErrCancelled and t keeps running. Unlike Kill, the task is not
// terminated. Cancelling a task that is not currently waiting returns
// ErrInvalid.
func (t *Task) Cancel() error {
	t.sys.Lock()
	defer t.sys.Unlock()
	switch t.State() {
	case TaskBlocked, TaskDelayed:
		t.sys.wakeTask(t, waitCancelled)
		t.sys.maybePreempt()
		return nil
	default:
		return WrapError("task.Cancel", t.objectName(), ErrInvalid)
	}
}

// Detach marks the task so that, on termination, its resources are
// reclaimed without requiring a Join call.
func (t *Task) Detach() {
	t.detached.Store(true)
}

// CheckPreempt gives a long-running SchedulingPreemptive task a cooperative
// checkpoint: it switches away immediately if a higher-priority task has
// become ready since t started running, and is a no-op otherwise (including
// always, under SchedulingCooperative). A real target's preemptive variant
// switches at the tick ISR itself; a hosted goroutine cannot be suspended
// mid-instruction from another goroutine without unsafe runtime hooks, so
// this bounds preemption latency to "until the next checkpoint" instead.
func (t *Task) CheckPreempt() {
	t.sys.Lock()
	t.sys.maybePreempt()
	t.sys.Unlock()
}

// Join blocks until t terminates or timeout elapses. Joining an already
// detached task returns ErrInvalid.
func (t *Task) Join(timeout Timeout) error {
	if t.detached.Load() {
		return WrapError("task.Join", t.objectName(), ErrInvalid)
	}
	t.sys.Lock()
	if t.State() == TaskStopped {
		t.sys.Unlock()
		return nil
	}
	err := t.sys.blockOn(t.joiners, timeout, TaskBlocked)
	t.sys.Unlock()
	return WrapError("task.Join", t.objectName(), err)
}

// Kill forcibly terminates t. If t is currently blocked, it is unlinked
// from its queues and moved straight to TaskStopped without resuming its
// entry function, so the blocking call never returns; its goroutine (if
// any) is simply never resumed again, the Go-native analogue of abandoning
// a killed task's stack.
func (t *Task) Kill() error {
	t.sys.Lock()
	defer t.sys.Unlock()
	if t.State() == TaskStopped {
		return nil
	}
	t.killed.Store(true)
	t.sys.forceStop(t, waitCancelled)
	return nil
}

func (t *Task) objectName() string {
	return "task#" + uitoa(t.id)
}

func uitoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
