// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package kernel

import "fmt"

// Priority orders tasks on the ready list and on every wait queue: lower
// numeric value runs first. Mutex priority inheritance (mutex.go) operates
// by temporarily lowering a mutex owner's effective Priority value to match
// the highest-priority waiter blocked on it.
type Priority int32

const (
	// PriorityIdle is reserved for the built-in idle task; application
	// tasks must use a strictly higher (lower-numbered-is-higher, so here
	// that means smaller) priority... application tasks never run at this
	// priority, which is why the idle task only dispatches when every
	// other ready-list entry is empty.
	PriorityIdle Priority = 1<<31 - 1 // lowest possible priority (runs last)

	// PriorityLow, PriorityNormal, and PriorityHigh are convenience levels;
	// any Priority value is otherwise legal, finer-grained scheduling is a
	// matter of picking more levels.
	PriorityLow    Priority = 100
	PriorityNormal Priority = 0
	PriorityHigh   Priority = -100

	// PriorityRealtime is reserved for tasks that must preempt everything
	// else, including other application tasks, as soon as they become
	// ready.
	PriorityRealtime Priority = -1 << 31
)

func (p Priority) String() string {
	switch p {
	case PriorityIdle:
		return "Idle"
	case PriorityLow:
		return "Low"
	case PriorityNormal:
		return "Normal"
	case PriorityHigh:
		return "High"
	case PriorityRealtime:
		return "Realtime"
	default:
		return fmt.Sprintf("Priority(%d)", int32(p))
	}
}

// Timeout is a tick-granular deadline passed to every blocking kernel call
// (Mutex.Lock, Sem.Wait, Cond.Wait, Task.Join, Task.Sleep, ...). It is
// measured in ticks from the instant the call blocks, not a wall-clock
// duration, because a real target's only notion of time is the periodic
// tick interrupt (spec's IMMEDIATE/INFINITE deadline sentinels).
type Timeout uint64

const (
	// Immediate makes a blocking call behave like its Try variant: return
	// ErrTimeout/ErrLocked at once instead of queuing the caller.
	Immediate Timeout = 0

	// Infinite blocks with no deadline; only an explicit wake, the object's
	// destruction, or Task.Kill/Task.Cancel ends the wait.
	Infinite Timeout = ^Timeout(0)
)
