// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package kernel implements the portable core of a small real-time
// multitasking kernel for deeply embedded single-core microcontrollers.
//
// # Architecture
//
// The core is built around one process-wide [System]: a tick counter, a
// priority-ordered ready list, a deadline-ordered delay queue, and the
// current task pointer. Every synchronization object ([Mutex], [Sem],
// [Cond], [OnceFlag]) shares one blocking primitive ([waitQueue]) for
// "block until signalled, timed out, or cancelled".
//
// All scheduler state is mutated only inside [System.Lock] / [System.Unlock],
// the kernel-wide short critical section every port and ISR simulation
// respects; it is the one lock the whole core relies on.
//
// # Context switching
//
// Register-level context switching is architecture-specific and out of
// scope for a hosted Go build; the [Port] interface stands in for it. The
// shipped [goroutinePort] gives each [Task] a real goroutine and a
// single-slot gate channel so that, as on the targets this kernel ports to,
// at most one task ever runs at a time — see port.go.
//
// # Scheduling variants
//
// In both variants the tick handler (and any [System.Pend] request) only
// moves tasks onto the ready list; it never switches tasks itself.
// [SchedulingCooperative] switches only when the running task yields,
// sleeps or blocks. [SchedulingPreemptive] also switches to a just-readied
// higher-priority task when the running task wakes another task through a
// kernel call or calls [Task.CheckPreempt]. Select the variant via
// [WithSchedulingVariant].
//
// # Usage
//
//	sys, err := kernel.NewSystem(kernel.WithTickRate(1000))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sys.Shutdown()
//
//	mx := sys.NewMutex(kernel.MutexPriorityInherit)
//	task, _ := sys.CreateTask("worker", kernel.PriorityNormal, func(t *kernel.Task) {
//	    mx.Lock(kernel.Infinite)
//	    defer mx.Unlock()
//	    // critical section
//	})
//	task.Start()
//
// # Error types
//
// Results are plain sentinel errors matched with [errors.Is] ([ErrTimeout],
// [ErrLocked], [ErrNotOwner], [ErrDeadlock], [ErrOverflow], [ErrDeleted],
// [ErrCancelled], [ErrInvalid]), wrapped with operation context via
// [OpError]/[WrapError]. Broken internal invariants route through the
// [Fault] abort path instead of being returned to a caller.
package kernel
