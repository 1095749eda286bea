// Package kernel provides the portable core of a small, preemptible
// real-time multitasking kernel for deeply embedded targets: the
// ready-list scheduler, tick-based timing, the blocking primitive
// framework, and a minimal set of synchronization objects built on it.
package kernel

import (
	"errors"
	"fmt"
)

// Sentinel result codes. A nil error return is "Success" throughout this
// package; every other outcome is one of these, optionally wrapped with
// operation context via WrapError so callers can still errors.Is/As through
// the chain.
var (
	// ErrTimeout is returned when a deadline is reached before the awaited
	// event occurred.
	ErrTimeout = errors.New("kernel: timeout")

	// ErrLocked is returned by a try-variant that could not proceed without
	// blocking.
	ErrLocked = errors.New("kernel: would block")

	// ErrNotOwner is returned when a mutex is released by a task that does
	// not own it, or passed to Cond.Wait/Cond.WaitUntil by a task that does
	// not hold it.
	ErrNotOwner = errors.New("kernel: not owner")

	// ErrDeadlock is returned on self-relock by both an errorcheck mutex and
	// a normal mutex (see DESIGN.md's resolution of the spec's "normal mutex
	// self-relock" open question).
	ErrDeadlock = errors.New("kernel: deadlock")

	// ErrOverflow is returned by Sem.PostN when the post would exceed the
	// semaphore's configured maximum.
	ErrOverflow = errors.New("kernel: semaphore overflow")

	// ErrDeleted is returned to a waiter when the object it was blocked on
	// is destroyed, or when its owning task terminates while holding it.
	ErrDeleted = errors.New("kernel: object deleted")

	// ErrCancelled is returned to a waiter explicitly cancelled via
	// Task.Cancel. A task stopped by Task.Kill never resumes, so its
	// blocking call does not return at all.
	ErrCancelled = errors.New("kernel: cancelled")

	// ErrInvalid is returned when an argument or object invariant is
	// violated at runtime (bad deadline, destroyed object reused, ...).
	ErrInvalid = errors.New("kernel: invalid argument")

	// ErrStopped names a task that has already reached its terminal state.
	// No function in this package returns it: Start and SetPriority on a
	// stopped task report ErrInvalid, and Join and Kill return nil.
	ErrStopped = errors.New("kernel: task stopped")
)

// OpError carries the operation and the object/task involved alongside the
// underlying sentinel, the same Unwrap-capable shape used throughout this
// package in preference to bare errors.New/fmt.Errorf.
type OpError struct {
	Op     string // "mutex.Lock", "sem.Wait", "task.Join", ...
	Object string // object identity, e.g. "mutex#3" or "task#7"
	Err    error
}

func (e *OpError) Error() string {
	if e.Object == "" {
		return fmt.Sprintf("kernel: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("kernel: %s(%s): %v", e.Op, e.Object, e.Err)
}

// Unwrap allows errors.Is(err, ErrTimeout) etc. to see through OpError.
func (e *OpError) Unwrap() error {
	return e.Err
}

// WrapError attaches operation context to a sentinel result code. Returns
// nil unchanged so call sites can do `return WrapError(op, obj, tryOp())`.
func WrapError(op, object string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Object: object, Err: err}
}

// FaultError is raised through the abort path (see abort.go) when a broken
// kernel invariant is detected. It is never returned to a caller as an
// ordinary result code; it reaches user code only via a registered Fault
// handler or, by default, a panic.
type FaultError struct {
	Invariant string
	Detail    string
}

func (e *FaultError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("kernel: fault: %s", e.Invariant)
	}
	return fmt.Sprintf("kernel: fault: %s: %s", e.Invariant, e.Detail)
}
