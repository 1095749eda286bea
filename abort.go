// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package kernel

import (
	"fmt"
	"sync"
)

// Fault describes a broken kernel invariant caught by an internal assertion
// (spec §4.11, §7): imbalanced sys_lock nesting, a wait queue found
// non-empty when an object invariant says it must be empty, a ready-list
// corruption, and so on. It carries a reason and, once raised, is delivered
// to every handler registered via System.OnFault before the default
// behavior (panic) runs.
//
// This is the Go-native shape of the source's weak-symbol assert handler:
// a registered-handlers object rather than a linker-resolved symbol, one
// Fault per System rather than a single process-wide hook.
type Fault struct {
	mu       sync.RWMutex
	handlers []func(*Fault)
	raised   bool

	Invariant string // short invariant name, e.g. "syslock.nesting"
	Detail    string // human-readable detail
	Err       error  // the FaultError, set once Raised
}

func newFault() *Fault {
	return &Fault{}
}

// Raised reports whether this Fault has fired.
func (f *Fault) Raised() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.raised
}

// OnFault registers a handler invoked when the fault fires. If the fault
// has already fired, the handler runs immediately with the existing
// detail.
func (f *Fault) OnFault(handler func(*Fault)) {
	if handler == nil {
		return
	}
	f.mu.Lock()
	if f.raised {
		f.mu.Unlock()
		handler(f)
		return
	}
	f.handlers = append(f.handlers, handler)
	f.mu.Unlock()
}

// raise fires the fault with the given invariant/detail, logging it, then
// invoking every registered handler, then the System's configured OnFault
// hook, then panics unless a handler already did something terminal (on
// real hardware, the hook itself halts the core and never returns).
func (f *Fault) raise(invariant, detail string, logger Logger, hook func(*Fault)) {
	f.mu.Lock()
	if f.raised {
		f.mu.Unlock()
		return
	}
	f.raised = true
	f.Invariant = invariant
	f.Detail = detail
	f.Err = &FaultError{Invariant: invariant, Detail: detail}
	handlers := append([]func(*Fault){}, f.handlers...)
	f.mu.Unlock()

	if logger != nil {
		logFault(logger, f)
	}
	for _, h := range handlers {
		h(f)
	}
	if hook != nil {
		hook(f)
	}
	panic(f.Err)
}

// OnFault registers a handler invoked if the kernel's abort path fires,
// before the configured Hooks.OnFault and the default panic. If a fault
// has already fired, the handler runs immediately.
func (s *System) OnFault(handler func(*Fault)) {
	s.fault.OnFault(handler)
}

// Assert is the kernel's one and only internal-invariant check. Every
// place in this package that relies on an invariant spec §3/§4 states calls
// this instead of silently tolerating corrupted state; it is the core's
// abort path (spec §4.11 "Fatal: broken invariants ... halt via the
// platform's abort path").
func (s *System) Assert(cond bool, invariant, format string, args ...any) {
	if cond {
		return
	}
	var hook func(*Fault)
	if s.cfg.Hooks.OnFault != nil {
		hook = s.cfg.Hooks.OnFault
	}
	s.fault.raise(invariant, fmt.Sprintf(format, args...), s.logger, hook)
}
