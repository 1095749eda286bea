// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package kernel

import "sync"

// syslock is the kernel-wide critical section every port, ISR simulation,
// and kernel call passes through (spec's sys_lock/sys_unlock): a real
// target implements it by masking interrupts, this hosted build implements
// it with a plain mutex plus a nesting counter kept for Fault diagnostics
// (an unbalanced Lock/Unlock pair is exactly the kind of corrupted
// invariant System.Assert exists to catch).
type syslock struct {
	mu    sync.Mutex
	depth int
}

// Lock enters the kernel's single critical section. Kernel code never
// calls Lock reentrantly from the same logical call path; every public API
// method takes it exactly once and routes to an unexported, lock-held
// implementation for anything it needs internally.
func (s *System) Lock() {
	s.sl.mu.Lock()
	s.sl.depth++
}

// Unlock leaves the critical section.
func (s *System) Unlock() {
	s.Assert(s.sl.depth > 0, "syslock.nesting", "Unlock called with no matching Lock")
	s.sl.depth--
	s.sl.mu.Unlock()
}
