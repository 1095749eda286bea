//go:build linux

// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package kernel

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinCPUCore locks the calling goroutine to its current OS thread and
// pins that thread to CPU 0. The idle task calls this once before
// entering its CPU-sleep primitive: since at most one task goroutine is
// ever unblocked at a time (port.go), this keeps whichever OS thread is
// actually running kernel code from migrating mid-run, the closest a
// hosted build gets to "single hardware thread of execution, no
// parallelism" (spec's single-core target assumption) without actually
// disabling the Go runtime's own scheduler elsewhere.
func pinCPUCore() {
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	set.Set(0)
	_ = unix.SchedSetaffinity(0, &set)
}
