//go:build !linux

// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package kernel

// pinCPUCore is a no-op outside Linux: unix.SchedSetaffinity has no
// portable equivalent, so non-Linux hosts simply forgo the affinity pin
// and rely on the goroutine-baton Port alone for single-runner semantics.
func pinCPUCore() {}
