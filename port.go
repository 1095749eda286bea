// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package kernel

// Port is the architecture-specific context-switch primitive. Register
// save/restore is out of scope for a hosted Go build; a real port swaps
// CPU register state directly, while [goroutinePort] gets the same
// single-task-runs-at-a-time guarantee by giving each Task its own
// goroutine and handing a single-slot baton channel between them, so at
// most one is ever not blocked on its gate.
type Port interface {
	// Spawn starts entry running on a freshly allocated execution context
	// for t, immediately blocked until the first Resume.
	Spawn(t *Task, entry func())
	// Resume hands control to t by releasing its execution context. It
	// does not block the caller; the scheduler parks the outgoing task
	// separately through Park.
	Resume(t *Task)
	// Park blocks the calling goroutine (which must be t's own execution
	// context) until the scheduler Resumes it again.
	Park(t *Task)
}

// goroutinePort is the hosted-build Port: one goroutine per Task, gated by
// a buffered, single-slot channel so control visibly passes from exactly
// one task to exactly one other, the same baton-passing discipline a
// single-core target gets for free from having only one set of registers.
type goroutinePort struct{}

// newGoroutinePort constructs the default Port.
func newGoroutinePort() *goroutinePort {
	return &goroutinePort{}
}

func (p *goroutinePort) Spawn(t *Task, entry func()) {
	t.gate = make(chan struct{}, 1)
	go func() {
		<-t.gate
		entry()
	}()
}

func (p *goroutinePort) Resume(t *Task) {
	t.gate <- struct{}{}
}

func (p *goroutinePort) Park(t *Task) {
	<-t.gate
}
