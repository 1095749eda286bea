// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package kernel

// onceState mirrors the source's _ONE_INIT (pending) / _ONE_DONE (done)
// states, with an added "running" state: a task already inside Do blocks
// any other caller instead of busy-waiting, which a cooperative single
// core cannot afford to do.
type onceState uint32

const (
	oncePending onceState = iota
	onceRunning
	onceDone
)

// OnceFlag runs an initializer exactly once (spec §5's once-flag),
// blocking concurrent callers until the first one finishes rather than
// spinning.
type OnceFlag struct {
	id      uint64
	sys     *System
	state   onceState
	waiters *waitQueue
	deleted bool
}

// NewOnceFlag constructs an OnceFlag in its pending state.
func (s *System) NewOnceFlag() *OnceFlag {
	o := &OnceFlag{sys: s, waiters: newWaitQueue()}
	s.Lock()
	o.id = s.onces.Insert(o)
	s.Unlock()
	return o
}

// Do runs fn exactly once across every call to Do on this OnceFlag. A
// caller that arrives while fn is already running blocks until it
// completes, then returns without running fn itself.
func (o *OnceFlag) Do(fn func()) error {
	s := o.sys
	s.Lock()
	if o.deleted {
		s.Unlock()
		return WrapError("once.Do", o.objectName(), ErrDeleted)
	}
	switch o.state {
	case onceDone:
		s.Unlock()
		return nil
	case onceRunning:
		err := s.blockOn(o.waiters, Infinite, TaskBlocked)
		s.Unlock()
		return WrapError("once.Do", o.objectName(), err)
	default:
		o.state = onceRunning
		s.Unlock()

		fn()

		s.Lock()
		o.state = onceDone
		for {
			w := o.waiters.PopFront()
			if w == nil {
				break
			}
			s.wakeTask(w, waitWoken)
		}
		s.maybePreempt()
		s.Unlock()
		return nil
	}
}

// Done reports whether fn has already run to completion.
func (o *OnceFlag) Done() bool {
	s := o.sys
	s.Lock()
	defer s.Unlock()
	return o.state == onceDone
}

// shutdown releases o unconditionally as part of System.Shutdown: any
// blocked waiter wakes with ErrDeleted. Caller holds System.Lock.
func (o *OnceFlag) shutdown() {
	o.deleted = true
	for {
		w := o.waiters.PopFront()
		if w == nil {
			break
		}
		o.sys.wakeTask(w, waitDeleted)
	}
}

// Destroy releases o and wakes any blocked waiter with ErrDeleted.
func (o *OnceFlag) Destroy() error {
	s := o.sys
	s.Lock()
	defer s.Unlock()
	if o.deleted {
		return WrapError("once.Destroy", o.objectName(), ErrInvalid)
	}
	o.shutdown()
	s.onces.Remove(o.id)
	return nil
}

func (o *OnceFlag) objectName() string {
	return "once#" + uitoa(o.id)
}
