// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package kernel

// Sem is a counting semaphore (spec §5): Wait blocks while the count is
// zero, Post/PostN increment it or, if tasks are already waiting, hand
// units directly to them without ever touching the count.
type Sem struct {
	id      uint64
	sys     *System
	count   uint32
	max     uint32
	waiters *waitQueue
	deleted bool
}

// NewSem constructs a Sem with the given initial count, bounded by max
// (0 means use Config.SemaphoreMax). A max of 1 gives binary-semaphore
// behavior.
func (s *System) NewSem(initial, max uint32) *Sem {
	if max == 0 {
		max = s.cfg.SemaphoreMax
	}
	if initial > max {
		initial = max
	}
	sm := &Sem{sys: s, count: initial, max: max, waiters: newWaitQueue()}
	s.Lock()
	sm.id = s.sems.Insert(sm)
	s.Unlock()
	return sm
}

// Wait blocks up to timeout ticks for a unit to become available.
// Immediate behaves like TryWait.
func (sm *Sem) Wait(timeout Timeout) error {
	s := sm.sys
	s.Lock()
	defer s.Unlock()

	if sm.deleted {
		return WrapError("sem.Wait", sm.objectName(), ErrDeleted)
	}
	if sm.count > 0 {
		sm.count--
		return nil
	}
	if timeout == Immediate {
		return WrapError("sem.Wait", sm.objectName(), ErrLocked)
	}
	if err := s.blockOn(sm.waiters, timeout, TaskBlocked); err != nil {
		return WrapError("sem.Wait", sm.objectName(), err)
	}
	return nil
}

// WaitUntil blocks until the absolute tick deadline for a unit to become
// available. A deadline at or before the current tick behaves like
// TryWait.
func (sm *Sem) WaitUntil(deadline uint64) error {
	s := sm.sys
	s.Lock()
	defer s.Unlock()

	if sm.deleted {
		return WrapError("sem.WaitUntil", sm.objectName(), ErrDeleted)
	}
	if sm.count > 0 {
		sm.count--
		return nil
	}
	if tickAfterOrEqual(s.tickNow.Load(), deadline) {
		return WrapError("sem.WaitUntil", sm.objectName(), ErrLocked)
	}
	if err := s.blockUntil(sm.waiters, deadline, TaskBlocked); err != nil {
		return WrapError("sem.WaitUntil", sm.objectName(), err)
	}
	return nil
}

// TryWait acquires a unit without blocking, returning ErrLocked if none is
// available.
func (sm *Sem) TryWait() error {
	return sm.Wait(Immediate)
}

// Post releases one unit.
func (sm *Sem) Post() error {
	return sm.PostN(1)
}

// PostN releases n units at once, handing them directly to any already
// queued waiters before incrementing the count. Returns ErrOverflow
// (without releasing anything) if the post would exceed the configured
// max.
func (sm *Sem) PostN(n uint32) error {
	s := sm.sys
	s.Lock()
	defer s.Unlock()

	if sm.deleted {
		return WrapError("sem.Post", sm.objectName(), ErrDeleted)
	}

	// Units handed directly to waiters never touch count, so only the
	// leftover that would actually accumulate is checked against max, and
	// it is checked before any waiter is woken.
	queued := uint32(sm.waiters.Len())
	if n > queued && uint64(sm.count)+uint64(n-queued) > uint64(sm.max) {
		return WrapError("sem.Post", sm.objectName(), ErrOverflow)
	}

	remaining := n
	woken := 0
	for remaining > 0 {
		w := sm.waiters.Peek()
		if w == nil {
			break
		}
		sm.waiters.PopFront()
		s.wakeTask(w, waitWoken)
		remaining--
		woken++
	}
	sm.count += remaining
	if woken > 0 {
		s.maybePreempt()
	}
	return nil
}

// shutdown releases sm unconditionally as part of System.Shutdown: every
// waiter wakes with ErrDeleted. Caller holds System.Lock.
func (sm *Sem) shutdown() {
	sm.deleted = true
	for {
		w := sm.waiters.PopFront()
		if w == nil {
			break
		}
		sm.sys.wakeTask(w, waitDeleted)
	}
}

// Destroy releases sm and wakes every waiter with ErrDeleted.
func (sm *Sem) Destroy() error {
	s := sm.sys
	s.Lock()
	defer s.Unlock()
	if sm.deleted {
		return WrapError("sem.Destroy", sm.objectName(), ErrInvalid)
	}
	sm.shutdown()
	s.sems.Remove(sm.id)
	return nil
}

func (sm *Sem) objectName() string {
	return "sem#" + uitoa(sm.id)
}
