// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package kernel

// Cond is a condition variable (spec §5): Wait atomically releases an
// owned Mutex and blocks, re-acquiring the mutex before returning
// regardless of whether it woke due to Signal/Broadcast, a timeout, or
// cancellation.
type Cond struct {
	id      uint64
	sys     *System
	waiters *waitQueue
	deleted bool
}

// NewCond constructs a Cond.
func (s *System) NewCond() *Cond {
	c := &Cond{sys: s, waiters: newWaitQueue()}
	s.Lock()
	c.id = s.conds.Insert(c)
	s.Unlock()
	return c
}

// Wait releases mx, blocks up to timeout ticks for Signal/Broadcast, and
// re-acquires mx before returning. The caller must hold mx. If mx is
// MutexRecursive and held more than once, Wait releases every level of the
// hold and re-acquires mx with a hold count of one; the earlier count is
// not restored.
func (c *Cond) Wait(mx *Mutex, timeout Timeout) error {
	s := c.sys
	s.Lock()
	if c.deleted {
		s.Unlock()
		return WrapError("cond.Wait", c.objectName(), ErrDeleted)
	}
	cur := s.current
	if mx.owner != cur {
		s.Unlock()
		return WrapError("cond.Wait", c.objectName(), ErrNotOwner)
	}
	s.releaseMutexForWait(mx)
	waitErr := s.blockOn(c.waiters, timeout, TaskBlocked)
	s.Unlock()

	if lockErr := mx.Lock(Infinite); lockErr != nil && waitErr == nil {
		waitErr = lockErr
	}
	return WrapError("cond.Wait", c.objectName(), waitErr)
}

// WaitUntil is Wait with an absolute tick deadline instead of a relative
// timeout. A deadline at or before the current tick reports ErrTimeout at
// once; the mutex is still released and re-acquired, keeping the contract
// that the caller holds mx on return no matter how the wait ended.
func (c *Cond) WaitUntil(mx *Mutex, deadline uint64) error {
	s := c.sys
	s.Lock()
	if c.deleted {
		s.Unlock()
		return WrapError("cond.WaitUntil", c.objectName(), ErrDeleted)
	}
	cur := s.current
	if mx.owner != cur {
		s.Unlock()
		return WrapError("cond.WaitUntil", c.objectName(), ErrNotOwner)
	}
	s.releaseMutexForWait(mx)
	waitErr := s.blockUntil(c.waiters, deadline, TaskBlocked)
	s.Unlock()

	if lockErr := mx.Lock(Infinite); lockErr != nil && waitErr == nil {
		waitErr = lockErr
	}
	return WrapError("cond.WaitUntil", c.objectName(), waitErr)
}

// Signal wakes one waiter, if any.
func (c *Cond) Signal() error {
	s := c.sys
	s.Lock()
	defer s.Unlock()
	if c.deleted {
		return WrapError("cond.Signal", c.objectName(), ErrDeleted)
	}
	if w := c.waiters.PopFront(); w != nil {
		s.wakeTask(w, waitWoken)
		s.maybePreempt()
	}
	return nil
}

// Broadcast wakes every waiter.
func (c *Cond) Broadcast() error {
	s := c.sys
	s.Lock()
	defer s.Unlock()
	if c.deleted {
		return WrapError("cond.Broadcast", c.objectName(), ErrDeleted)
	}
	woke := false
	for {
		w := c.waiters.PopFront()
		if w == nil {
			break
		}
		s.wakeTask(w, waitWoken)
		woke = true
	}
	if woke {
		s.maybePreempt()
	}
	return nil
}

// shutdown releases c unconditionally as part of System.Shutdown: every
// waiter wakes with ErrDeleted. Caller holds System.Lock.
func (c *Cond) shutdown() {
	c.deleted = true
	for {
		w := c.waiters.PopFront()
		if w == nil {
			break
		}
		c.sys.wakeTask(w, waitDeleted)
	}
}

// Destroy releases c and wakes every waiter with ErrDeleted.
func (c *Cond) Destroy() error {
	s := c.sys
	s.Lock()
	defer s.Unlock()
	if c.deleted {
		return WrapError("cond.Destroy", c.objectName(), ErrInvalid)
	}
	c.shutdown()
	s.conds.Remove(c.id)
	return nil
}

func (c *Cond) objectName() string {
	return "cond#" + uitoa(c.id)
}

// releaseMutexForWait implements the "atomically unlock and wait" half of
// Cond.Wait, reusing Mutex.Unlock's hand-off logic without re-taking
// System.Lock (the caller already holds it). Caller holds System.Lock.
func (s *System) releaseMutexForWait(m *Mutex) {
	cur := s.current
	removeOwnedMutex(cur, m)
	m.owner = nil
	m.lockCount = 0
	s.restorePriority(cur)
	if next := m.waiters.PopFront(); next != nil {
		m.acquire(next)
		s.wakeTask(next, waitWoken)
	}
}
