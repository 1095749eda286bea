// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package kernel

// MutexType selects how a Mutex behaves when its current owner attempts to
// lock it again.
type MutexType uint8

const (
	// MutexNormal deadlocks (returns ErrDeadlock) on self-relock. The
	// source leaves this behavior undefined; this port chooses to detect
	// and report it rather than hang the calling task forever.
	MutexNormal MutexType = iota
	// MutexErrorCheck returns ErrDeadlock on self-relock.
	MutexErrorCheck
	// MutexRecursive allows the owner to relock, incrementing a hold
	// count that Unlock must match before the mutex actually releases.
	MutexRecursive
)

func (t MutexType) String() string {
	switch t {
	case MutexNormal:
		return "Normal"
	case MutexErrorCheck:
		return "ErrorCheck"
	case MutexRecursive:
		return "Recursive"
	default:
		return "Unknown"
	}
}

// MutexProtocol selects whether locking a Mutex applies priority
// inheritance to its current owner.
type MutexProtocol uint8

const (
	// MutexProtocolNone applies no priority inheritance.
	MutexProtocolNone MutexProtocol = iota
	// MutexProtocolInherit boosts the owner's effective priority to match
	// the highest-priority waiter for as long as it holds the mutex.
	MutexProtocolInherit
)

func (p MutexProtocol) String() string {
	if p == MutexProtocolInherit {
		return "Inherit"
	}
	return "None"
}

type mutexConfig struct {
	typ   MutexType
	proto MutexProtocol
}

// MutexOption configures a Mutex at construction, mirroring the System-wide
// functional-option pattern in options.go.
type MutexOption interface {
	apply(*mutexConfig)
}

type mutexOptionFunc func(*mutexConfig)

func (f mutexOptionFunc) apply(c *mutexConfig) { f(c) }

// WithMutexType overrides the System's default mutex type for one Mutex.
func WithMutexType(t MutexType) MutexOption {
	return mutexOptionFunc(func(c *mutexConfig) { c.typ = t })
}

// WithMutexProtocol overrides the System's default mutex protocol for one
// Mutex.
func WithMutexProtocol(p MutexProtocol) MutexOption {
	return mutexOptionFunc(func(c *mutexConfig) { c.proto = p })
}

// MutexPriorityInherit is shorthand for WithMutexProtocol(MutexProtocolInherit).
var MutexPriorityInherit MutexOption = WithMutexProtocol(MutexProtocolInherit)

// Mutex is a mutual-exclusion lock with optional priority inheritance
// (spec §5). Zero value is not usable; construct with System.NewMutex.
type Mutex struct {
	id       uint64
	sys      *System
	typ      MutexType
	protocol MutexProtocol

	owner     *Task
	lockCount int
	waiters   *waitQueue
	deleted   bool
}

// NewMutex constructs a Mutex. With no options it uses the System's
// configured default type/protocol (Config.DefaultMutexType/Protocol).
func (s *System) NewMutex(opts ...MutexOption) *Mutex {
	cfg := mutexConfig{typ: s.cfg.DefaultMutexType, proto: s.cfg.DefaultMutexProtocol}
	for _, o := range opts {
		if o != nil {
			o.apply(&cfg)
		}
	}
	m := &Mutex{sys: s, typ: cfg.typ, protocol: cfg.proto, waiters: newWaitQueue()}
	s.Lock()
	m.id = s.mutexes.Insert(m)
	s.Unlock()
	return m
}

// Lock blocks up to timeout ticks to acquire m. Immediate behaves like
// TryLock.
func (m *Mutex) Lock(timeout Timeout) error {
	s := m.sys
	s.Lock()
	defer s.Unlock()

	cur := s.current
	if done, err := m.fastLock("mutex.Lock", cur); done {
		return err
	}
	if timeout == Immediate {
		return WrapError("mutex.Lock", m.objectName(), ErrLocked)
	}

	m.boostForWaiter(cur)
	cur.blockedOn = m
	err := s.blockOn(m.waiters, timeout, TaskBlocked)
	cur.blockedOn = nil
	if err != nil {
		return WrapError("mutex.Lock", m.objectName(), err)
	}
	return nil
}

// LockUntil blocks until the absolute tick deadline to acquire m. A
// deadline at or before the current tick behaves like TryLock.
func (m *Mutex) LockUntil(deadline uint64) error {
	s := m.sys
	s.Lock()
	defer s.Unlock()

	cur := s.current
	if done, err := m.fastLock("mutex.LockUntil", cur); done {
		return err
	}
	if tickAfterOrEqual(s.tickNow.Load(), deadline) {
		return WrapError("mutex.LockUntil", m.objectName(), ErrLocked)
	}

	m.boostForWaiter(cur)
	cur.blockedOn = m
	err := s.blockUntil(m.waiters, deadline, TaskBlocked)
	cur.blockedOn = nil
	if err != nil {
		return WrapError("mutex.LockUntil", m.objectName(), err)
	}
	return nil
}

// fastLock handles the cases that never queue the caller: a deleted mutex,
// an uncontended acquire, and a self-relock. Returns done=false only when
// m is held by another task and the caller must decide whether to wait.
// Caller holds System.Lock.
func (m *Mutex) fastLock(op string, cur *Task) (bool, error) {
	if m.deleted {
		return true, WrapError(op, m.objectName(), ErrDeleted)
	}
	if m.owner == nil {
		m.acquire(cur)
		return true, nil
	}
	if m.owner == cur {
		if m.typ == MutexRecursive {
			m.lockCount++
			return true, nil
		}
		return true, WrapError(op, m.objectName(), ErrDeadlock)
	}
	return false, nil
}

// boostForWaiter applies priority inheritance on behalf of cur, about to
// queue on m. Caller holds System.Lock.
func (m *Mutex) boostForWaiter(cur *Task) {
	if m.protocol == MutexProtocolInherit && cur.priority < m.owner.priority {
		m.sys.boostPriority(m.owner, cur.priority)
		m.sys.metrics.InheritBoosts.Add(1)
	}
}

// TryLock acquires m without blocking, returning ErrLocked if it is
// currently held by another task.
func (m *Mutex) TryLock() error {
	return m.Lock(Immediate)
}

// Unlock releases m. Returns ErrNotOwner if the calling context does not
// hold it.
func (m *Mutex) Unlock() error {
	s := m.sys
	s.Lock()
	defer s.Unlock()

	cur := s.current
	if m.owner != cur {
		return WrapError("mutex.Unlock", m.objectName(), ErrNotOwner)
	}
	if m.typ == MutexRecursive && m.lockCount > 1 {
		m.lockCount--
		return nil
	}

	removeOwnedMutex(cur, m)
	m.owner = nil
	m.lockCount = 0
	s.restorePriority(cur)

	next := m.waiters.PopFront()
	if next == nil {
		return nil
	}
	m.acquire(next)
	s.wakeTask(next, waitWoken)
	s.maybePreempt()
	return nil
}

// acquire records owner as holding m. Caller holds System.Lock.
func (m *Mutex) acquire(owner *Task) {
	m.owner = owner
	m.lockCount = 1
	owner.ownedMutexes = append(owner.ownedMutexes, m)
}

// forceRelease abandons m on owner's behalf (owner terminated or was
// killed while holding it): every waiter wakes with ErrDeleted rather than
// being handed ownership, since the critical section owner never finished
// it. Caller holds System.Lock.
func (m *Mutex) forceRelease(owner *Task) {
	if m.owner != owner {
		return
	}
	m.owner = nil
	m.lockCount = 0
	for {
		w := m.waiters.PopFront()
		if w == nil {
			break
		}
		m.sys.wakeTask(w, waitDeleted)
	}
}

// shutdown releases m unconditionally as part of System.Shutdown: every
// waiter wakes with ErrDeleted and the mutex is marked deleted so any
// further Lock attempt fails immediately. Caller holds System.Lock.
func (m *Mutex) shutdown() {
	m.deleted = true
	m.owner = nil
	for {
		w := m.waiters.PopFront()
		if w == nil {
			break
		}
		m.sys.wakeTask(w, waitDeleted)
	}
}

// Destroy releases m and wakes every waiter with ErrDeleted.
func (m *Mutex) Destroy() error {
	s := m.sys
	s.Lock()
	defer s.Unlock()
	if m.deleted {
		return WrapError("mutex.Destroy", m.objectName(), ErrInvalid)
	}
	m.shutdown()
	s.mutexes.Remove(m.id)
	return nil
}

func (m *Mutex) objectName() string {
	return "mutex#" + uitoa(m.id)
}

func removeOwnedMutex(t *Task, m *Mutex) {
	for i, mx := range t.ownedMutexes {
		if mx == m {
			t.ownedMutexes = append(t.ownedMutexes[:i], t.ownedMutexes[i+1:]...)
			return
		}
	}
}

// boostPriority raises t's effective priority to p (inheritance),
// repositioning it on whichever queue it occupies. If t is itself blocked
// acquiring another inheriting mutex, the boost propagates to that mutex's
// owner, and so on down the chain. Caller holds System.Lock.
func (s *System) boostPriority(t *Task, p Priority) {
	for t != nil && p < t.priority {
		from := t.priority
		s.setTaskPriority(t, p)
		logMutexInherit(s.logger, 0, t.id, int(from), int(p))
		next := t.blockedOn
		if next == nil || next.protocol != MutexProtocolInherit {
			return
		}
		t = next.owner
	}
}

// restorePriority recomputes t's effective priority from its base priority
// and whatever inheriting mutexes it still owns, after releasing one.
// Caller holds System.Lock.
func (s *System) restorePriority(t *Task) {
	p := t.basePriority
	for _, mx := range t.ownedMutexes {
		if mx.protocol == MutexProtocolInherit {
			if top := mx.waiters.Peek(); top != nil && top.priority < p {
				p = top.priority
			}
		}
	}
	s.setTaskPriority(t, p)
}

// setTaskPriority changes t's effective priority, repositioning it in the
// ready list or the wait queue it is blocked on, whichever applies, so
// both stay priority-ordered. Caller holds System.Lock.
func (s *System) setTaskPriority(t *Task, p Priority) {
	if p == t.priority {
		return
	}
	switch {
	case t.State() == TaskReady:
		s.ready.Remove(t)
		t.priority = p
		s.ready.Push(t)
	case t.waitQ != nil:
		t.waitQ.Remove(t)
		t.priority = p
		t.waitQ.Insert(t)
	default:
		t.priority = p
	}
}
