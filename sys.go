// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package kernel

import (
	"sync/atomic"
	"time"
)

// System is the portable kernel core: one per application, holding the
// ready list, the delay queue, the tick counter, and every synchronization
// object created against it. All scheduler state is mutated only while
// System.Lock is held (syslock.go).
type System struct { // betteralign:ignore
	cfg    Config
	fault  *Fault
	logger Logger
	sl     syslock

	port Port

	ready    *readyList
	delay    delayQueue
	tickNow  atomic.Uint64
	isrQueue *isrPendQueue

	current *Task
	idle    *Task
	main    *Task

	tasks   *registry[*Task]
	mutexes *registry[*Mutex]
	sems    *registry[*Sem]
	conds   *registry[*Cond]
	onces   *registry[*OnceFlag]

	metrics *Metrics

	state atomic.Uint32 // SysState

	tickStop chan struct{}
	tickDone chan struct{}
}

// NewSystem constructs a System, starts its tick ISR simulation, and
// returns it ready for CreateTask/NewMutex/NewSem/NewCond/NewOnceFlag
// calls. The caller is responsible for calling Shutdown once done.
func NewSystem(opts ...Option) (*System, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := getGlobalLogger()
	s := &System{
		cfg:      cfg,
		fault:    newFault(),
		logger:   logger,
		port:     newGoroutinePort(),
		ready:    newReadyList(),
		isrQueue: newIsrPendQueue(),
		tasks:    newRegistry[*Task](),
		mutexes:  newRegistry[*Mutex](),
		sems:     newRegistry[*Sem](),
		conds:    newRegistry[*Cond](),
		onces:    newRegistry[*OnceFlag](),
		metrics:  newMetrics(),
		tickStop: make(chan struct{}),
		tickDone: make(chan struct{}),
	}
	s.main = &Task{
		name:         "main",
		sys:          s,
		basePriority: Priority(cfg.MainPriority),
		priority:     Priority(cfg.MainPriority),
		stackSize:    cfg.DefaultStackSize,
		state:        newFastState(TaskRunning),
		// main never goes through Port.Spawn (it is the host goroutine
		// that called NewSystem, already running), but it still needs its
		// own gate so switchTo's Park/Resume pair works the next time the
		// scheduler switches away from and back to it.
		gate:    make(chan struct{}, 1),
		joiners: newWaitQueue(),
	}
	s.main.id = s.tasks.Insert(s.main)
	s.current = s.main

	s.idle = &Task{
		name:         "idle",
		sys:          s,
		basePriority: PriorityIdle,
		priority:     PriorityIdle,
		stackSize:    cfg.IdleStackSize,
		state:        newFastState(TaskSuspended),
		joiners:      newWaitQueue(),
	}
	s.idle.id = s.tasks.Insert(s.idle)
	s.port.Spawn(s.idle, func() { s.idleLoop() })

	s.state.Store(uint32(SysRunning))
	go s.tickLoop()

	return s, nil
}

func (s *System) idleLoop() {
	pinCPUCore()
	period := s.cfg.tickPeriod()
	for {
		if s.state.Load() == uint32(SysHalted) {
			return
		}
		time.Sleep(period)
		s.Yield()
	}
}

func (s *System) tickLoop() {
	defer close(s.tickDone)
	ticker := time.NewTicker(s.cfg.tickPeriod())
	defer ticker.Stop()
	for {
		select {
		case <-s.tickStop:
			return
		case <-ticker.C:
			s.tickHandler()
		}
	}
}

// Metrics returns this System's runtime statistics.
func (s *System) Metrics() *Metrics {
	return s.metrics
}

// State reports the System's own run state.
func (s *System) State() SysState {
	return SysState(s.state.Load())
}

// Current returns the task presently holding the processor. Called from a
// task's own entry function this is the task itself; called from outside
// any task (a monitoring goroutine) it is a snapshot that may be stale by
// the time it is used.
func (s *System) Current() *Task {
	s.Lock()
	defer s.Unlock()
	return s.current
}

// Delay blocks the calling task for the given number of ticks, like
// Task.Sleep for whichever task is current. Delay(Immediate) yields once
// and returns.
func (s *System) Delay(ticks Timeout) error {
	if ticks == Immediate {
		s.Yield()
		return nil
	}
	s.Lock()
	err := s.delayCurrent(ticks)
	s.Unlock()
	if err == ErrTimeout {
		// Reaching the deadline is a plain delay's successful outcome.
		return nil
	}
	return WrapError("system.Delay", "", err)
}

// DelayUntil blocks the calling task until the tick counter reaches the
// absolute deadline. A deadline at or before the current tick yields once
// and returns.
func (s *System) DelayUntil(deadline uint64) error {
	s.Lock()
	if tickAfterOrEqual(s.tickNow.Load(), deadline) {
		s.yieldCurrent()
		s.Unlock()
		return nil
	}
	err := s.delayCurrentUntil(deadline)
	s.Unlock()
	if err == ErrTimeout {
		return nil
	}
	return WrapError("system.DelayUntil", "", err)
}

// Pend queues fn to run from the next tick handler, the way a real port's
// interrupt handler defers kernel mutations it cannot perform in interrupt
// context. fn runs with the kernel lock already held, so it must use the
// lock-held internal primitives (or plain state mutation), never the public
// blocking API. Safe to call from any goroutine, including ones that are
// not kernel tasks. Returns false and discards fn if fn is nil or the
// System has halted.
func (s *System) Pend(fn func()) bool {
	if fn == nil || s.State() == SysHalted {
		return false
	}
	return s.isrQueue.Push(fn)
}

// Yield relinquishes control from the calling context (ordinarily the
// goroutine that called NewSystem, i.e. the implicit "main" task) back to
// the scheduler, the same way Task.Yield does for a created task.
func (s *System) Yield() {
	s.Lock()
	s.yieldCurrent()
	s.Unlock()
}

// Run repeatedly yields the calling goroutine to the scheduler until
// Shutdown is called. It is the simplest way for a host program's main
// goroutine to let every created task run to completion.
func (s *System) Run() {
	for s.State() != SysHalted {
		s.Yield()
	}
}

// CreateTask allocates a new Task bound to this System, suspended until
// Start is called.
func (s *System) CreateTask(name string, priority Priority, fn func(*Task)) (*Task, error) {
	if fn == nil {
		return nil, WrapError("system.CreateTask", "", ErrInvalid)
	}
	t := &Task{
		name:         name,
		sys:          s,
		basePriority: priority,
		priority:     priority,
		stackSize:    s.cfg.DefaultStackSize,
		state:        newFastState(TaskSuspended),
		entry:        fn,
		joiners:      newWaitQueue(),
	}
	t.id = s.tasks.Insert(t)
	s.port.Spawn(t, func() { s.runEntry(t) })
	return t, nil
}

// runEntry is what every task goroutine (other than idle) actually runs: a
// panic barrier around the application entry function, followed by the
// configured ExitPolicy.
func (s *System) runEntry(t *Task) {
	defer func() {
		if r := recover(); r != nil {
			s.Lock()
			s.Assert(false, "task.panic", "task %s panicked: %v", t.objectName(), r)
			s.Unlock()
		}
	}()

	t.entry(t)

	s.Lock()
	if t.State() == TaskStopped {
		s.Unlock() // already force-stopped (e.g. Kill) while running
		return
	}
	switch s.cfg.ExitPolicy {
	case ExitLoopForever:
		defer s.Unlock()
		for {
			s.yieldCurrent()
		}
	default:
		t.wake = waitWoken
		s.terminate(t)
		s.tasks.Remove(t.id)
		// This goroutine is returning for good: dispatch the next task
		// directly rather than through reschedule()/switchTo, which would
		// Park it waiting for a Resume that, for a task already removed
		// from the registry, will never come (see Task.Kill's documented
		// goroutine-leak tradeoff for the one case where that parking is
		// intentional; a normal return must not pay the same cost).
		s.exitAndDispatch()
	}
}

// admit makes t ready and dispatches immediately if the CPU was otherwise
// idle, or preempts the running task if warranted. Caller holds Lock.
func (s *System) admit(t *Task) {
	from := t.State()
	t.state.Store(TaskReady)
	s.ready.Push(t)
	s.metrics.Ready.Update(s.ready.Len())
	logTaskStateChange(s.logger, t.id, from, TaskReady)
	if s.current == nil || s.current == s.idle {
		s.reschedule()
		return
	}
	s.maybePreempt()
}

// reschedule picks the highest-priority ready task (falling back to idle)
// and switches to it. Caller holds Lock, and must be running on the
// current task's own goroutine (or be the bootstrap path where current is
// nil).
func (s *System) reschedule() {
	next := s.ready.PopHighest()
	s.metrics.Ready.Update(s.ready.Len())
	if next == nil {
		next = s.idle
	}
	s.switchTo(next)
}

// exitAndDispatch hands off to the next ready task (falling back to idle) as
// the very last thing a normally-terminating task's own goroutine does.
// Unlike reschedule/switchTo it does not park the caller afterward: that
// goroutine is about to return from runEntry and exit for good, so parking
// it pending a Resume that will never arrive would only leak it. Caller
// holds Lock; Lock is released, not reacquired, by this call — callers must
// treat it as a terminal action, not pair it with a deferred Unlock.
func (s *System) exitAndDispatch() {
	next := s.ready.PopHighest()
	s.metrics.Ready.Update(s.ready.Len())
	if next == nil {
		next = s.idle
	}
	s.current = next
	next.state.Store(TaskRunning)
	s.metrics.ContextSwitches.Increment()
	s.port.Resume(next)
	s.Unlock()
}

// maybePreempt switches immediately to a just-readied higher-priority task
// under SchedulingPreemptive. Under SchedulingCooperative it is a no-op:
// the new task waits on the ready list until current yields or blocks.
func (s *System) maybePreempt() {
	if s.cfg.Variant != SchedulingPreemptive || s.current == nil {
		return
	}
	top := s.ready.PeekHighest()
	if top == nil || top.priority >= s.current.priority {
		return
	}
	s.ready.Remove(top)
	cur := s.current
	cur.state.Store(TaskReady)
	s.ready.Push(cur)
	s.metrics.Ready.Update(s.ready.Len())
	s.switchTo(top)
}

// switchTo hands control to next, parking the outgoing task's goroutine
// (if any) until it is itself switched back to. Caller holds Lock; the
// lock is released for the duration next runs and reacquired once this
// goroutine (the outgoing task) is resumed again.
func (s *System) switchTo(next *Task) {
	prev := s.current
	if prev == next {
		next.state.Store(TaskRunning)
		return
	}
	s.current = next
	next.state.Store(TaskRunning)
	s.metrics.ContextSwitches.Increment()
	s.port.Resume(next)
	if prev == nil {
		return
	}
	s.Unlock()
	s.port.Park(prev)
	s.Lock()
}

// yieldCurrent puts the current task back on the ready list and
// dispatches the next one. Caller holds Lock.
func (s *System) yieldCurrent() {
	cur := s.current
	cur.state.Store(TaskReady)
	s.ready.Push(cur)
	s.reschedule()
}

// delayCurrent blocks the current task for ticks, via the shared delay
// queue. Caller holds Lock.
func (s *System) delayCurrent(ticks Timeout) error {
	return s.delayCurrentUntil(s.tickNow.Load() + uint64(ticks))
}

// delayCurrentUntil blocks the current task until the absolute tick
// deadline. Caller holds Lock.
func (s *System) delayCurrentUntil(deadline uint64) error {
	cur := s.current
	cur.state.Store(TaskDelayed)
	cur.delay = s.scheduleDelay(cur, deadline)
	s.reschedule()
	cur.delay = nil
	return cur.wake.err()
}

// blockOn queues the current task on wq, with an optional bounded timeout
// measured in ticks from now. Caller holds Lock.
func (s *System) blockOn(wq *waitQueue, timeout Timeout, reason TaskState) error {
	if timeout == Infinite {
		return s.block(wq, 0, false, reason)
	}
	return s.block(wq, s.tickNow.Load()+uint64(timeout), true, reason)
}

// blockUntil queues the current task on wq with an absolute tick deadline.
// A deadline at or before the current tick fails with ErrTimeout without
// blocking. Caller holds Lock.
func (s *System) blockUntil(wq *waitQueue, deadline uint64, reason TaskState) error {
	if tickAfterOrEqual(s.tickNow.Load(), deadline) {
		return ErrTimeout
	}
	return s.block(wq, deadline, true, reason)
}

// block queues the current task on wq and dispatches the next task. When
// this goroutine is resumed again, it unlinks itself from wherever it still
// is (the timeout/cancel path; the success path has already been unlinked
// by whoever woke it) and reports the result. Caller holds Lock.
func (s *System) block(wq *waitQueue, deadline uint64, bounded bool, reason TaskState) error {
	cur := s.current
	cur.state.Store(reason)
	cur.waitQ = wq
	wq.Insert(cur)
	if bounded {
		cur.delay = s.scheduleDelay(cur, deadline)
	}
	s.reschedule()

	wq.Remove(cur)
	cur.waitQ = nil
	if cur.delay != nil {
		s.cancelDelay(cur.delay)
		cur.delay = nil
	}
	return cur.wake.err()
}

// wakeTask transfers t from whatever it is blocked/delayed on back onto
// the ready list, with the given wake result. It never dispatches, so it is
// safe from any task's own goroutine context (mutex/sem/cond notify paths)
// and from tick-handler context (a function queued with Pend); deadline
// expiry itself goes through wakeDelayed. Caller holds Lock.
func (s *System) wakeTask(t *Task, result waitResult) {
	if t.waitQ != nil {
		t.waitQ.Remove(t)
		t.waitQ = nil
	}
	if t.delay != nil {
		s.cancelDelay(t.delay)
		t.delay = nil
	}
	t.wake = result
	t.state.Store(TaskReady)
	s.ready.Push(t)
	s.metrics.Ready.Update(s.ready.Len())
}

// wakeDelayed is expireDelays' (tick.go) notification of a deadline firing.
// Like wakeTask it never calls into the scheduler dispatch path: it runs
// on the tick ISR's own goroutine, which must never park or resume a task
// directly (see tick.go). A task whose bounded wait on an object expired is
// still linked into that object's wait queue here, and must be unlinked
// before the ready list reuses the same qNext/qPrev fields.
func (s *System) wakeDelayed(t *Task) {
	if t.waitQ != nil {
		t.waitQ.Remove(t)
		t.waitQ = nil
	}
	t.delay = nil
	t.wake = waitTimeout
	t.state.Store(TaskReady)
	s.ready.Push(t)
	s.metrics.Ready.Update(s.ready.Len())
}

// terminate runs a task's exit path: release any mutexes it still owns,
// wake its joiners, and mark it Stopped. Caller holds Lock.
func (s *System) terminate(t *Task) {
	from := t.State()
	t.state.Store(TaskStopped)
	logTaskStateChange(s.logger, t.id, from, TaskStopped)
	owned := t.ownedMutexes
	t.ownedMutexes = nil
	for _, mx := range owned {
		mx.forceRelease(t)
	}
	for {
		j := t.joiners.PopFront()
		if j == nil {
			break
		}
		s.wakeTask(j, waitWoken)
	}
}

// forceStop implements Task.Kill: it unlinks t from whatever queue it is
// on, runs its exit path, and if t was the currently running task, hands
// control to whoever is next (this goroutine is never resumed again,
// mirroring a real target simply reclaiming a killed task's TCB without
// unwinding its remaining code). Caller holds Lock.
func (s *System) forceStop(t *Task, reason waitResult) {
	wasCurrent := t == s.current
	if t.State() == TaskReady {
		s.ready.Remove(t)
		s.metrics.Ready.Update(s.ready.Len())
	}
	// A Blocked task with a bounded timeout is on both its object's wait
	// queue and the delay queue; unlink from both unconditionally.
	if t.waitQ != nil {
		t.waitQ.Remove(t)
		t.waitQ = nil
	}
	if t.delay != nil {
		s.cancelDelay(t.delay)
		t.delay = nil
	}
	t.wake = reason
	s.terminate(t)
	s.tasks.Remove(t.id)
	if wasCurrent {
		s.reschedule()
	}
}

// Shutdown halts the System: stops the tick ISR, force-stops every task
// (spec's "Shutdown wakes and releases everything"), and releases every
// synchronization object's waiters. Safe to call more than once.
func (s *System) Shutdown() {
	s.Lock()
	if s.state.Load() == uint32(SysHalted) {
		s.Unlock()
		return
	}
	s.state.Store(uint32(SysHalted))
	close(s.tickStop)

	var victims []*Task
	s.tasks.Each(func(id uint64, t *Task) {
		if t != s.main {
			victims = append(victims, t)
		}
	})
	for _, t := range victims {
		if t.State() != TaskStopped {
			s.forceStop(t, waitDeleted)
		}
	}

	s.mutexes.RejectAll(func(id uint64, mx *Mutex) { mx.shutdown() })
	s.sems.RejectAll(func(id uint64, sm *Sem) { sm.shutdown() })
	s.conds.RejectAll(func(id uint64, c *Cond) { c.shutdown() })
	s.onces.RejectAll(func(id uint64, o *OnceFlag) { o.shutdown() })

	s.Unlock()
	<-s.tickDone
}
