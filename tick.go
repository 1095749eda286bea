// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package kernel

import (
	"container/heap"
	"time"
)

// tickBefore reports whether a occurred strictly before b on the tick
// counter, tolerating exactly one wraparound of the counter (the signed
// 64-bit difference trick): as long as no two compared ticks are ever more
// than 2^63 ticks apart, this is correct across a wrap from
// ^uint64(0) back to 0, unlike a naive a < b comparison.
func tickBefore(a, b uint64) bool {
	return int64(a-b) < 0
}

// tickAfterOrEqual is the complement of tickBefore.
func tickAfterOrEqual(a, b uint64) bool {
	return !tickBefore(a, b)
}

// delayEntry is one task parked on the delay queue: a Sleep call, or any
// blocking call with a bounded Timeout.
type delayEntry struct {
	deadline uint64
	task     *Task
	index    int // heap.Interface bookkeeping
}

// delayQueue is a tick-deadline-ordered min-heap, the kernel's single delay
// queue (spec: every bounded wait, whether Task.Sleep or a Timeout passed
// to Mutex.Lock/Sem.Wait/Cond.Wait, shares this one structure). Ordering
// uses tickBefore rather than <, so it stays correct across a tick-counter
// wraparound.
type delayQueue []*delayEntry

func (q delayQueue) Len() int { return len(q) }
func (q delayQueue) Less(i, j int) bool {
	return tickBefore(q[i].deadline, q[j].deadline)
}
func (q delayQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}
func (q *delayQueue) Push(x any) {
	e := x.(*delayEntry)
	e.index = len(*q)
	*q = append(*q, e)
}
func (q *delayQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}

// scheduleDelay arms deadline for task on the delay queue. Caller holds
// System.Lock.
func (s *System) scheduleDelay(task *Task, deadline uint64) *delayEntry {
	e := &delayEntry{deadline: deadline, task: task}
	heap.Push(&s.delay, e)
	s.metrics.Delay.Update(s.delay.Len())
	return e
}

// cancelDelay removes e from the delay queue if it is still present.
// Caller holds System.Lock.
func (s *System) cancelDelay(e *delayEntry) {
	if e == nil || e.index < 0 {
		return
	}
	heap.Remove(&s.delay, e.index)
	s.metrics.Delay.Update(s.delay.Len())
}

// expireDelays wakes every task whose deadline has arrived. Caller holds
// System.Lock.
func (s *System) expireDelays(now uint64) {
	for s.delay.Len() > 0 {
		e := s.delay[0]
		if tickBefore(now, e.deadline) {
			break
		}
		heap.Pop(&s.delay)
		e.index = -1
		s.wakeDelayed(e.task)
	}
	s.metrics.Delay.Update(s.delay.Len())
}

// tickHandler is invoked once per tick interrupt (sys.go's tickLoop
// goroutine simulates the hardware timer interrupt). It advances the tick
// counter, expires deadlines, drains ISR-deferred requests, and runs the
// configured tick hook, all under System.Lock, matching a real port's
// tick ISR running with interrupts otherwise masked.
func (s *System) tickHandler() {
	start := time.Now()
	s.Lock()
	defer s.Unlock()
	defer func() { s.metrics.TickLatency.Record(time.Since(start)) }()

	now := s.tickNow.Add(1)
	if now == 0 {
		logTickWrap(s.logger, now)
	}

	for {
		fn := s.isrQueue.Pop()
		if fn == nil {
			break
		}
		fn()
	}

	s.expireDelays(now)

	if s.cfg.Hooks.OnTick != nil {
		s.cfg.Hooks.OnTick(now)
	}

	// Note: the tick ISR only moves expired tasks onto the ready list; it
	// never dispatches. Actually switching which task runs requires parking
	// the outgoing task's own goroutine (port.go), which can only safely
	// happen from that task's own execution context, not this ticker
	// goroutine's. A task running under SchedulingPreemptive picks up a
	// just-woken higher-priority task the next time it yields, blocks,
	// wakes another task through a kernel call, or calls
	// Task.CheckPreempt, bounding (not eliminating) preemption latency.
}

// Now returns the current tick count.
func (s *System) Now() uint64 {
	return s.tickNow.Load()
}
