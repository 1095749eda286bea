// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package kernel

import (
	"math/bits"
	"sort"
)

// priorityLevel is one distinct Priority value's FIFO run queue: an
// intrusive doubly-linked list through Task.qNext/qPrev, so enqueue and
// dequeue never allocate.
type priorityLevel struct {
	priority   Priority
	head, tail *Task
	count      int
}

func (l *priorityLevel) pushBack(t *Task) {
	t.qNext, t.qPrev = nil, l.tail
	if l.tail != nil {
		l.tail.qNext = t
	} else {
		l.head = t
	}
	l.tail = t
	l.count++
}

func (l *priorityLevel) popFront() *Task {
	t := l.head
	if t == nil {
		return nil
	}
	l.unlink(t)
	return t
}

func (l *priorityLevel) unlink(t *Task) {
	if t.qPrev != nil {
		t.qPrev.qNext = t.qNext
	} else {
		l.head = t.qNext
	}
	if t.qNext != nil {
		t.qNext.qPrev = t.qPrev
	} else {
		l.tail = t.qPrev
	}
	t.qNext, t.qPrev = nil, nil
	l.count--
}

// readyList is the priority-ordered run queue (spec §3/§4): a slice of
// priorityLevel buckets kept sorted ascending by Priority (lower value runs
// first), with a uint64 occupancy bitmap over the first 64 levels giving
// O(1) highest-priority selection. A level is created the first time a task
// is pushed at its priority and is never removed, so once more than 64
// distinct priority values have ever been pushed, selection falls back to a
// linear scan of the (still sorted, so still correct) level slice, even if
// fewer levels are occupied at that moment; this mirrors the bitmap
// dependency-tracking idea used for O(1) reservation-station selection in
// an out-of-order pipeline, applied here to O(1) ready-task selection.
type readyList struct {
	levels []*priorityLevel
	bitmap uint64
}

func newReadyList() *readyList {
	return &readyList{}
}

// levelFor returns the bucket for priority, creating and inserting it in
// sorted position if this is the first task ever seen at that priority.
func (r *readyList) levelFor(p Priority) (*priorityLevel, int) {
	i := sort.Search(len(r.levels), func(i int) bool { return r.levels[i].priority >= p })
	if i < len(r.levels) && r.levels[i].priority == p {
		return r.levels[i], i
	}
	lvl := &priorityLevel{priority: p}
	r.levels = append(r.levels, nil)
	copy(r.levels[i+1:], r.levels[i:])
	r.levels[i] = lvl
	return lvl, i
}

// Push makes t ready at its configured priority. Caller holds System.Lock.
func (r *readyList) Push(t *Task) {
	before := len(r.levels)
	lvl, idx := r.levelFor(t.priority)
	lvl.pushBack(t)
	t.qLevel = lvl
	if len(r.levels) != before {
		// A new bucket was inserted in sorted position, shifting every
		// existing bucket at or after idx up by one slot; their bitmap
		// bits no longer match their (new) index, so resync rather than
		// just OR in the new bit.
		r.syncBitmap()
		return
	}
	if idx < 64 {
		r.bitmap |= 1 << uint(idx)
	}
}

// Remove takes t off the ready list regardless of its position (used when
// a task is suspended or killed while still merely ready). Caller holds
// System.Lock.
func (r *readyList) Remove(t *Task) bool {
	lvl := t.qLevel
	if lvl == nil {
		return false
	}
	lvl.unlink(t)
	t.qLevel = nil
	r.syncBitmap()
	return true
}

// PopHighest removes and returns the highest-priority ready task, or nil.
// Caller holds System.Lock.
func (r *readyList) PopHighest() *Task {
	idx := r.highestIndex()
	if idx < 0 {
		return nil
	}
	lvl := r.levels[idx]
	t := lvl.popFront()
	if t != nil {
		t.qLevel = nil
	}
	if lvl.count == 0 {
		if idx < 64 {
			r.bitmap &^= 1 << uint(idx)
		}
	}
	return t
}

// PeekHighest returns the highest-priority ready task without removing it.
func (r *readyList) PeekHighest() *Task {
	idx := r.highestIndex()
	if idx < 0 {
		return nil
	}
	return r.levels[idx].head
}

func (r *readyList) highestIndex() int {
	if len(r.levels) == 0 {
		return -1
	}
	if len(r.levels) <= 64 {
		if r.bitmap == 0 {
			return -1
		}
		return bits.TrailingZeros64(r.bitmap)
	}
	for i, lvl := range r.levels {
		if lvl.count > 0 {
			return i
		}
	}
	return -1
}

// syncBitmap recomputes occupancy for the first 64 levels. Called after a
// Remove, which can empty an arbitrary bucket rather than only bucket 0.
func (r *readyList) syncBitmap() {
	r.bitmap = 0
	for i := 0; i < len(r.levels) && i < 64; i++ {
		if r.levels[i].count > 0 {
			r.bitmap |= 1 << uint(i)
		}
	}
}

// Len reports the total number of ready tasks across all levels.
func (r *readyList) Len() int {
	n := 0
	for _, lvl := range r.levels {
		n += lvl.count
	}
	return n
}
