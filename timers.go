// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netloop

import (
	"container/heap"
	"sync"
	"time"
)

// TimerId identifies a scheduled timer. IDs are recycled through a
// free-list as timers are removed or fire one-shot, so a stale TimerId
// held past removal may silently be reused by a later Add.
type TimerId int

// InvalidTimerId is the "no timer" sentinel. Add never returns it, and
// it is a safe no-op argument to Remove.
const InvalidTimerId TimerId = -1

// NoDeadline is the sentinel Resolve returns when the wheel holds no live
// timers: "wait indefinitely" in the event loop driver (spec.md §4.4).
const NoDeadline time.Duration = -1

// TimerHandler is invoked with the id of the timer that fired.
type TimerHandler func(id TimerId)

// event is the per-id record; it is retained (not deleted) across
// removal so that a stale heap ref can be recognized and dropped lazily,
// per spec.md §4.2.
type event struct {
	handler TimerHandler
	period  time.Duration
	start   time.Time
	armed   bool
}

// eventRef is a pending firing: an id plus the deadline it was pushed
// with. The heap orders by expiresAt; a ref is stale if the event it
// names has since been unarmed or rescheduled to a different start.
type eventRef struct {
	expiresAt time.Time
	id        TimerId
}

type refHeap []eventRef

func (h refHeap) Len() int            { return len(h) }
func (h refHeap) Less(i, j int) bool  { return h[i].expiresAt.Before(h[j].expiresAt) }
func (h refHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *refHeap) Push(x any)         { *h = append(*h, x.(eventRef)) }
func (h *refHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TimerWheel is a monotonic-clock-based min-heap of one-shot and periodic
// timers, resolved cooperatively by the event loop driver. It embeds an
// interruptSource so Add/Remove can wake a loop blocked in the
// multiplexer to recompute its wait (spec.md §4.2). The heap itself is
// stdlib container/heap, exactly as the teacher's own loop.go timerHeap
// does for its (unrelated) task scheduling — no third-party priority
// queue improves on that.
type TimerWheel struct {
	mu        sync.Mutex
	events    map[TimerId]*event
	freeList  []TimerId
	nextID    TimerId
	pending   refHeap
	interrupt interruptSource
	now       func() time.Time
}

// NewTimerWheel constructs a wheel with its own interrupt source. init
// must succeed before the wheel is used from a loop; a failure here is
// surfaced by the owning AsyncContext per spec.md §4.1.
func NewTimerWheel() *TimerWheel {
	return &TimerWheel{
		events:    make(map[TimerId]*event),
		interrupt: newInterruptSource(),
		now:       time.Now,
	}
}

// Init creates the wheel's self-pipe. See interruptSource.init.
func (w *TimerWheel) Init() error { return w.interrupt.init() }

// InterruptReaderFD is the fd the ISR registers with the multiplexer.
func (w *TimerWheel) InterruptReaderFD() int { return w.interrupt.readerFD() }

// Interrupt wakes a loop blocked in the multiplexer's Wait.
func (w *TimerWheel) Interrupt() { w.interrupt.interrupt() }

// Close releases the wheel's interrupt source.
func (w *TimerWheel) Close() error { return w.interrupt.close() }

// CloseInterruptWriter closes only the writer half of the wheel's
// self-pipe, used by ContextThread at shutdown (spec.md §4.8 step 2h).
func (w *TimerWheel) CloseInterruptWriter() error { return w.interrupt.closeWriter() }

func (w *TimerWheel) allocID() TimerId {
	n := len(w.freeList)
	if n > 0 {
		id := w.freeList[n-1]
		w.freeList = w.freeList[:n-1]
		return id
	}
	id := w.nextID
	w.nextID++
	return id
}

// Add schedules handler to fire at deadline, and every period thereafter
// if period > 0. It interrupts the loop so it recomputes its wait.
func (w *TimerWheel) Add(deadline time.Time, handler TimerHandler, period time.Duration) TimerId {
	w.mu.Lock()
	id := w.allocID()
	w.events[id] = &event{handler: handler, period: period, start: deadline, armed: true}
	heap.Push(&w.pending, eventRef{expiresAt: deadline, id: id})
	w.mu.Unlock()
	w.interrupt.interrupt()
	return id
}

// AddAfter schedules handler to fire after d (and every period
// thereafter, if period > 0), computed from the wheel's clock.
func (w *TimerWheel) AddAfter(d time.Duration, handler TimerHandler, period time.Duration) TimerId {
	return w.Add(w.now().Add(d), handler, period)
}

// Remove unarms id and returns it to the free-list. The stale heap ref
// is dropped lazily when resolve surfaces it. Remove(InvalidTimerId) is
// a no-op.
func (w *TimerWheel) Remove(id TimerId) {
	if id == InvalidTimerId {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	ev, ok := w.events[id]
	if !ok || !ev.armed {
		return
	}
	ev.armed = false
	w.freeList = append(w.freeList, id)
}

// Resolve fires every timer whose deadline has passed and returns the
// duration until the next live deadline, or NoDeadline if the wheel is
// now empty. The wheel's lock is released while invoking handlers so
// that re-entrant Add/Remove calls from within a handler do not
// deadlock.
func (w *TimerWheel) Resolve() time.Duration {
	for {
		w.mu.Lock()
		if w.pending.Len() == 0 {
			w.mu.Unlock()
			return NoDeadline
		}
		top := w.pending[0]
		ev, ok := w.events[top.id]
		if !ok || !ev.armed || !ev.start.Equal(top.expiresAt) {
			// Stale: the event was removed or rescheduled since this
			// ref was pushed.
			heap.Pop(&w.pending)
			w.mu.Unlock()
			continue
		}
		now := w.now()
		if top.expiresAt.After(now) {
			wait := top.expiresAt.Sub(now)
			w.mu.Unlock()
			return wait
		}
		heap.Pop(&w.pending)

		handler := ev.handler
		if ev.period > 0 {
			ev.start = ev.start.Add(ev.period)
			heap.Push(&w.pending, eventRef{expiresAt: ev.start, id: top.id})
		} else {
			ev.armed = false
			w.freeList = append(w.freeList, top.id)
		}
		w.mu.Unlock()

		handler(top.id)
	}
}
