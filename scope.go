// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netloop

import "sync/atomic"

// AsyncScope tracks the in-flight continuations (pending accept,
// recvmsg, sendmsg, timer waits, ...) installed by services onto an
// AsyncContext, and the cooperative stop token they all read. It is
// grounded on the teacher's own loop.go inflight-tracking pair
// (promisifyWg sync.WaitGroup + inflight atomic.Int64): rather than a
// WaitGroup, which only supports a single blocking Wait, this uses a
// bare counter plus an edge-triggered empty flag so the loop driver
// (loop.go) can poll IsEmpty() once per iteration without blocking, per
// spec.md §4.4's "on-empty sentinel".
type AsyncScope struct {
	inflight      atomic.Int64
	empty         atomic.Bool
	stopRequested atomic.Bool
}

// NewAsyncScope returns a scope with no in-flight continuations.
func NewAsyncScope() *AsyncScope {
	s := &AsyncScope{}
	s.empty.Store(true)
	return s
}

// Enter registers the start of one continuation (an accept, a recvmsg,
// a sendmsg, ...). Every Enter must be matched by exactly one Leave.
func (s *AsyncScope) Enter() {
	s.inflight.Add(1)
	s.empty.Store(false)
}

// Leave registers the completion of one continuation started by Enter.
// If this was the last in-flight continuation, the scope's empty flag is
// set, which the loop driver observes on its next poll.
func (s *AsyncScope) Leave() {
	if s.inflight.Add(-1) == 0 {
		s.empty.Store(true)
	}
}

// IsEmpty reports whether the scope currently has zero in-flight
// continuations. It is the Go-idiomatic stand-in for spec.md §4.4's
// sentinel continuation: instead of installing a fake continuation that
// flips an atomic when the count reaches zero, the count's own
// zero-crossing is observed directly.
func (s *AsyncScope) IsEmpty() bool { return s.empty.Load() }

// RequestStop sets the cooperative stop token. Continuations read
// StopRequested at their next step and return without respawning.
func (s *AsyncScope) RequestStop() { s.stopRequested.Store(true) }

// StopRequested reports whether RequestStop has been called.
func (s *AsyncScope) StopRequested() bool { return s.stopRequested.Load() }
