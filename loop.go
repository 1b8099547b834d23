// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netloop

import "time"

// waitMsFor converts the duration until the next live timer deadline
// (as returned by TimerWheel.Resolve) into a millisecond timeout for the
// multiplexer: -1 to wait indefinitely when there is no live timer, else
// the ceiling of next rounded up to whole milliseconds and floored at 0.
func waitMsFor(next time.Duration) int {
	if next < 0 {
		return -1
	}
	ms := next / time.Millisecond
	if next%time.Millisecond != 0 {
		ms++
	}
	if ms < 0 {
		ms = 0
	}
	return int(ms)
}

// Run drives the context's event loop to quiescence, implementing the
// driver step of spec.md §4.4. It returns once the async scope has
// drained: either because it emptied out naturally with nothing left
// ready on the multiplexer, or because a stop was requested and every
// in-flight continuation observed it.
//
// Run is not safe to call concurrently with another Run on the same
// context, and must be called from the goroutine that owns the
// context's registrations (the single-threaded-cooperative model of
// spec.md §5).
func (c *AsyncContext) Run() error {
	for {
		next := c.timers.Resolve()
		waitMs := waitMsFor(next)

		n, err := c.mux.Wait(waitMs)
		if err != nil {
			return err
		}

		empty := c.scope.IsEmpty()
		if empty && (n == 0 || c.scope.StopRequested()) {
			return nil
		}
	}
}
