// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netloop

import (
	"time"

	"golang.org/x/sys/unix"
)

// gracefulDrainPeriod is the safety-net re-fire interval for the
// terminate signal during graceful shutdown (spec.md §4.5 step 3).
const gracefulDrainPeriod = time.Second

// isr is the loop-thread-only reader of the context's self-pipe,
// converting a wakeup into dispatch of pending signal bits. It is
// constructed once per AsyncContext and registered as the callback for
// the interrupt source's reader fd.
type isr struct {
	ctx        *AsyncContext
	safetyNet  TimerId
	readBuf    [1024]byte
}

func newISR(ctx *AsyncContext) *isr {
	return &isr{ctx: ctx, safetyNet: InvalidTimerId}
}

// onReadable is the multiplexer callback for the self-pipe's reader fd.
// It drains the pending byte(s), dispatches signal bits, and — unless a
// stop has since been requested — leaves the fd registered so the next
// interrupt() wakes the loop again (the multiplexer is level-triggered,
// so no explicit re-arm read is needed beyond draining the buffer). Once
// a stop has been requested it unregisters the fd instead.
func (r *isr) onReadable(IOEvents) {
	fd := r.ctx.timers.InterruptReaderFD()
	n, err := unix.Read(fd, r.readBuf[:])
	if err != nil || n == 0 {
		// First failed read: return without respawning, per spec.md §4.5
		// step 4. The multiplexer registration is left in place; a
		// subsequent interrupt() (if the writer is still open) will
		// simply re-invoke us.
		return
	}
	r.dispatch()
	if r.ctx.scope.StopRequested() {
		_ = r.ctx.mux.Unregister(fd)
	}
}

func (r *isr) dispatch() {
	mask := r.ctx.takeSignals()
	if mask == 0 {
		return
	}
	for i := 0; i <= 63; i++ {
		if mask&(uint64(1)<<uint(i)) == 0 {
			continue
		}
		if r.ctx.signalHandler != nil {
			r.ctx.signalHandler(i)
		}
		if i == SigTerminate {
			r.onTerminate()
		}
	}
}

func (r *isr) onTerminate() {
	r.ctx.scope.RequestStop()
	if r.safetyNet != InvalidTimerId {
		return
	}
	r.safetyNet = r.ctx.timers.AddAfter(gracefulDrainPeriod, func(TimerId) {
		if r.ctx.scope.IsEmpty() {
			return
		}
		if r.ctx.signalHandler != nil {
			r.ctx.signalHandler(SigTerminate)
		}
	}, gracefulDrainPeriod)
}
