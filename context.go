// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netloop

import "sync/atomic"

// Built-in signal numbers, per spec.md §4.3. Application-specific
// signals may extend this enumeration but must not exceed 63 to fit the
// sigmask.
const (
	SigTerminate = 0
	SigUser1     = 1
	SigEnd       = 2
)

// AsyncContext is the shared surface of one event loop: the multiplexer,
// the in-flight continuation tracker, the pending-signal bitmask, the
// lifecycle state, and the timer wheel (which owns the interrupt
// source). It is the Go analogue of the original async_context, adapted
// from the teacher's Loop (loop.go) which bundles an equivalent set of
// fields (poller, state, timers, wake pipe) behind one struct.
type AsyncContext struct {
	scope   *AsyncScope
	mux     multiplexer
	state   *lifecycleState
	timers  *TimerWheel
	sigmask atomic.Uint64
	log     Logger

	signalHandler func(signum int)
}

// SetSignalHandler installs the service's signal_handler, invoked by the
// ISR for each pending signal bit (spec.md §4.5 step 2). Exactly one
// handler may be installed per context; the built-in TCPService and
// UDPService call this during Start.
func (c *AsyncContext) SetSignalHandler(h func(signum int)) { c.signalHandler = h }

// NewAsyncContext constructs a context with its own multiplexer and
// timer wheel (and, through the wheel, its own interrupt source). Init
// must be called before Run.
func NewAsyncContext(opts ...Option) *AsyncContext {
	c := newConfig(opts...)
	return &AsyncContext{
		scope:  NewAsyncScope(),
		mux:    newMultiplexer(c.pollBufferSize),
		state:  newLifecycleState(),
		timers: NewTimerWheel(),
		log:    c.logger,
	}
}

// Init prepares the multiplexer and the timer wheel's interrupt source,
// then registers the interrupt source's reader fd with the ISR (§4.5).
// A failure here is fatal: the caller is expected to transition the
// context directly to StateStopped without ever reaching StateStarted.
func (c *AsyncContext) Init() error {
	if err := c.mux.Init(); err != nil {
		return err
	}
	if err := c.timers.Init(); err != nil {
		return err
	}
	isr := newISR(c)
	return c.mux.Register(c.timers.InterruptReaderFD(), EventRead, isr.onReadable)
}

// Scope returns the context's in-flight continuation tracker.
func (c *AsyncContext) Scope() *AsyncScope { return c.scope }

// Timers returns the context's timer wheel.
func (c *AsyncContext) Timers() *TimerWheel { return c.timers }

// Multiplexer returns the context's fd readiness multiplexer, for
// services to register sockets against.
func (c *AsyncContext) Multiplexer() multiplexer { return c.mux }

// State returns the current lifecycle state.
func (c *AsyncContext) State() State { return c.state.Load() }

// WaitUntil blocks the calling goroutine until the context reaches the
// given lifecycle state.
func (c *AsyncContext) WaitUntil(target State) { c.state.WaitUntil(target) }

// Signal sets bit signum in the pending-signal mask (an OR, never
// clearing other bits) and wakes the loop. Safe to call from any
// goroutine, including from within loop callbacks.
func (c *AsyncContext) Signal(signum int) error {
	if signum < 0 || signum > 63 {
		return ErrInvalidSignal
	}
	c.sigmask.Or(uint64(1) << uint(signum))
	c.Interrupt()
	return nil
}

// Interrupt wakes the loop without setting any signal bit, delegating
// to the timer wheel's embedded interrupt source per spec.md §4.3.
func (c *AsyncContext) Interrupt() { c.timers.Interrupt() }

// takeSignals atomically exchanges the pending-signal mask for 0,
// returning the snapshot. Used by the ISR (isr.go).
func (c *AsyncContext) takeSignals() uint64 { return c.sigmask.Swap(0) }

// Close releases the context's multiplexer and timer wheel.
func (c *AsyncContext) Close() error {
	err := c.mux.Close()
	if terr := c.timers.Close(); err == nil {
		err = terr
	}
	return err
}
