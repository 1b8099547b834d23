// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netloop

import (
	"net"
	"sync"
)

// Service is the contract a ContextThread drives, per spec.md §4.9: it
// installs whatever continuations it needs onto ctx during Start, and
// may request stop on the scope if construction fails. TCPService and
// UDPService both satisfy it.
type Service interface {
	Start(ctx *AsyncContext) error
}

// ContextThread owns one AsyncContext and one Service on a private
// worker goroutine, per spec.md §4.8.
type ContextThread struct {
	mu      sync.Mutex
	started bool
	opts    []Option
	build   func(ctx *AsyncContext) error

	ctx  *AsyncContext
	done chan struct{}
}

// NewContextThread constructs a context thread that, on Start, builds
// its service by calling build with a freshly initialized AsyncContext.
// Most callers will prefer NewTCPContextThread or NewUDPContextThread.
func NewContextThread(build func(ctx *AsyncContext) error, opts ...Option) *ContextThread {
	return &ContextThread{build: build, opts: opts}
}

// NewTCPContextThread is a convenience constructor wrapping a
// TCPService[H] as the thread's service.
func NewTCPContextThread[H TCPHandler](addr *net.TCPAddr, handler H, opts ...Option) *ContextThread {
	svc := NewTCPService(addr, handler, opts...)
	return NewContextThread(func(ctx *AsyncContext) error {
		return svc.Start(ctx)
	}, opts...)
}

// NewUDPContextThread is a convenience constructor wrapping a
// UDPService[H] as the thread's service.
func NewUDPContextThread[H UDPHandler](addr *net.UDPAddr, handler H, opts ...Option) *ContextThread {
	svc := NewUDPService(addr, handler, opts...)
	return NewContextThread(func(ctx *AsyncContext) error {
		return svc.Start(ctx)
	}, opts...)
}

// Start spawns the worker goroutine. It fails with ErrAlreadyStarted if
// called more than once on the same instance; the first Start is
// unaffected (spec.md §8 property 3).
func (ct *ContextThread) Start() error {
	ct.mu.Lock()
	if ct.started {
		ct.mu.Unlock()
		return ErrAlreadyStarted
	}
	ct.started = true
	ct.mu.Unlock()

	ctx := NewAsyncContext(ct.opts...)
	ct.ctx = ctx

	if err := ctx.Init(); err != nil {
		// Self-pipe/multiplexer creation failure is fatal: transition
		// straight to Stopped without ever entering Started, per
		// spec.md §4.1 and the fault-injection testable property.
		ctx.state.Store(StateStopped)
		return nil
	}

	ct.done = make(chan struct{})
	go ct.run(ctx)
	return nil
}

func (ct *ContextThread) run(ctx *AsyncContext) {
	defer close(ct.done)

	_ = ct.build(ctx) // failures request stop on ctx.Scope(); see error handling design §7

	ctx.state.Store(StateStarted)

	if ctx.Scope().StopRequested() {
		_ = ctx.Signal(SigTerminate)
	}

	_ = ctx.Run()

	_ = ctx.Timers().CloseInterruptWriter()
	ctx.state.Store(StateStopped)
}

// State returns the thread's current lifecycle state. Safe to call at
// any point, including before Start.
func (ct *ContextThread) State() State {
	ct.mu.Lock()
	ctx := ct.ctx
	ct.mu.Unlock()
	if ctx == nil {
		return StatePending
	}
	return ctx.State()
}

// WaitUntil blocks until the thread's context reaches target. It must
// be called after Start has returned.
func (ct *ContextThread) WaitUntil(target State) {
	ct.mu.Lock()
	ctx := ct.ctx
	ct.mu.Unlock()
	if ctx == nil {
		return
	}
	ctx.WaitUntil(target)
}

// Signal forwards to the owned context's Signal. Safe to call from any
// goroutine once Start has returned, including before the worker
// reaches Started.
func (ct *ContextThread) Signal(signum int) error {
	ct.mu.Lock()
	ctx := ct.ctx
	ct.mu.Unlock()
	if ctx == nil {
		return ErrPollerClosed
	}
	return ctx.Signal(signum)
}

// Close is the destructor-equivalent described in spec.md §4.8: if the
// thread was started, it signals terminate and waits for the worker
// goroutine to exit. Safe to call from any point after Start returned,
// including before the state has reached Started, and safe to call more
// than once.
func (ct *ContextThread) Close() error {
	ct.mu.Lock()
	started := ct.started
	ctx := ct.ctx
	done := ct.done
	ct.mu.Unlock()
	if !started || ctx == nil {
		return nil
	}
	if done == nil {
		// Init failed during Start; nothing to join.
		return nil
	}
	_ = ctx.Signal(SigTerminate)
	<-done
	return nil
}
