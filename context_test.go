// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package netloop

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestSignalDelivery verifies spec.md §8 property 1: for any signal
// number in range and a context in state Started, after a caller-thread
// signal(k) the service's signal_handler eventually observes k.
func TestSignalDelivery(t *testing.T) {
	ctx := NewAsyncContext()
	require.NoError(t, ctx.Init())
	defer ctx.Close()

	var observed atomic.Int64
	observed.Store(-1)
	ctx.SetSignalHandler(func(signum int) {
		observed.Store(int64(signum))
		if signum == SigUser1 {
			ctx.Scope().RequestStop()
			ctx.Scope().Leave()
		}
	})

	// A context driven directly (not via ContextThread) still needs at
	// least one in-flight continuation so Run doesn't exit immediately;
	// model that continuation as an explicit Enter, released by the
	// handler itself once the signal lands and stop is requested.
	ctx.Scope().Enter()
	done := make(chan struct{})
	go func() {
		_ = ctx.Run()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, ctx.Signal(SigUser1))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after stop was requested")
	}

	require.Equal(t, int64(SigUser1), observed.Load())
}

// TestPeriodicTimerUnderShutdown verifies the §8 "periodic timer under
// shutdown" seed scenario: a periodic timer armed before a terminate
// signal has fired at least twice by the time Run drains after that
// terminate.
func TestPeriodicTimerUnderShutdown(t *testing.T) {
	ctx := NewAsyncContext()
	require.NoError(t, ctx.Init())
	defer ctx.Close()

	var count atomic.Int64
	ctx.Scope().Enter()
	ctx.Timers().AddAfter(5*time.Millisecond, func(TimerId) {
		count.Add(1)
	}, 5*time.Millisecond)

	ctx.SetSignalHandler(func(signum int) {
		if signum == SigTerminate {
			ctx.Scope().Leave()
		}
	})

	done := make(chan struct{})
	go func() {
		_ = ctx.Run()
		close(done)
	}()

	time.Sleep(12 * time.Millisecond) // let at least two periods elapse
	require.NoError(t, ctx.Signal(SigTerminate))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not drain after terminate")
	}

	require.GreaterOrEqual(t, count.Load(), int64(2))
}

func TestAsyncContextSignalRejectsOutOfRange(t *testing.T) {
	ctx := NewAsyncContext()
	require.NoError(t, ctx.Init())
	defer ctx.Close()

	require.ErrorIs(t, ctx.Signal(-1), ErrInvalidSignal)
	require.ErrorIs(t, ctx.Signal(64), ErrInvalidSignal)
}
