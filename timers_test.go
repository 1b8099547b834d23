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

func newTestWheel(t *testing.T) *TimerWheel {
	t.Helper()
	w := NewTimerWheel()
	require.NoError(t, w.Init())
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestTimerWheelResolveEmptyReturnsNoDeadline(t *testing.T) {
	w := newTestWheel(t)
	require.Equal(t, NoDeadline, w.Resolve())
}

func TestTimerWheelOneShotFires(t *testing.T) {
	w := newTestWheel(t)
	var fired atomic.Bool
	var gotID atomic.Int64

	id := w.AddAfter(10*time.Millisecond, func(fid TimerId) {
		fired.Store(true)
		gotID.Store(int64(fid))
	}, 0)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if w.Resolve() == NoDeadline && fired.Load() {
			break
		}
		time.Sleep(time.Millisecond)
	}

	require.True(t, fired.Load())
	require.Equal(t, int64(id), gotID.Load())
}

// TestTimerIDReuse verifies spec.md §8 property 4: after remove(id)
// followed by at least one resolve(), a subsequent add returns the same
// id value.
func TestTimerIDReuse(t *testing.T) {
	w := newTestWheel(t)

	id1 := w.AddAfter(time.Hour, func(TimerId) {}, 0)
	w.Remove(id1)
	w.Resolve()

	id2 := w.AddAfter(time.Hour, func(TimerId) {}, 0)
	require.Equal(t, id1, id2)
	w.Remove(id2)
}

func TestTimerWheelRemoveInvalidIsNoOp(t *testing.T) {
	w := newTestWheel(t)
	w.Remove(InvalidTimerId)
}

// TestTimerWheelNextDeadlineCorrectness verifies spec.md §8 property 5.
func TestTimerWheelNextDeadlineCorrectness(t *testing.T) {
	w := newTestWheel(t)
	w.AddAfter(200*time.Millisecond, func(TimerId) {}, 0)

	next := w.Resolve()
	require.GreaterOrEqual(t, next, time.Duration(0))
	require.LessOrEqual(t, next, 200*time.Millisecond)
}

// TestTimerWheelPeriodicCadence verifies spec.md §8 property 6: a
// periodic timer with period P fires floor(T/P) +/- 1 times over an
// interval T.
func TestTimerWheelPeriodicCadence(t *testing.T) {
	w := newTestWheel(t)
	const period = 20 * time.Millisecond
	var count atomic.Int64

	w.AddAfter(period, func(TimerId) { count.Add(1) }, period)

	const observe = 10 * period
	deadline := time.Now().Add(observe)
	for time.Now().Before(deadline) {
		w.Resolve()
		time.Sleep(time.Millisecond)
	}

	got := count.Load()
	want := int64(observe / period)
	require.InDelta(t, want, got, 1)
}

func TestTimerWheelRemoveDropsStaleRef(t *testing.T) {
	w := newTestWheel(t)
	var fired atomic.Bool

	id := w.AddAfter(5*time.Millisecond, func(TimerId) { fired.Store(true) }, 0)
	w.Remove(id)

	time.Sleep(20 * time.Millisecond)
	w.Resolve()

	require.False(t, fired.Load())
}

func TestTimerHandlerCanReschedule(t *testing.T) {
	w := newTestWheel(t)
	var second atomic.Bool

	var firstID TimerId
	firstID = w.AddAfter(5*time.Millisecond, func(TimerId) {
		w.AddAfter(5*time.Millisecond, func(TimerId) { second.Store(true) }, 0)
	}, 0)
	require.NotEqual(t, InvalidTimerId, firstID)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && !second.Load() {
		w.Resolve()
		time.Sleep(time.Millisecond)
	}
	require.True(t, second.Load())
}
