// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLifecycleStateInitiallyPending(t *testing.T) {
	s := newLifecycleState()
	require.Equal(t, StatePending, s.Load())
}

func TestLifecycleStateStoreUpdatesLoad(t *testing.T) {
	s := newLifecycleState()
	s.Store(StateStarted)
	require.Equal(t, StateStarted, s.Load())
}

func TestLifecycleStateWaitUntilReturnsImmediatelyWhenAlreadyTarget(t *testing.T) {
	s := newLifecycleState()
	done := make(chan struct{})
	go func() {
		s.WaitUntil(StatePending)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitUntil did not return for an already-satisfied state")
	}
}

func TestLifecycleStateWaitUntilWakesOnTransition(t *testing.T) {
	s := newLifecycleState()
	done := make(chan struct{})
	go func() {
		s.WaitUntil(StateStopped)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("WaitUntil returned before the target state was reached")
	case <-time.After(20 * time.Millisecond):
	}

	s.Store(StateStarted)
	select {
	case <-done:
		t.Fatal("WaitUntil returned for the wrong state")
	case <-time.After(20 * time.Millisecond):
	}

	s.Store(StateStopped)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitUntil did not wake after the target transition")
	}
}

func TestStateString(t *testing.T) {
	require.Equal(t, "Pending", StatePending.String())
	require.Equal(t, "Started", StateStarted.String())
	require.Equal(t, "Stopped", StateStopped.String())
	require.Equal(t, "Unknown", State(99).String())
}
