// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netloop

import "sync"

// State is the lifecycle of an AsyncContext / ContextThread.
type State int32

const (
	StatePending State = iota
	StateStarted
	StateStopped
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateStarted:
		return "Started"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// lifecycleState is an atomic State that additionally supports
// wait-on-value: spec.md §5 requires "state supports wait-on-value
// (notify after each transition)", a capability the teacher's FastState
// (state.go) does not have — it is plain atomic load/CAS with no
// blocking wait. sync.Cond is the standard-library primitive for exactly
// this broadcast-after-mutation shape; no third-party example in the
// pack offers a ready-made condition variable, so this one component is
// stdlib by necessity (see DESIGN.md).
type lifecycleState struct {
	mu    sync.Mutex
	cond  *sync.Cond
	value State
}

func newLifecycleState() *lifecycleState {
	s := &lifecycleState{value: StatePending}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Load returns the current state.
func (s *lifecycleState) Load() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Store sets the state and wakes every waiter blocked in WaitUntil.
func (s *lifecycleState) Store(v State) {
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
	s.cond.Broadcast()
}

// WaitUntil blocks until the state equals target, returning immediately
// if it already does.
func (s *lifecycleState) WaitUntil(target State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.value != target {
		s.cond.Wait()
	}
}
