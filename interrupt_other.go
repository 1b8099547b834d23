// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build !linux && !darwin

package netloop

// unsupportedInterruptSource always fails init, per spec.md §4.1: a
// platform without a socketpair-backed self-pipe leaves the context
// inert, and the enclosing context is expected to transition directly
// Pending -> Stopped on start.
type unsupportedInterruptSource struct{}

func newPlatformInterruptSource() interruptSource { return unsupportedInterruptSource{} }

func (unsupportedInterruptSource) init() error       { return ErrUnsupportedPlatform }
func (unsupportedInterruptSource) interrupt()        {}
func (unsupportedInterruptSource) readerFD() int     { return -1 }
func (unsupportedInterruptSource) closeWriter() error { return nil }
func (unsupportedInterruptSource) close() error       { return nil }
