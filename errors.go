// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netloop

import "errors"

// Sentinel errors returned by this package. Callers should prefer
// errors.Is over string comparison.
var (
	// ErrAlreadyStarted is returned by (*ContextThread).Start when called
	// more than once on the same instance. The first Start is unaffected.
	ErrAlreadyStarted = errors.New("netloop: context thread already started")

	// ErrInvalidSignal is returned by (*AsyncContext).Signal when signum is
	// negative or greater than 63, the range a 64-bit signal mask can hold.
	// SigTerminate/SigUser1/SigEnd are merely the built-in reservations
	// within that range; application-defined signals may use the rest.
	ErrInvalidSignal = errors.New("netloop: signal number out of range")

	// ErrPollerClosed is returned by multiplexer operations performed after
	// Close.
	ErrPollerClosed = errors.New("netloop: poller closed")

	// ErrFDAlreadyRegistered is returned by Register when the fd is already
	// known to the multiplexer.
	ErrFDAlreadyRegistered = errors.New("netloop: fd already registered")

	// ErrFDNotRegistered is returned by Modify/Unregister for an fd the
	// multiplexer does not know about.
	ErrFDNotRegistered = errors.New("netloop: fd not registered")

	// ErrUnsupportedPlatform is returned by the interrupt source's init and
	// the multiplexer's operations on platforms without a socketpair-backed
	// self-pipe (anything other than linux/darwin).
	ErrUnsupportedPlatform = errors.New("netloop: unsupported platform")
)
