// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netloop

// IOEvents is a bitmask of readiness conditions reported by the
// multiplexer, independent of the underlying epoll/kqueue representation.
type IOEvents uint32

const (
	EventRead IOEvents = 1 << iota
	EventWrite
	EventError
	EventHangup
)

// IOCallback is invoked by the multiplexer when the registered fd becomes
// ready for the events it was registered with. It runs on the owning
// AsyncContext's loop goroutine; it must not block.
type IOCallback func(events IOEvents)

// multiplexer is the fd-readiness backend used by an AsyncContext: epoll on
// linux, kqueue on darwin, and a closed-door stub everywhere else (see
// poller_other.go). It is not safe for concurrent use from more than one
// goroutine at a time, matching the loop's single-goroutine ownership
// model; registrations may legally be mutated from within a callback
// invoked during Wait.
type multiplexer interface {
	// Init prepares the multiplexer for use (creates the underlying
	// epoll/kqueue fd). It must be called exactly once before Register.
	Init() error

	// Register starts monitoring fd for events, invoking cb on readiness.
	Register(fd int, events IOEvents, cb IOCallback) error

	// Modify changes the event mask for an already-registered fd.
	Modify(fd int, events IOEvents) error

	// Unregister stops monitoring fd. It is safe to call from within a
	// callback for a different fd.
	Unregister(fd int) error

	// Wait blocks up to timeoutMs (or indefinitely, if negative) for
	// readiness on one or more registered fds, dispatching their
	// callbacks before returning the number of fds that were ready.
	Wait(timeoutMs int) (int, error)

	// Close releases the underlying epoll/kqueue fd. Further calls to
	// Register/Modify/Unregister/Wait return ErrPollerClosed.
	Close() error
}

// newMultiplexer constructs the platform multiplexer with room for
// bufferSize events per Wait call.
func newMultiplexer(bufferSize int) multiplexer {
	if bufferSize <= 0 {
		bufferSize = defaultPollBufferSize
	}
	return newPlatformMultiplexer(bufferSize)
}
