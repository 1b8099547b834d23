// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netloop

// interruptSource is a fire-and-forget wakeup for a loop blocked in the
// multiplexer's Wait. It is the self-pipe described in spec.md §4.1: a
// connected pair of UNIX-domain stream sockets on linux/darwin (see
// interrupt_unix.go), and an inert, always-failing pair on every other
// platform (see interrupt_other.go).
type interruptSource interface {
	// init creates the underlying socket pair. Failure here is fatal to
	// the owning context: it transitions directly Pending -> Stopped.
	init() error

	// interrupt writes exactly one byte to the writer end with
	// no-SIGPIPE semantics. It never blocks beyond what a single byte
	// forces and silently swallows write errors.
	interrupt()

	// readerFD is the fd to register with the multiplexer for EventRead;
	// the ISR drains it (spec.md §4.5).
	readerFD() int

	// closeWriter closes the writer half only, used by ContextThread at
	// shutdown (spec.md §4.8 step 2h).
	closeWriter() error

	// close releases both halves.
	close() error
}

// newInterruptSource is a package-level variable, not a plain function,
// so tests can substitute a faulty implementation to exercise the
// socketpair-creation-failure path (spec.md §8's fault-injection seed
// scenario) — the same seam the teacher's loop.go provides via its
// testHooks field for deterministic testing of otherwise-unreachable
// branches.
var newInterruptSource = func() interruptSource {
	return newPlatformInterruptSource()
}
