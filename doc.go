// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package netloop is a small, embeddable asynchronous networking runtime: a
// single-goroutine event loop that multiplexes readiness notifications for a
// set of sockets, dispatches callbacks for completed I/O, and drives a
// priority queue of timers.
//
// Around that core it exposes two protocol-specialized service templates, a
// stream (TCP) acceptor/reader and a datagram (UDP) reader, that install
// themselves on the loop and emit received buffers to a user-supplied
// handler. A [ContextThread] owns exactly one such loop on a private worker
// goroutine and exposes a thread-safe signal/terminate interface.
//
// # Architecture
//
// An [AsyncContext] bundles the I/O multiplexer, an [AsyncScope] tracking
// in-flight continuations, a signal bitmask, a lifecycle [State], and a
// [TimerWheel]. The event loop driver in loop.go polls the multiplexer,
// resolves due timers, and exits once the scope has drained.
//
// # Platform support
//
// The interrupt source is a connected pair of UNIX-domain stream sockets
// (a self-pipe); the multiplexer is epoll on Linux and kqueue on Darwin.
// Other platforms get an inert poller/interrupt pair that fails a context
// straight to [StateStopped] on start, per spec.
//
// # Usage
//
//	ct := netloop.NewTCPContextThread(addr, handler)
//	if err := ct.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	ct.WaitUntil(netloop.StateStarted)
//	// ...
//	ct.Signal(netloop.SigTerminate)
package netloop
