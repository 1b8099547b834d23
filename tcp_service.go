// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netloop

import (
	"net"
	"sync"
	"sync/atomic"
)

// TCPHandler is the capability a caller supplies to a TCPService: the
// emit hook invoked with every received buffer (or a nil buffer on
// close/error). This is the Go stand-in for spec.md §9's CRTP-style
// static dispatch — a plain interface, no inheritance.
type TCPHandler interface {
	Emit(ctx *AsyncContext, dialog Dialog, rctx *ReadContext, buf []byte)
}

// TCPInitializer is an optional capability: if a handler implements it,
// Initialize is called with the listening fd before bind, and a non-nil
// error aborts startup without installing an acceptor (spec.md §4.6
// step 3).
type TCPInitializer interface {
	Initialize(fd int) error
}

// TCPService accepts connections on a bound listening socket and emits
// received buffers to H, per spec.md §4.6. It is parameterized by the
// handler type rather than built on inheritance, per the §9 design note
// on re-architecting the original's CRTP base.
type TCPService[H TCPHandler] struct {
	addr    *net.TCPAddr
	handler H
	cfg     *config

	listenFD  int
	boundAddr *net.TCPAddr
	stopHook  func()
	stopOnce  sync.Once

	connsMu sync.Mutex
	conns   map[int]*tcpConn
}

// tcpConn tracks one accepted connection so stopHook can force-drain it
// on terminate, rather than waiting for it to become readable again.
type tcpConn struct {
	fd      int
	dialog  Dialog
	stopped atomic.Bool
}

// NewTCPService constructs a service bound to addr once Start is called.
func NewTCPService[H TCPHandler](addr *net.TCPAddr, handler H, opts ...Option) *TCPService[H] {
	return &TCPService[H]{
		addr:     addr,
		handler:  handler,
		cfg:      newConfig(opts...),
		listenFD: -1,
		conns:    make(map[int]*tcpConn),
	}
}

// Addr returns the socket's bound address, valid only once Start has
// returned successfully (recorded via getsockname, spec.md §4.6 step 5).
func (s *TCPService[H]) Addr() *net.TCPAddr { return s.boundAddr }

// Start implements the construction algorithm of spec.md §4.6.
func (s *TCPService[H]) Start(ctx *AsyncContext) error {
	ip := s.addr.IP
	if ip == nil {
		ip = net.IPv4zero
	}

	fd, err := newStreamSocket(ip)
	if err != nil {
		ctx.Scope().RequestStop()
		return err
	}
	if err := setReuseAddr(fd); err != nil {
		closeFD(fd)
		ctx.Scope().RequestStop()
		return err
	}
	if s.cfg.reusePort {
		if err := setReusePort(fd); err != nil {
			closeFD(fd)
			ctx.Scope().RequestStop()
			return err
		}
	}

	if init, ok := any(s.handler).(TCPInitializer); ok {
		if err := init.Initialize(fd); err != nil {
			closeFD(fd)
			ctx.Scope().RequestStop()
			return err
		}
	}

	if err := bindSocket(fd, ip, s.addr.Port); err != nil {
		closeFD(fd)
		ctx.Scope().RequestStop()
		return err
	}

	bound, err := getsocknameTCP(fd)
	if err != nil {
		closeFD(fd)
		ctx.Scope().RequestStop()
		return err
	}
	s.boundAddr = bound

	if err := listenSocket(fd, s.cfg.acceptBacklog); err != nil {
		closeFD(fd)
		ctx.Scope().RequestStop()
		return err
	}
	s.listenFD = fd

	ctx.Scope().Enter() // the acceptor continuation
	if err := ctx.Multiplexer().Register(fd, EventRead, s.acceptor(ctx)); err != nil {
		ctx.Scope().Leave()
		closeFD(fd)
		ctx.Scope().RequestStop()
		return err
	}

	s.stopHook = func() {
		// sync.Once makes this safe to call repeatedly: the §4.5 safety-net
		// timer re-invokes signalHandler (and therefore this hook) every
		// gracefulDrainPeriod until the scope empties, which it otherwise
		// would not if any accepted connection is idle.
		s.stopOnce.Do(func() {
			ctx.Scope().RequestStop()
			_ = ctx.Multiplexer().Unregister(s.listenFD)
			closeFD(s.listenFD)
			s.listenFD = -1
			ctx.Scope().Leave()

			s.connsMu.Lock()
			conns := make([]*tcpConn, 0, len(s.conns))
			for _, c := range s.conns {
				conns = append(conns, c)
			}
			s.connsMu.Unlock()
			// Force-drain every open connection: the loop is a single
			// cooperative goroutine, so closing these fds here is safe
			// without any self-connect trick to unblock a waiter (see
			// Open Question 3 in DESIGN.md) — an idle connection would
			// otherwise never become readable again and the scope would
			// never empty.
			for _, c := range conns {
				s.closeConn(ctx, c)
			}
		})
	}
	ctx.SetSignalHandler(s.signalHandler)
	return nil
}

// acceptor returns the multiplexer callback for the listening fd. Each
// invocation accepts at most one pending connection; epoll/kqueue's
// level-triggered readiness re-invokes the callback if more connections
// remain, which is this package's stand-in for the original's explicit
// acceptor respawn (spec.md §9, self-recursive continuations).
func (s *TCPService[H]) acceptor(ctx *AsyncContext) IOCallback {
	return func(IOEvents) {
		if ctx.Scope().StopRequested() {
			return
		}
		fd, peer, err := acceptSocket(s.listenFD)
		if err != nil {
			ctx.log.Warn("tcp accept failed", F("error", err))
			return
		}
		rctx := NewReadContext(s.cfg.readBufferSize)
		conn := &tcpConn{fd: fd, dialog: Dialog{FD: fd, Addr: peer}}
		s.connsMu.Lock()
		s.conns[fd] = conn
		s.connsMu.Unlock()
		ctx.Scope().Enter()
		if err := ctx.Multiplexer().Register(fd, EventRead, s.reader(ctx, conn, rctx)); err != nil {
			ctx.Scope().Leave()
			s.connsMu.Lock()
			delete(s.conns, fd)
			s.connsMu.Unlock()
			closeFD(fd)
			return
		}
	}
}

// reader returns the multiplexer callback for one accepted connection.
func (s *TCPService[H]) reader(ctx *AsyncContext, conn *tcpConn, rctx *ReadContext) IOCallback {
	return func(IOEvents) {
		if conn.stopped.Load() {
			return
		}
		n, err := recvStream(conn.fd, rctx.Buffer())
		if err != nil || n == 0 {
			s.closeConn(ctx, conn)
			s.handler.Emit(ctx, conn.dialog, rctx, nil)
			return
		}
		s.handler.Emit(ctx, conn.dialog, rctx, rctx.Buffer()[:n])
	}
}

// closeConn unregisters and closes one connection, matching its accept-
// time Scope().Enter() with a Leave(). Idempotent via conn.stopped, since
// both the reader callback and stopHook's drain pass can reach it.
func (s *TCPService[H]) closeConn(ctx *AsyncContext, conn *tcpConn) {
	if conn.stopped.Swap(true) {
		return
	}
	_ = ctx.Multiplexer().Unregister(conn.fd)
	closeFD(conn.fd)
	s.connsMu.Lock()
	delete(s.conns, conn.fd)
	s.connsMu.Unlock()
	ctx.Scope().Leave()
}

// SignalObserver is an optional handler capability: if implemented, it
// is called for every signal dispatched to this service (including
// terminate), letting a handler react to application-defined signals
// such as user1 without taking over shutdown (spec.md §8 property 1 and
// the "user1 signal" seed scenario).
type SignalObserver interface {
	HandleSignal(signum int)
}

// signalHandler invokes the recorded stop hook on terminate, per
// spec.md §4.6's "signal_handler(terminate) invokes the recorded stop_
// hook", and additionally forwards every signal to the handler if it
// implements SignalObserver.
func (s *TCPService[H]) signalHandler(signum int) {
	if obs, ok := any(s.handler).(SignalObserver); ok {
		obs.HandleSignal(signum)
	}
	if signum == SigTerminate && s.stopHook != nil {
		s.stopHook()
	}
}
