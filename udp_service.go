// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netloop

import (
	"net"
	"sync/atomic"
)

// UDPHandler is the capability a caller supplies to a UDPService.
type UDPHandler interface {
	Emit(ctx *AsyncContext, dialog Dialog, rctx *ReadContext, buf []byte)
}

// UDPInitializer mirrors TCPInitializer for datagram sockets.
type UDPInitializer interface {
	Initialize(fd int) error
}

// UDPService reads datagrams on a bound socket and emits them to H, per
// spec.md §4.7. Unlike TCPService there is no acceptor. The reader stays
// registered on the multiplexer from Start until shutdown and is invoked
// for every datagram; handlers have no way to pause or re-arm it.
type UDPService[H UDPHandler] struct {
	addr    *net.UDPAddr
	handler H
	cfg     *config

	serverFD  atomic.Int64 // holds the fd, or -1 once shut down
	boundAddr *net.UDPAddr
}

// NewUDPService constructs a service bound to addr once Start is
// called.
func NewUDPService[H UDPHandler](addr *net.UDPAddr, handler H, opts ...Option) *UDPService[H] {
	s := &UDPService[H]{addr: addr, handler: handler, cfg: newConfig(opts...)}
	s.serverFD.Store(-1)
	return s
}

// Addr returns the socket's bound address, valid once Start has
// returned successfully.
func (s *UDPService[H]) Addr() *net.UDPAddr { return s.boundAddr }

// Start implements the construction algorithm of spec.md §4.7.
func (s *UDPService[H]) Start(ctx *AsyncContext) error {
	ip := s.addr.IP
	if ip == nil {
		ip = net.IPv4zero
	}

	fd, err := newDatagramSocket(ip)
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

	if init, ok := any(s.handler).(UDPInitializer); ok {
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

	bound, err := getsocknameUDP(fd)
	if err != nil {
		closeFD(fd)
		ctx.Scope().RequestStop()
		return err
	}
	s.boundAddr = bound
	s.serverFD.Store(int64(fd))

	rctx := NewReadContext(s.cfg.readBufferSize)
	ctx.Scope().Enter()
	if err := ctx.Multiplexer().Register(fd, EventRead, s.reader(ctx, fd, rctx)); err != nil {
		ctx.Scope().Leave()
		s.serverFD.Store(-1)
		closeFD(fd)
		ctx.Scope().RequestStop()
		return err
	}

	ctx.SetSignalHandler(s.signalHandler)
	return nil
}

func (s *UDPService[H]) reader(ctx *AsyncContext, fd int, rctx *ReadContext) IOCallback {
	return func(IOEvents) {
		n, peer, err := recvFromUDP(fd, rctx.Buffer())
		if err != nil {
			if s.serverFD.Load() < 0 {
				// shutdownRead already swapped serverFD to -1: this error is
				// shutdown(SHUT_RD) unblocking us, not a transient recv
				// failure, so match the Start-time Enter() with a Leave().
				_ = ctx.Multiplexer().Unregister(fd)
				ctx.Scope().Leave()
				return
			}
			s.handler.Emit(ctx, Dialog{FD: fd, Addr: s.boundAddr}, rctx, nil)
			return
		}
		if n == 0 && peer == nil {
			// shutdown(SHUT_RD) unblocked us: the socket is going away.
			_ = ctx.Multiplexer().Unregister(fd)
			ctx.Scope().Leave()
			return
		}
		rctx.peer = peer
		s.handler.Emit(ctx, Dialog{FD: fd, Addr: peer}, rctx, rctx.Buffer()[:n])
	}
}

// signalHandler performs the SHUT_RD swap described in spec.md §4.7, and
// forwards every signal to the handler if it implements SignalObserver.
func (s *UDPService[H]) signalHandler(signum int) {
	if obs, ok := any(s.handler).(SignalObserver); ok {
		obs.HandleSignal(signum)
	}
	if signum != SigTerminate {
		return
	}
	fd := s.serverFD.Swap(-1)
	if fd < 0 {
		return
	}
	_ = shutdownRead(int(fd))
}
