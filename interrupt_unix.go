// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package netloop

import "golang.org/x/sys/unix"

// socketpairInterruptSource is grounded on the original C++
// socketpair_interrupt_source_t (original_source/include/net/timers/impl/interrupt_impl.hpp):
// a connected pair of AF_UNIX SOCK_STREAM sockets, writer half written by
// interrupt(), reader half drained by the ISR.
type socketpairInterruptSource struct {
	reader int
	writer int
}

func newPlatformInterruptSource() interruptSource {
	return &socketpairInterruptSource{reader: -1, writer: -1}
}

func (s *socketpairInterruptSource) init() error {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return err
	}
	if err := unix.SetNonblock(fds[0], true); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return err
	}
	if err := unix.SetNonblock(fds[1], true); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return err
	}
	s.reader = fds[0]
	s.writer = fds[1]
	return nil
}

func (s *socketpairInterruptSource) interrupt() {
	if s.writer < 0 {
		return
	}
	var buf [1]byte
	// MSG_NOSIGNAL: the peer may already be half-closed during shutdown;
	// a dropped wakeup here is tolerated per spec.md §4.1.
	_, _ = unix.SendmsgN(s.writer, buf[:], nil, nil, unix.MSG_NOSIGNAL)
}

func (s *socketpairInterruptSource) readerFD() int { return s.reader }

func (s *socketpairInterruptSource) closeWriter() error {
	if s.writer < 0 {
		return nil
	}
	err := unix.Close(s.writer)
	s.writer = -1
	return err
}

func (s *socketpairInterruptSource) close() error {
	err := s.closeWriter()
	if s.reader >= 0 {
		if cerr := unix.Close(s.reader); err == nil {
			err = cerr
		}
		s.reader = -1
	}
	return err
}
