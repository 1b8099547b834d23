// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package netloop

import (
	"sync"

	"golang.org/x/sys/unix"
)

type fdRegistration struct {
	fd     int
	events IOEvents
	cb     IOCallback
}

// epollMultiplexer is the linux multiplexer backend, adapted from the
// teacher's FastPoller: an epoll fd plus a map from fd to its registered
// callback, consulted after EpollWait to dispatch readiness outside any
// lock held during the syscall.
type epollMultiplexer struct {
	epfd    int
	mu      sync.RWMutex
	regs    map[int]*fdRegistration
	closed  bool
	events  []unix.EpollEvent
}

func newPlatformMultiplexer(bufferSize int) multiplexer {
	return &epollMultiplexer{
		regs:   make(map[int]*fdRegistration),
		events: make([]unix.EpollEvent, bufferSize),
	}
}

func (p *epollMultiplexer) Init() error {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	p.epfd = epfd
	return nil
}

func eventsToEpoll(events IOEvents) uint32 {
	var e uint32
	if events&EventRead != 0 {
		e |= unix.EPOLLIN
	}
	if events&EventWrite != 0 {
		e |= unix.EPOLLOUT
	}
	return e
}

func epollToEvents(e uint32) IOEvents {
	var events IOEvents
	if e&unix.EPOLLIN != 0 {
		events |= EventRead
	}
	if e&unix.EPOLLOUT != 0 {
		events |= EventWrite
	}
	if e&unix.EPOLLERR != 0 {
		events |= EventError
	}
	if e&unix.EPOLLHUP != 0 || e&unix.EPOLLRDHUP != 0 {
		events |= EventHangup
	}
	return events
}

func (p *epollMultiplexer) Register(fd int, events IOEvents, cb IOCallback) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPollerClosed
	}
	if _, ok := p.regs[fd]; ok {
		return ErrFDAlreadyRegistered
	}
	ev := &unix.EpollEvent{Events: eventsToEpoll(events), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		return err
	}
	p.regs[fd] = &fdRegistration{fd: fd, events: events, cb: cb}
	return nil
}

func (p *epollMultiplexer) Modify(fd int, events IOEvents) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPollerClosed
	}
	reg, ok := p.regs[fd]
	if !ok {
		return ErrFDNotRegistered
	}
	ev := &unix.EpollEvent{Events: eventsToEpoll(events), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, ev); err != nil {
		return err
	}
	reg.events = events
	return nil
}

func (p *epollMultiplexer) Unregister(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPollerClosed
	}
	if _, ok := p.regs[fd]; !ok {
		return ErrFDNotRegistered
	}
	// Kernels before 2.6.9 require a non-nil event pointer for DEL.
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, &unix.EpollEvent{})
	delete(p.regs, fd)
	return err
}

func (p *epollMultiplexer) Wait(timeoutMs int) (int, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return 0, ErrPollerClosed
	}
	p.mu.RUnlock()

	n, err := unix.EpollWait(p.epfd, p.events, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	// Copy the fdRegistrations we need to invoke while holding only a read
	// lock, then call the callbacks outside the lock: a callback is free
	// to Register/Unregister other fds without deadlocking.
	type dispatch struct {
		cb     IOCallback
		events IOEvents
	}
	pending := make([]dispatch, 0, n)
	p.mu.RLock()
	for i := 0; i < n; i++ {
		fd := int(p.events[i].Fd)
		if reg, ok := p.regs[fd]; ok {
			pending = append(pending, dispatch{cb: reg.cb, events: epollToEvents(p.events[i].Events)})
		}
	}
	p.mu.RUnlock()

	for _, d := range pending {
		d.cb(d.events)
	}
	return n, nil
}

func (p *epollMultiplexer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return unix.Close(p.epfd)
}
