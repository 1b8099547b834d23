// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build darwin

package netloop

import (
	"sync"

	"golang.org/x/sys/unix"
)

// kqueueMultiplexer is the darwin multiplexer backend, adapted from the
// teacher's fastPoller. kqueue reports read and write readiness as
// separate filters on the same fd; registrations are tracked per fd, and
// the per-filter kevents of one fd are merged into one IOEvents mask on
// dispatch.
type kqueueMultiplexer struct {
	kq     int
	mu     sync.RWMutex
	regs   map[int]*fdRegistration
	closed bool
	events []unix.Kevent_t
}

type fdRegistration struct {
	fd     int
	events IOEvents
	cb     IOCallback
}

func newPlatformMultiplexer(bufferSize int) multiplexer {
	return &kqueueMultiplexer{
		regs:   make(map[int]*fdRegistration),
		events: make([]unix.Kevent_t, bufferSize),
	}
}

func (p *kqueueMultiplexer) Init() error {
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	p.kq = kq
	return nil
}

func (p *kqueueMultiplexer) changeEvents(fd int, events IOEvents, flags uint16) error {
	var changes []unix.Kevent_t
	if events&EventRead != 0 || flags == unix.EV_DELETE {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if events&EventWrite != 0 || flags == unix.EV_DELETE {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	_, err := unix.Kevent(p.kq, changes, nil, nil)
	return err
}

func (p *kqueueMultiplexer) Register(fd int, events IOEvents, cb IOCallback) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPollerClosed
	}
	if _, ok := p.regs[fd]; ok {
		return ErrFDAlreadyRegistered
	}
	if err := p.changeEvents(fd, events, unix.EV_ADD|unix.EV_ENABLE); err != nil {
		return err
	}
	p.regs[fd] = &fdRegistration{fd: fd, events: events, cb: cb}
	return nil
}

func (p *kqueueMultiplexer) Modify(fd int, events IOEvents) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPollerClosed
	}
	reg, ok := p.regs[fd]
	if !ok {
		return ErrFDNotRegistered
	}
	// Clear every filter then re-add the requested ones; kqueue has no
	// single-call "replace interest set" primitive like epoll MOD.
	_ = p.changeEvents(fd, EventRead|EventWrite, unix.EV_DELETE)
	if err := p.changeEvents(fd, events, unix.EV_ADD|unix.EV_ENABLE); err != nil {
		return err
	}
	reg.events = events
	return nil
}

func (p *kqueueMultiplexer) Unregister(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPollerClosed
	}
	if _, ok := p.regs[fd]; !ok {
		return ErrFDNotRegistered
	}
	err := p.changeEvents(fd, EventRead|EventWrite, unix.EV_DELETE)
	delete(p.regs, fd)
	return err
}

func (p *kqueueMultiplexer) Wait(timeoutMs int) (int, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return 0, ErrPollerClosed
	}
	p.mu.RUnlock()

	var ts *unix.Timespec
	if timeoutMs >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMs) * 1e6)
		ts = &t
	}

	n, err := unix.Kevent(p.kq, nil, p.events, ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	type dispatch struct {
		cb     IOCallback
		events IOEvents
	}
	merged := make(map[int]IOEvents, n)
	var order []int
	p.mu.RLock()
	for i := 0; i < n; i++ {
		fd := int(p.events[i].Ident)
		if _, ok := p.regs[fd]; !ok {
			continue
		}
		var e IOEvents
		switch p.events[i].Filter {
		case unix.EVFILT_READ:
			e = EventRead
		case unix.EVFILT_WRITE:
			e = EventWrite
		}
		if p.events[i].Flags&unix.EV_EOF != 0 {
			e |= EventHangup
		}
		if p.events[i].Flags&unix.EV_ERROR != 0 {
			e |= EventError
		}
		if _, seen := merged[fd]; !seen {
			order = append(order, fd)
		}
		merged[fd] |= e
	}
	pending := make([]dispatch, 0, len(order))
	for _, fd := range order {
		pending = append(pending, dispatch{cb: p.regs[fd].cb, events: merged[fd]})
	}
	p.mu.RUnlock()

	for _, d := range pending {
		d.cb(d.events)
	}
	return n, nil
}

func (p *kqueueMultiplexer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return unix.Close(p.kq)
}
