// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build !linux && !darwin

package netloop

// unsupportedMultiplexer is installed on platforms without an epoll or
// kqueue backend. Every operation except Close fails with
// ErrUnsupportedPlatform; the failing Init makes ContextThread.Start
// transition straight to StateStopped (see REDESIGN FLAGS: no IOCP
// backend is implemented).
type unsupportedMultiplexer struct{}

func newPlatformMultiplexer(int) multiplexer { return unsupportedMultiplexer{} }

func (unsupportedMultiplexer) Init() error                                  { return ErrUnsupportedPlatform }
func (unsupportedMultiplexer) Register(int, IOEvents, IOCallback) error     { return ErrUnsupportedPlatform }
func (unsupportedMultiplexer) Modify(int, IOEvents) error                   { return ErrUnsupportedPlatform }
func (unsupportedMultiplexer) Unregister(int) error                         { return ErrUnsupportedPlatform }
func (unsupportedMultiplexer) Wait(int) (int, error)                        { return 0, ErrUnsupportedPlatform }
func (unsupportedMultiplexer) Close() error                                 { return nil }
