// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package netloop

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// echoHandler writes every received buffer straight back to its sender,
// matching the §8 TCP echo seed scenario.
type echoHandler struct{}

func (echoHandler) Emit(_ *AsyncContext, dialog Dialog, _ *ReadContext, buf []byte) {
	if buf == nil {
		return
	}
	for len(buf) > 0 {
		n, err := unix.Write(dialog.FD, buf)
		if err != nil || n <= 0 {
			return
		}
		buf = buf[n:]
	}
}

func TestTCPEchoSeedScenario(t *testing.T) {
	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
	svc := NewTCPService(addr, echoHandler{})
	ct := NewContextThread(func(ctx *AsyncContext) error { return svc.Start(ctx) })

	require.NoError(t, ct.Start())
	ct.WaitUntil(StateStarted)
	defer ct.Close()

	require.NotNil(t, svc.Addr())

	conn, err := net.DialTimeout("tcp", svc.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	for c := byte('a'); c <= 'z'; c++ {
		_, err := conn.Write([]byte{c})
		require.NoError(t, err)

		buf := make([]byte, 1)
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		n, err := conn.Read(buf)
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Equal(t, c, buf[0])
	}

	require.NoError(t, ct.Signal(SigTerminate))

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) && ct.State() != StateStopped {
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, StateStopped, ct.State())
}

// TestTCPStartTwice verifies spec.md §8 property 3.
func TestTCPStartTwice(t *testing.T) {
	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
	ct := NewTCPContextThread[echoHandler](addr, echoHandler{})

	require.NoError(t, ct.Start())
	ct.WaitUntil(StateStarted)
	defer ct.Close()

	err := ct.Start()
	require.ErrorIs(t, err, ErrAlreadyStarted)
	require.Equal(t, StateStarted, ct.State())
}

// userSignalHandler records every delivered signal number via
// SignalObserver, without ever closing the connection.
type userSignalHandler struct {
	observed chan int
}

func (h userSignalHandler) Emit(*AsyncContext, Dialog, *ReadContext, []byte) {}

func (h userSignalHandler) HandleSignal(signum int) {
	select {
	case h.observed <- signum:
	default:
	}
}

// TestUser1SignalDoesNotShutdown verifies the §8 "user1 signal" seed
// scenario: signal(user1) reaches the handler but causes no shutdown.
func TestUser1SignalDoesNotShutdown(t *testing.T) {
	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
	h := userSignalHandler{observed: make(chan int, 4)}
	ct := NewTCPContextThread[userSignalHandler](addr, h)

	require.NoError(t, ct.Start())
	ct.WaitUntil(StateStarted)
	defer ct.Close()

	require.NoError(t, ct.Signal(SigUser1))

	select {
	case got := <-h.observed:
		require.Equal(t, SigUser1, got)
	case <-time.After(time.Second):
		t.Fatal("signal_handler was never invoked with user1")
	}

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateStarted, ct.State())
}

// TestTerminateIdempotence verifies spec.md §8 property 2: multiple
// terminate signals still result in exactly one graceful shutdown.
func TestTerminateIdempotence(t *testing.T) {
	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
	ct := NewTCPContextThread[echoHandler](addr, echoHandler{})

	require.NoError(t, ct.Start())
	ct.WaitUntil(StateStarted)

	for i := 0; i < 5; i++ {
		require.NoError(t, ct.Signal(SigTerminate))
	}

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) && ct.State() != StateStopped {
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, StateStopped, ct.State())
	require.NoError(t, ct.Close())
}
