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
)

// echoUDPHandler sends every received datagram back to its sender,
// matching the §8 UDP echo seed scenarios.
type echoUDPHandler struct{}

func (echoUDPHandler) Emit(_ *AsyncContext, dialog Dialog, _ *ReadContext, buf []byte) {
	if buf == nil || dialog.Addr == nil {
		return
	}
	udpAddr, ok := dialog.Addr.(*net.UDPAddr)
	if !ok {
		return
	}
	_, _ = sendToUDP(dialog.FD, buf, udpAddr)
}

func TestUDPEchoV4(t *testing.T) {
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
	svc := NewUDPService(addr, echoUDPHandler{})
	ct := NewContextThread(func(ctx *AsyncContext) error { return svc.Start(ctx) })

	require.NoError(t, ct.Start())
	ct.WaitUntil(StateStarted)
	defer ct.Close()
	require.NotNil(t, svc.Addr())

	client, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	defer client.Close()

	for c := byte('a'); c <= 'z'; c++ {
		_, err := client.WriteToUDP([]byte{c}, svc.Addr())
		require.NoError(t, err)

		buf := make([]byte, 1)
		require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
		n, from, err := client.ReadFromUDP(buf)
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Equal(t, c, buf[0])
		require.Equal(t, svc.Addr().Port, from.Port)
	}

	require.NoError(t, ct.Signal(SigTerminate))
	ct.WaitUntil(StateStopped)
}

func TestUDPEchoV6(t *testing.T) {
	addr := &net.UDPAddr{IP: net.IPv6loopback, Port: 0}
	svc := NewUDPService(addr, echoUDPHandler{})
	ct := NewContextThread(func(ctx *AsyncContext) error { return svc.Start(ctx) })

	require.NoError(t, ct.Start())
	ct.WaitUntil(StateStarted)
	defer ct.Close()
	require.NotNil(t, svc.Addr())

	client, err := net.ListenUDP("udp6", &net.UDPAddr{IP: net.IPv6loopback, Port: 0})
	require.NoError(t, err)
	defer client.Close()

	for c := byte('a'); c <= 'z'; c++ {
		_, err := client.WriteToUDP([]byte{c}, svc.Addr())
		require.NoError(t, err)

		buf := make([]byte, 1)
		require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
		n, _, err := client.ReadFromUDP(buf)
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Equal(t, c, buf[0])
	}

	require.NoError(t, ct.Signal(SigTerminate))
	ct.WaitUntil(StateStopped)
}
