// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netloop

import (
	"net"

	"github.com/hslam/reuse"
	"golang.org/x/sys/unix"
)

// sockaddrAndFamily converts a net.TCPAddr/net.UDPAddr into the raw
// unix.Sockaddr and address family needed by the socket(2)/bind(2)
// family of syscalls. Only IPv4 and IPv6 are supported; an unset IP
// binds to the wildcard address.
func sockaddrAndFamily(ip net.IP, port int) (unix.Sockaddr, int) {
	if ip4 := ip.To4(); ip4 != nil {
		var sa unix.SockaddrInet4
		sa.Port = port
		copy(sa.Addr[:], ip4)
		return &sa, unix.AF_INET
	}
	var sa unix.SockaddrInet6
	sa.Port = port
	copy(sa.Addr[:], ip.To16())
	return &sa, unix.AF_INET6
}

func addrFamily(ip net.IP) int {
	if ip != nil && ip.To4() != nil {
		return unix.AF_INET
	}
	return unix.AF_INET6
}

func sockaddrToTCPAddr(sa unix.Sockaddr) *net.TCPAddr {
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		ip := make(net.IP, net.IPv4len)
		copy(ip, s.Addr[:])
		return &net.TCPAddr{IP: ip, Port: s.Port}
	case *unix.SockaddrInet6:
		ip := make(net.IP, net.IPv6len)
		copy(ip, s.Addr[:])
		return &net.TCPAddr{IP: ip, Port: s.Port}
	default:
		return nil
	}
}

func sockaddrToUDPAddr(sa unix.Sockaddr) *net.UDPAddr {
	t := sockaddrToTCPAddr(sa)
	if t == nil {
		return nil
	}
	return &net.UDPAddr{IP: t.IP, Port: t.Port}
}

// newStreamSocket creates a non-blocking, close-on-exec TCP socket for
// the address family implied by ip.
func newStreamSocket(ip net.IP) (int, error) {
	return unix.Socket(addrFamily(ip), unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
}

// newDatagramSocket creates a non-blocking, close-on-exec UDP socket for
// the address family implied by ip.
func newDatagramSocket(ip net.IP) (int, error) {
	return unix.Socket(addrFamily(ip), unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
}

// setReuseAddr applies SO_REUSEADDR, unconditionally used by both
// services per spec.md §4.6 step 2 / §4.7 step 2.
func setReuseAddr(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
}

// setReusePort applies SO_REUSEPORT directly via setsockopt, for the raw
// fds this package constructs itself (WithReusePort). Hosts layering a
// stdlib net.Listener or net.ListenUDP alongside this package instead
// should use ReusePortListenConfig, which wires the same behavior
// through github.com/hslam/reuse's Control hook.
func setReusePort(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
}

// ReusePortListenConfig returns a *net.ListenConfig whose Control hook
// sets SO_REUSEPORT before bind, for callers mixing stdlib net listeners
// with ContextThread-owned sockets on the same port.
func ReusePortListenConfig() *net.ListenConfig {
	return &net.ListenConfig{Control: reuse.Control}
}

func bindSocket(fd int, ip net.IP, port int) error {
	sa, _ := sockaddrAndFamily(ip, port)
	return unix.Bind(fd, sa)
}

func listenSocket(fd int, backlog int) error {
	return unix.Listen(fd, backlog)
}

// getsocknameTCP returns the fd's bound TCP address, recording the actual
// ephemeral port after an addr.Port == 0 bind (spec.md §4.6 step 5).
func getsocknameTCP(fd int) (*net.TCPAddr, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil, err
	}
	return sockaddrToTCPAddr(sa), nil
}

func getsocknameUDP(fd int) (*net.UDPAddr, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil, err
	}
	return sockaddrToUDPAddr(sa), nil
}

// acceptSocket accepts one pending connection, returning a non-blocking,
// close-on-exec client fd and its peer address.
func acceptSocket(fd int) (int, *net.TCPAddr, error) {
	nfd, sa, err := unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return -1, nil, err
	}
	return nfd, sockaddrToTCPAddr(sa), nil
}

// recvFromUDP reads one datagram, returning the sender's address.
func recvFromUDP(fd int, buf []byte) (int, *net.UDPAddr, error) {
	n, _, _, sa, err := unix.Recvmsg(fd, buf, nil, 0)
	if err != nil {
		return n, nil, err
	}
	if sa == nil {
		return n, nil, nil
	}
	return n, sockaddrToUDPAddr(sa), nil
}

// recvStream reads from a connected stream socket.
func recvStream(fd int, buf []byte) (int, error) {
	n, _, err := unix.Recvfrom(fd, buf, 0)
	return n, err
}

// sendToUDP sends one datagram to addr.
func sendToUDP(fd int, buf []byte, addr *net.UDPAddr) (int, error) {
	sa, _ := sockaddrAndFamily(addr.IP, addr.Port)
	return len(buf), unix.Sendto(fd, buf, 0, sa)
}

// shutdownRead half-closes the read side of fd, unblocking a pending
// recvmsg with a zero-length result (spec.md §4.7 signal_handler).
func shutdownRead(fd int) error {
	return unix.Shutdown(fd, unix.SHUT_RD)
}

func closeFD(fd int) error { return unix.Close(fd) }
