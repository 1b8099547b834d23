// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netloop

import "golang.org/x/sys/unix"

const (
	defaultReadBufferSize = 64 * 1024
	defaultPollBufferSize = 256
	defaultAcceptBacklog  = unix.SOMAXCONN
)

// config holds the options shared by TCPService, UDPService and
// ContextThread. It is built by applying a slice of Option to its zero
// value, matching the teacher's own functional-options idiom.
type config struct {
	logger          Logger
	acceptBacklog   int
	readBufferSize  int
	pollBufferSize  int
	reusePort       bool
}

func newConfig(opts ...Option) *config {
	c := &config{
		logger:         defaultLogger(),
		acceptBacklog:  defaultAcceptBacklog,
		readBufferSize: defaultReadBufferSize,
		pollBufferSize: defaultPollBufferSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option configures a TCPService, UDPService, or ContextThread.
type Option func(*config)

// WithLogger overrides the package-level default Logger for one component.
func WithLogger(l Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithAcceptBacklog overrides the backlog passed to listen(2); spec.md
// §4.6 step 6 uses SOMAXCONN by default.
func WithAcceptBacklog(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.acceptBacklog = n
		}
	}
}

// WithReadBufferSize overrides the per-ReadContext buffer size used by
// recvmsg.
func WithReadBufferSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.readBufferSize = n
		}
	}
}

// WithPollBufferSize overrides the multiplexer's event batch size.
func WithPollBufferSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.pollBufferSize = n
		}
	}
}

// WithReusePort additionally sets SO_REUSEPORT (beyond the spec-mandated
// SO_REUSEADDR) during bind, letting several processes or several
// ContextThreads load-balance the same port across the kernel's connection
// hash. It is additive: SO_REUSEADDR is still applied unconditionally per
// spec.md §4.6/§4.7.
func WithReusePort(enabled bool) Option {
	return func(c *config) {
		c.reusePort = enabled
	}
}
