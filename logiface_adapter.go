// Copyright 2026 Kevin Exton
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netloop

import "github.com/joeycumines/logiface"

// logifaceLogger adapts a *logiface.Logger[logiface.Event] onto this
// package's Logger interface, so a caller with an existing logiface
// pipeline (zerolog/zap/stumpy writer underneath it, etc.) can plug it in
// via WithLogger/SetLogger without this package depending on any one
// concrete backend.
type logifaceLogger struct {
	l *logiface.Logger[logiface.Event]
}

// NewLogifaceLogger adapts l onto the Logger interface used throughout this
// package.
func NewLogifaceLogger(l *logiface.Logger[logiface.Event]) Logger {
	return &logifaceLogger{l: l}
}

func (a *logifaceLogger) write(b *logiface.Builder[logiface.Event], msg string, fields []Field) {
	for _, f := range fields {
		b = b.Any(f.Key, f.Value)
	}
	b.Log(msg)
}

func (a *logifaceLogger) Debug(msg string, fields ...Field) { a.write(a.l.Debug(), msg, fields) }
func (a *logifaceLogger) Info(msg string, fields ...Field)  { a.write(a.l.Info(), msg, fields) }
func (a *logifaceLogger) Warn(msg string, fields ...Field)  { a.write(a.l.Warning(), msg, fields) }
func (a *logifaceLogger) Error(msg string, fields ...Field) { a.write(a.l.Err(), msg, fields) }
