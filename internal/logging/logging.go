// Package logging provides a small stderr logger gated by a debug flag,
// the same shape as clanker's --debug-gated log.Printf calls in
// internal/aws/parallel.go, but pointed at stderr since stdout carries the
// MCP stdio JSON-RPC stream.
package logging

import (
	"fmt"
	"log"
	"os"
)

// Logger wraps the standard logger with level-prefixed helpers; only Debugf
// is gated by the debug flag.
type Logger struct {
	std   *log.Logger
	debug bool
}

func New(debug bool) *Logger {
	return &Logger{
		std:   log.New(os.Stderr, "", log.LstdFlags),
		debug: debug,
	}
}

func (l *Logger) Debugf(format string, args ...any) {
	if !l.debug {
		return
	}
	l.std.Output(2, "DEBUG "+fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...any) {
	l.std.Output(2, "INFO "+fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...any) {
	l.std.Output(2, "WARN "+fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.std.Output(2, "ERROR "+fmt.Sprintf(format, args...))
}
