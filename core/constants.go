package core

import (
	"errors"
	"time"
)

// Default configuration knobs (spec.md §6).
const (
	DefaultMaxConnections = 10000
	DefaultIdleTimeout    = 30 * time.Second
	DefaultMaxBodySize    = 10 << 20 // 10 MiB
	DefaultNeuralDBPort   = 7654
)

var (
	// ErrMalformedRequest covers a header block over 64 KiB, an invalid
	// Content-Length, or an invalid chunk size. Start-line and header-line
	// failures come from http.ParseHeaders as http.ErrMalformed instead.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrBodyTooLarge is returned when a body would exceed the configured cap.
	ErrBodyTooLarge = errors.New("body exceeds maximum size")
	// ErrMissingHost is returned for an HTTP/1.1 request without a Host header.
	ErrMissingHost = errors.New("http/1.1 request missing host header")
	// ErrServerStopped names a stopped executor. Executor.Submit does not
	// return it: Submit has no return value and drops tasks after Stop.
	ErrServerStopped = errors.New("executor stopped")
)
