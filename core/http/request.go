// Package http implements the request/response types and wire parser used
// by the connection state machine in package core.
package http

import "sync"

// Request is immutable after parsing apart from Params, which the router
// populates once a route matches.
type Request struct {
	Method  string
	Path    string
	Version string

	// Headers maps lowercased header names to their raw values. Last
	// occurrence wins on duplicate names.
	Headers map[string]string

	// Params holds path parameters captured by the matching route pattern.
	Params map[string]string

	Body []byte
}

var requestPool = sync.Pool{
	New: func() any {
		return &Request{
			Headers: make(map[string]string, 8),
			Params:  make(map[string]string, 4),
			Body:    make([]byte, 0, 512),
		}
	},
}

// AcquireRequest returns a Request from the pool, reset and ready to parse into.
func AcquireRequest() *Request {
	return requestPool.Get().(*Request)
}

// ReleaseRequest resets r and returns it to the pool.
func ReleaseRequest(r *Request) {
	r.Reset()
	requestPool.Put(r)
}

// Reset clears the request for reuse without releasing the backing maps/slices.
func (r *Request) Reset() {
	r.Method = ""
	r.Path = ""
	r.Version = ""

	for k := range r.Headers {
		delete(r.Headers, k)
	}
	for k := range r.Params {
		delete(r.Params, k)
	}
	r.Body = r.Body[:0]
}

// Header returns the value of a header by name, case-insensitively.
func (r *Request) Header(name string) string {
	return r.Headers[lowerASCII(name)]
}

// SetHeader stores a header. The key is lowercased; last write wins.
func (r *Request) SetHeader(key, value string) {
	r.Headers[lowerASCII(key)] = value
}

func lowerASCII(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'Z' {
			b := []byte(s)
			for ; i < len(b); i++ {
				if c := b[i]; c >= 'A' && c <= 'Z' {
					b[i] = c + ('a' - 'A')
				}
			}
			return string(b)
		}
	}
	return s
}
