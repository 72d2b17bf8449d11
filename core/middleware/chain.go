// Package middleware implements the continuation-style pipeline described
// in spec.md §4.E, grounded on the original C++ MiddlewareStack
// (_examples/original_source/aether/src/Http/Middleware.cpp) with an added
// error lane.
package middleware

import (
	"github.com/tetrachromeio/aether/core/http"
)

// HandlerFunc is a middleware function. Calling next advances to the next
// middleware, or to the route handler after the last one; calling nextErr
// switches the chain to the error lane. Not calling either terminates the
// chain (the middleware produced the response itself).
type HandlerFunc func(req *http.Request, res *http.Response, next func(), nextErr func(error))

// ErrorHandlerFunc handles an error raised on the error lane. Calling next
// advances to the next error handler; completing without calling next
// terminates the chain.
type ErrorHandlerFunc func(err error, req *http.Request, res *http.Response, next func(error))

// FinalFunc is the tail of the normal lane: the matched route handler, or
// a 404 responder if nothing matched.
type FinalFunc func(req *http.Request, res *http.Response)

// Chain is a user-registered ordered list of middleware plus error
// handlers. It holds no state across requests: Run allocates its cursor
// fresh for every invocation, so the same Chain is safe to reuse
// concurrently across connections.
type Chain struct {
	middleware []HandlerFunc
	errors     []ErrorHandlerFunc
}

// New creates an empty Chain.
func New() *Chain {
	return &Chain{}
}

// Use appends a middleware to the normal lane.
func (c *Chain) Use(h HandlerFunc) {
	c.middleware = append(c.middleware, h)
}

// UseError appends a handler to the error lane.
func (c *Chain) UseError(h ErrorHandlerFunc) {
	c.errors = append(c.errors, h)
}

// Run drives the chain for one request. final is invoked once every
// middleware has called next() (or immediately, if the chain is empty). If
// no middleware or error handler terminates the chain after an error is
// raised, onUnhandled is invoked with the error so the caller can fall
// back to a 500 response.
//
// The chain advances through an explicit index cursor rather than
// rebuilding a fresh continuation object per step, so a long chain does
// not grow the cursor state per call — only the call depth from a
// middleware synchronously invoking next grows, which is bounded by the
// number of registered middleware.
func (c *Chain) Run(req *http.Request, res *http.Response, final FinalFunc, onUnhandled func(error)) {
	run := &chainRun{chain: c, req: req, res: res, final: final, onUnhandled: onUnhandled}
	run.next()
}

type chainRun struct {
	chain       *Chain
	req         *http.Request
	res         *http.Response
	final       FinalFunc
	onUnhandled func(error)

	mwIndex  int
	errIndex int
	inError  bool
}

func (r *chainRun) next() {
	if r.inError {
		// The normal lane must never be re-entered once the chain has
		// switched to the error lane (spec.md §4.E).
		return
	}
	if r.mwIndex >= len(r.chain.middleware) {
		r.final(r.req, r.res)
		return
	}
	h := r.chain.middleware[r.mwIndex]
	r.mwIndex++
	h(r.req, r.res, r.next, r.nextErr)
}

func (r *chainRun) nextErr(err error) {
	r.inError = true
	if r.errIndex >= len(r.chain.errors) {
		r.onUnhandled(err)
		return
	}
	h := r.chain.errors[r.errIndex]
	r.errIndex++
	h(err, r.req, r.res, r.nextErr)
}
