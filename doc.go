/*
Package aether is an embeddable HTTP server with a registration-order
router, a continuation-style middleware pipeline with a dedicated error
lane, and a second listener speaking a length-prefixed binary opcode
protocol ("NeuralDB") alongside the HTTP surface.

Quick Start

	package main

	import (
		"github.com/tetrachromeio/aether/app"
		"github.com/tetrachromeio/aether/config"
		"github.com/tetrachromeio/aether/core/http"
	)

	func main() {
		cfg := config.New()
		application := app.New(cfg)

		application.Server().Get("/hello", func(req *http.Request, res *http.Response) {
			res.Write([]byte("Hello, World!"))
		})

		application.Run()
	}

Modules

  - app: application lifecycle (config wiring, signal handling)
  - config: flag/env-driven configuration
  - core: connection acceptor, connection state machine, dispatch executor
  - core/http: request/response types and the HTTP/1.x header parser
  - core/router: registration-order pattern router
  - core/middleware: continuation-style pipeline and built-in middleware
  - core/pools: byte/connection pooling and GC tuning
  - core/opcode: the NeuralDB binary opcode server and its payload codecs

Concurrency

Each accepted connection runs its full request/response lifecycle on its
own goroutine using blocking reads with deadlines; Go's runtime netpoller
plays the role the original implementation's reactor played. A bounded
work-stealing executor runs the middleware chain and route handler (and
NeuralDB message handlers) off that goroutine, decoupled from the
connection-count cap.
*/
package aether
