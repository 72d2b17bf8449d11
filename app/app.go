// Package app wires config.Config to a core.Server and owns process
// lifecycle (startup logging, signal-driven shutdown), grounded on the
// teacher's app/app.go.
package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tetrachromeio/aether/config"
	"github.com/tetrachromeio/aether/core"
)

// App is the application instance: a configured core.Server plus the
// process glue around it.
type App struct {
	cfg    *config.Config
	server *core.Server
}

// New creates an application instance from cfg, with a freshly
// constructed Server.
func New(cfg *config.Config) *App {
	s := core.New()
	s.Workers = cfg.Workers
	s.MaxConnections = cfg.MaxConns
	s.IdleTimeout = cfg.IdleTimeout
	s.MaxBodySize = cfg.MaxBodySize

	return &App{cfg: cfg, server: s}
}

// NewWithServer creates an application instance around a pre-configured
// Server, mirroring the teacher's NewWithEngine for callers that need to
// register routes before App takes ownership of lifecycle.
func NewWithServer(cfg *config.Config, s *core.Server) *App {
	return &App{cfg: cfg, server: s}
}

// Server returns the underlying server for route registration.
func (a *App) Server() *core.Server {
	return a.server
}

// Run starts the HTTP listener and blocks. If a NeuralDB handler has been
// registered via RunNeural, that listener runs concurrently on its own
// goroutine. SIGINT/SIGTERM trigger an os.Exit after logging, matching the
// teacher's signal handling (graceful connection draining is not
// implemented — the teacher's own awaitSignal carries the same TODO).
func (a *App) Run() {
	go a.awaitSignal()

	log.Printf("aether server starting on port %d [%s]", a.cfg.Port, a.cfg.Env)

	if err := a.server.Run(a.cfg.Port); err != nil {
		log.Fatalf("server startup failed: %v", err)
	}
}

// RunNeural starts the NeuralDB opcode listener on its own goroutine using
// the port configured via -neural-port.
func (a *App) RunNeural(handler func(opcode byte, payload []byte) ([]byte, error)) {
	go func() {
		log.Printf("aether neuraldb starting on port %d", a.cfg.NeuralPort)
		if err := a.server.Neural(a.cfg.NeuralPort, handler); err != nil {
			log.Printf("neuraldb server stopped: %v", err)
		}
	}()
}

func (a *App) awaitSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("signal received: %v, shutting down", sig)

	_, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	os.Exit(0)
}
