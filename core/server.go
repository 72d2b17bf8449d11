package core

import (
	"log"
	"net"
	"time"

	"github.com/tetrachromeio/aether/core/http"
	"github.com/tetrachromeio/aether/core/middleware"
	"github.com/tetrachromeio/aether/core/opcode"
	"github.com/tetrachromeio/aether/core/pools"
	"github.com/tetrachromeio/aether/core/router"
)

// Server aggregates the router, middleware chain, worker pool, and the two
// listeners (HTTP and NeuralDB) behind the embedded API described in
// spec.md §4.H, grounded on the teacher's core/engine.go:Engine and
// app/app.go:App, collapsed into one type; the app package wraps it only
// for config wiring and process lifecycle.
type Server struct {
	router *router.Router
	chain  *middleware.Chain

	executor *Executor
	acceptor *Acceptor
	neural   *opcode.Server
	connPool *pools.ConnectionPool

	viewsFolder string

	MaxConnections int
	IdleTimeout    time.Duration
	MaxBodySize    int64
	Workers        int
	GC             pools.GCConfig

	Logger *log.Logger
}

// New creates a Server with spec.md §6 defaults. Registration methods
// (Get/Post/Put/Delete/Use/UseError/Views) are safe to call before Run;
// the router's write path is mutex-guarded so late registration from
// another goroutine is permitted, if not recommended.
func New() *Server {
	return &Server{
		router:         router.New(),
		chain:          middleware.New(),
		MaxConnections: DefaultMaxConnections,
		IdleTimeout:    DefaultIdleTimeout,
		MaxBodySize:    DefaultMaxBodySize,
		GC:             pools.DefaultGCConfig(),
		Logger:         log.Default(),
	}
}

func (s *Server) route(method, pattern string, handler func(req *http.Request, res *http.Response)) {
	if err := s.router.Add(method, pattern, func(req, res any) {
		handler(req.(*http.Request), res.(*http.Response))
	}); err != nil {
		s.Logger.Printf("route registration failed for %s %s: %v", method, pattern, err)
	}
}

// Get registers a GET route handler.
func (s *Server) Get(pattern string, handler func(req *http.Request, res *http.Response)) {
	s.route("GET", pattern, handler)
}

// Post registers a POST route handler.
func (s *Server) Post(pattern string, handler func(req *http.Request, res *http.Response)) {
	s.route("POST", pattern, handler)
}

// Put registers a PUT route handler.
func (s *Server) Put(pattern string, handler func(req *http.Request, res *http.Response)) {
	s.route("PUT", pattern, handler)
}

// Delete registers a DELETE route handler.
func (s *Server) Delete(pattern string, handler func(req *http.Request, res *http.Response)) {
	s.route("DELETE", pattern, handler)
}

// Use appends a middleware to the normal lane.
func (s *Server) Use(h middleware.HandlerFunc) {
	s.chain.Use(h)
}

// UseError appends a handler to the error lane.
func (s *Server) UseError(h middleware.ErrorHandlerFunc) {
	s.chain.UseError(h)
}

// Views records the folder a template-renderer collaborator should serve
// from. The renderer itself is out of scope (spec.md §1); this only
// stores the path for whatever StaticFileServer/renderer the caller wires
// up separately, matching the original's Server::views(folder).
func (s *Server) Views(folder string) {
	s.viewsFolder = folder
}

// ViewsFolder returns the folder set by Views.
func (s *Server) ViewsFolder() string {
	return s.viewsFolder
}

// Run starts the HTTP acceptor on port and blocks until it returns a
// non-recoverable error.
func (s *Server) Run(port int) error {
	s.GC.Apply()
	s.executor = NewExecutor(s.Workers)
	s.connPool = pools.NewConnectionPool(s.MaxConnections, func() any { return &Connection{} })

	s.acceptor = NewAcceptor(s.MaxConnections, s.Logger, func(conn net.Conn) {
		c := s.connPool.Get().(*Connection)
		c.reuse(conn, s.router, s.chain, s.executor, s.IdleTimeout, s.MaxBodySize, s.Logger, func() {
			s.acceptor.Release()
			s.connPool.Put(c)
		})
		go c.Serve()
	})

	s.Logger.Printf("aether: listening on :%d (max-connections=%d, workers=%d)", port, s.MaxConnections, s.executor.Stats().NumWorkers)
	return s.acceptor.Run(port)
}

// Neural starts the NeuralDB opcode server on port, dispatching each
// message through the same Executor used for HTTP dispatch. It blocks
// until the listener closes; call it from its own goroutine to run
// alongside Run.
func (s *Server) Neural(port int, handler opcode.Handler) error {
	if s.executor == nil {
		s.executor = NewExecutor(s.Workers)
	}
	s.neural = opcode.NewServer(handler)
	s.neural.Logger = s.Logger
	s.neural.Dispatch = func(fn func()) {
		s.executor.Submit(Task(fn))
	}

	s.Logger.Printf("aether: neuraldb listening on :%d", port)
	return s.neural.ListenAndServe(port)
}

// Stats reports a snapshot of dispatcher and connection counters.
func (s *Server) Stats() map[string]any {
	stats := map[string]any{}
	if s.executor != nil {
		stats["executor"] = s.executor.Stats()
	}
	if s.acceptor != nil {
		stats["active_connections"] = s.acceptor.Active()
	}
	if s.neural != nil {
		stats["neuraldb"] = s.neural.Stats()
	}
	return stats
}
