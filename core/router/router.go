package router

import "sync"

// HandlerFunc is the terminal handler a matched route dispatches to. The
// concrete request/response types live in package http; router stays
// agnostic of them to avoid an import cycle, the same shape teacher's
// core/router/radix.go uses (HandlerFunc = func(ctx any)).
type HandlerFunc func(req, res any)

type route struct {
	pattern *Pattern
	handler HandlerFunc
}

// Router stores registered routes per method and returns the first
// matching handler in registration order (spec.md §4.D). There is no
// specificity ranking — a conscious simplification documented to users.
type Router struct {
	mu     sync.RWMutex
	routes map[string][]route
}

// New creates an empty Router.
func New() *Router {
	return &Router{routes: make(map[string][]route)}
}

// Add registers a handler for method against pattern, in the order Add is
// called. The pattern is compiled once here and never mutated afterward,
// so concurrent Find calls never observe a partially built Pattern.
func (r *Router) Add(method, pattern string, handler HandlerFunc) error {
	p, err := Compile(pattern)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[method] = append(r.routes[method], route{pattern: p, handler: handler})
	return nil
}

// Find looks up (method, path), returning the first handler whose pattern
// matches along with the captured parameters. params is cleared at the
// start of every attempt, and on a successful match contains exactly the
// names declared by the matching pattern — no more. A nil handler means no
// route matched (the Connection responds with 404).
func (r *Router) Find(method, path string, params map[string]string) HandlerFunc {
	r.mu.RLock()
	routes := r.routes[method]
	r.mu.RUnlock()

	for _, rt := range routes {
		for k := range params {
			delete(params, k)
		}
		if rt.pattern.Match(path, params) {
			return rt.handler
		}
	}

	for k := range params {
		delete(params, k)
	}
	return nil
}
