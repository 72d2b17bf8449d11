package middleware

import "github.com/tetrachromeio/aether/core/http"

// StaticFileServer is the collaborator interface for serving files from a
// directory. Implementations are out of scope for this module (spec.md §1
// names the static-file middleware as an external collaborator that "rides
// on top of the core and adds no architectural complexity"); this type
// exists only so a host program can supply one, wrapped by Static and
// registered with Server.Use, without the core depending on a concrete
// implementation.
type StaticFileServer interface {
	// ServeStatic attempts to serve req.Path from the configured root. It
	// returns false if no file matched, leaving the chain to continue.
	ServeStatic(req *http.Request, res *http.Response) bool
}

// Static adapts a StaticFileServer into a HandlerFunc that short-circuits
// the chain when a file is served, and otherwise calls next.
func Static(fs StaticFileServer) HandlerFunc {
	return func(req *http.Request, res *http.Response, next func(), nextErr func(error)) {
		if fs.ServeStatic(req, res) {
			return
		}
		next()
	}
}
