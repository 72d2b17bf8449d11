package middleware

import (
	"bytes"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/tetrachromeio/aether/core/http"
)

// Logger logs method, path, status, and latency for every request once it
// completes, in the teacher's core/middleware/pipeline.go style (Logger()
// there logs before the handler runs; this variant additionally times the
// downstream call since spec.md's continuation shape makes that cheap).
func Logger(logger *log.Logger) HandlerFunc {
	if logger == nil {
		logger = log.Default()
	}
	return func(req *http.Request, res *http.Response, next func(), nextErr func(error)) {
		start := time.Now()
		next()
		logger.Printf("%s %s -> %d (%s)", req.Method, req.Path, res.Status, time.Since(start))
	}
}

// Recovery converts a panic anywhere downstream into a 500 on the error
// lane instead of crashing the connection's goroutine, mirroring the
// teacher's Recovery() in core/middleware/pipeline.go.
func Recovery() HandlerFunc {
	return func(req *http.Request, res *http.Response, next func(), nextErr func(error)) {
		defer func() {
			if rec := recover(); rec != nil {
				nextErr(fmt.Errorf("panic recovered: %v", rec))
			}
		}()
		next()
	}
}

// CORS sets permissive CORS headers and short-circuits OPTIONS preflight
// requests with a 204, as the teacher's CORS() does.
func CORS() HandlerFunc {
	return func(req *http.Request, res *http.Response, next func(), nextErr func(error)) {
		res.SetHeader("Access-Control-Allow-Origin", "*")
		res.SetHeader("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE")
		res.SetHeader("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if req.Method == "OPTIONS" {
			res.Status = 204
			return
		}
		next()
	}
}

// RequestID stamps every response with a monotonically increasing
// X-Request-ID header, matching the teacher's RequestID().
func RequestID() HandlerFunc {
	var counter uint64
	return func(req *http.Request, res *http.Response, next func(), nextErr func(error)) {
		id := atomic.AddUint64(&counter, 1)
		res.SetHeader("X-Request-ID", fmt.Sprintf("%d", id))
		next()
	}
}

// Compress gzips the response body when the client advertises support via
// Accept-Encoding, running after the handler has produced a body.
func Compress() HandlerFunc {
	return func(req *http.Request, res *http.Response, next func(), nextErr func(error)) {
		next()

		if !strings.Contains(req.Header("Accept-Encoding"), "gzip") {
			return
		}
		if len(res.Body) == 0 || res.Header("Content-Encoding") != "" {
			return
		}

		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(res.Body); err != nil {
			zw.Close()
			return
		}
		if err := zw.Close(); err != nil {
			return
		}

		res.Body = append(res.Body[:0], buf.Bytes()...)
		res.SetHeader("Content-Encoding", "gzip")
	}
}
