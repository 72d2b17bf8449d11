package core

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/bytebufferpool"

	"github.com/tetrachromeio/aether/core/http"
	"github.com/tetrachromeio/aether/core/middleware"
	"github.com/tetrachromeio/aether/core/pools"
	"github.com/tetrachromeio/aether/core/router"
)

// headerChunks recycles the scratch buffer readHeaderBlock reads into,
// grounded on the teacher's core/pools/byte_pool.go tiered pool.
var headerChunks = pools.NewBytePool()

// Connection drives one accepted socket's full HTTP/1.x lifecycle on its
// own goroutine, grounded on the original's Connection::handleRead /
// processRequest / checkKeepAlive
// (_examples/original_source/aether/src/Http/Connection.cpp) and the
// teacher's handleRead/processRequest shape in core/engine.go. Unlike the
// original's callback-driven state machine, the Go port uses blocking
// reads with deadlines — the runtime's netpoller is the reactor, so there
// is no explicit suspend/resume state to model.
type Connection struct {
	conn   net.Conn
	reader *bufio.Reader

	router   *router.Router
	chain    *middleware.Chain
	executor *Executor
	onClose  func()
	logger   *log.Logger

	idleTimeout time.Duration
	maxBodySize int64
}

// NewConnection wraps an accepted socket. onClose is invoked exactly once,
// when the connection's Serve loop returns, so the caller (the Acceptor)
// can release its connection-count slot. A nil logger defaults to
// log.Default().
func NewConnection(conn net.Conn, rt *router.Router, chain *middleware.Chain, executor *Executor, idleTimeout time.Duration, maxBodySize int64, logger *log.Logger, onClose func()) *Connection {
	c := &Connection{}
	c.reuse(conn, rt, chain, executor, idleTimeout, maxBodySize, logger, onClose)
	return c
}

// reuse (re)initializes a Connection around a freshly accepted socket,
// letting the caller recycle the struct itself through a
// pools.ConnectionPool instead of allocating one per accept.
func (c *Connection) reuse(conn net.Conn, rt *router.Router, chain *middleware.Chain, executor *Executor, idleTimeout time.Duration, maxBodySize int64, logger *log.Logger, onClose func()) {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	if logger == nil {
		logger = log.Default()
	}

	c.conn = conn
	if c.reader == nil {
		c.reader = bufio.NewReaderSize(conn, 4096)
	} else {
		c.reader.Reset(conn)
	}
	c.router = rt
	c.chain = chain
	c.executor = executor
	c.onClose = onClose
	c.logger = logger
	c.idleTimeout = idleTimeout
	c.maxBodySize = maxBodySize
}

// Reset clears connection-scoped references so a pools.ConnectionPool can
// safely recycle this Connection for the next accepted socket, satisfying
// pools.ConnectionPoolable.
func (c *Connection) Reset() {
	c.conn = nil
	c.router = nil
	c.chain = nil
	c.executor = nil
	c.onClose = nil
	c.logger = nil
}

// Serve reads and responds to requests until the connection closes, a
// parse error occurs, or keep-alive is not granted. It always closes the
// socket and invokes onClose before returning.
func (c *Connection) Serve() {
	defer c.close()

	for {
		c.conn.SetReadDeadline(time.Now().Add(c.idleTimeout))

		req, err := c.readRequest()
		if err != nil {
			if status := statusForReadError(err); status != 0 {
				c.sendErrorResponse("HTTP/1.1", status)
			}
			return
		}

		res := http.AcquireResponse()
		unhandled := c.dispatch(req, res)

		keepAlive := c.shouldKeepAlive(req, res) && !unhandled
		if keepAlive {
			res.SetHeader("Connection", "keep-alive")
		} else {
			res.SetHeader("Connection", "close")
		}

		writeErr := c.writeResponse(res, req.Version)

		http.ReleaseRequest(req)
		http.ReleaseResponse(res)

		if writeErr != nil || !keepAlive {
			return
		}
	}
}

// readRequest reads the header block, handles Expect: 100-continue, and
// reads the body per Content-Length or chunked transfer-encoding, per
// spec.md §4.C/§4.F.
func (c *Connection) readRequest() (*http.Request, error) {
	block, err := c.readHeaderBlock()
	if err != nil {
		return nil, err
	}

	req := http.AcquireRequest()
	if err := http.ParseHeaders(block, req); err != nil {
		http.ReleaseRequest(req)
		return nil, err
	}

	if req.Version == "HTTP/1.1" && req.Header("host") == "" {
		http.ReleaseRequest(req)
		return nil, ErrMissingHost
	}

	if strings.EqualFold(req.Header("expect"), "100-continue") {
		if _, err := c.conn.Write([]byte("HTTP/1.1 100 Continue\r\n\r\n")); err != nil {
			http.ReleaseRequest(req)
			return nil, err
		}
	}

	// Re-arm the idle watchdog before the body read: spec.md §4.F item 8
	// requires it armed on entry to every subsequent state, not just once
	// per transaction.
	c.conn.SetReadDeadline(time.Now().Add(c.idleTimeout))

	if err := c.readBody(req); err != nil {
		http.ReleaseRequest(req)
		return nil, err
	}

	return req, nil
}

var headerTerminator = []byte("\r\n\r\n")

// readHeaderBlock reads from the connection until the CRLF CRLF terminator
// is seen, returning the block including the terminator.
func (c *Connection) readHeaderBlock() ([]byte, error) {
	var buf []byte
	chunk := headerChunks.Get(512)
	defer headerChunks.Put(chunk)

	for {
		if idx := indexOf(buf, headerTerminator); idx != -1 {
			end := idx + len(headerTerminator)
			leftover := buf[end:]
			if len(leftover) > 0 {
				c.reader = bufio.NewReaderSize(io.MultiReader(bytes.NewReader(leftover), c.reader), 4096)
			}
			return buf[:end], nil
		}
		if len(buf) > 64<<10 {
			return nil, ErrMalformedRequest
		}
		n, err := c.reader.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			return nil, err
		}
	}
}

func indexOf(haystack, needle []byte) int {
	if len(needle) == 0 || len(haystack) < len(needle) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// readBody reads req's body per Content-Length or chunked
// transfer-encoding, enforcing maxBodySize (spec.md §4.C).
func (c *Connection) readBody(req *http.Request) error {
	if strings.EqualFold(req.Header("transfer-encoding"), "chunked") {
		return c.readChunkedBody(req)
	}

	cl := req.Header("content-length")
	if cl == "" {
		return nil
	}
	length, err := strconv.ParseInt(cl, 10, 64)
	if err != nil || length < 0 {
		return ErrMalformedRequest
	}
	if length > c.maxBodySize {
		return ErrBodyTooLarge
	}

	body := make([]byte, length)
	if _, err := readFull(c.reader, body); err != nil {
		return err
	}
	req.Body = body
	return nil
}

func (c *Connection) readChunkedBody(req *http.Request) error {
	var body []byte
	for {
		sizeLine, err := c.reader.ReadString('\n')
		if err != nil {
			return err
		}
		sizeLine = strings.TrimRight(sizeLine, "\r\n")
		if semi := strings.IndexByte(sizeLine, ';'); semi != -1 {
			sizeLine = sizeLine[:semi]
		}
		size, err := strconv.ParseInt(strings.TrimSpace(sizeLine), 16, 64)
		if err != nil || size < 0 {
			return ErrMalformedRequest
		}
		if size == 0 {
			// Trailing CRLF after the terminating zero-length chunk, and
			// any trailer headers (discarded — spec.md does not surface
			// trailers to handlers).
			for {
				line, err := c.reader.ReadString('\n')
				if err != nil {
					return err
				}
				if line == "\r\n" || line == "\n" {
					break
				}
			}
			break
		}
		if int64(len(body))+size > c.maxBodySize {
			return ErrBodyTooLarge
		}
		chunk := make([]byte, size)
		if _, err := readFull(c.reader, chunk); err != nil {
			return err
		}
		body = append(body, chunk...)

		// Consume the chunk's trailing CRLF.
		if _, err := c.reader.Discard(2); err != nil {
			return err
		}
	}
	req.Body = body
	return nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// statusForReadError maps a readRequest failure to the status code spec.md
// §7 assigns it, or 0 if the failure is a transport-level condition (EOF,
// deadline, connection reset) that gets no response at all.
func statusForReadError(err error) int {
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		return 413
	case errors.Is(err, ErrMissingHost), errors.Is(err, ErrMalformedRequest), errors.Is(err, http.ErrMalformed):
		return 400
	default:
		return 0
	}
}

// sendErrorResponse writes the self-contained HTML error response spec.md's
// Error-responses paragraph describes, always with Connection: close, for
// requests that never reach a real http.Response (the parse failed before
// one could be built).
func (c *Connection) sendErrorResponse(version string, status int) {
	reason := http.StatusText(status)
	body := fmt.Sprintf("<html><body><h1>%d %s</h1></body></html>", status, reason)

	var buf bytes.Buffer
	buf.WriteString(version)
	buf.WriteByte(' ')
	buf.WriteString(strconv.Itoa(status))
	buf.WriteByte(' ')
	buf.WriteString(reason)
	buf.WriteString("\r\n")
	buf.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	buf.WriteString("Content-Length: ")
	buf.WriteString(strconv.Itoa(len(body)))
	buf.WriteString("\r\n")
	buf.WriteString("Connection: close\r\n\r\n")
	buf.WriteString(body)

	c.conn.SetWriteDeadline(time.Now().Add(c.idleTimeout))
	if _, err := c.conn.Write(buf.Bytes()); err != nil {
		c.logger.Printf("failed writing error response: %v", err)
	}
}

// dispatch runs the middleware chain and the matched route handler on the
// Executor, off the goroutine blocked on socket I/O, and blocks until it
// completes (spec.md §4.A: Dispatch is the unit of work handed to the
// worker pool). It reports whether the error lane went unhandled, which
// forces the connection closed regardless of the request's keep-alive
// preference (spec.md §7).
func (c *Connection) dispatch(req *http.Request, res *http.Response) bool {
	done := make(chan struct{})
	var unhandled bool
	c.executor.Submit(func() {
		defer close(done)
		c.chain.Run(req, res, c.final, func(err error) {
			unhandled = true
			c.writeUnhandledError(res, err)
		})
	})
	<-done
	return unhandled
}

func (c *Connection) final(req *http.Request, res *http.Response) {
	handler := c.router.Find(req.Method, req.Path, req.Params)
	if handler == nil {
		res.Status = 404
		res.SetHeader("Content-Type", "text/plain; charset=utf-8")
		res.Write([]byte("not found"))
		return
	}
	handler(req, res)
}

func (c *Connection) writeUnhandledError(res *http.Response, err error) {
	c.logger.Printf("unhandled dispatch error: %v", err)
	res.Status = 500
	res.SetHeader("Content-Type", "text/plain; charset=utf-8")
	res.Body = res.Body[:0]
	res.Write([]byte("internal server error"))
}

// shouldKeepAlive implements spec.md §4.F's keep-alive negotiation:
// HTTP/1.1 defaults to keep-alive unless Connection: close is present;
// HTTP/1.0 defaults to close unless Connection: keep-alive is present.
func (c *Connection) shouldKeepAlive(req *http.Request, res *http.Response) bool {
	conn := strings.ToLower(req.Header("connection"))
	if req.Version == "HTTP/1.0" {
		return conn == "keep-alive"
	}
	return conn != "close"
}

// writeResponse serializes res onto the socket using a pooled buffer,
// echoing version on the status line per spec.md §4.F step 6.
func (c *Connection) writeResponse(res *http.Response, version string) error {
	c.conn.SetWriteDeadline(time.Now().Add(c.idleTimeout))

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString(version)
	buf.WriteByte(' ')
	buf.WriteString(strconv.Itoa(res.Status))
	buf.WriteByte(' ')
	buf.WriteString(http.StatusText(res.Status))
	buf.WriteString("\r\n")

	hasContentLength := false
	for _, k := range res.Headers() {
		if strings.EqualFold(k, "content-length") {
			hasContentLength = true
		}
		buf.WriteString(k)
		buf.WriteString(": ")
		buf.WriteString(res.HeaderValue(k))
		buf.WriteString("\r\n")
	}
	if !hasContentLength {
		buf.WriteString("Content-Length: ")
		buf.WriteString(strconv.Itoa(len(res.Body)))
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
	buf.Write(res.Body)

	_, err := c.conn.Write(buf.Bytes())
	return err
}

func (c *Connection) close() {
	c.conn.Close()
	if c.onClose != nil {
		c.onClose()
	}
}
