// Package opcode implements the NeuralDB server described in spec.md
// §4.G: a length-prefixed binary opcode protocol distinct from the HTTP
// surface, grounded on the original's NeuralDbServer
// (_examples/original_source/aether/include/Aether/NeuralDb/NeuralDbServer.h)
// with the accept-loop/connection-tracking shape of the teacher's
// core/rpc/server/server.go.
package opcode

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Reserved opcodes, matching the original's Opcode enum exactly.
const (
	PING     byte = 0x01
	QUERY    byte = 0x02
	RESPONSE byte = 0x03
	ERROR    byte = 0xFF
)

var ErrServerClosed = errors.New("neuraldb server closed")

// Handler processes one message and optionally returns a response
// payload. Returning a nil response sends nothing back, matching the
// original's "if (!response.empty())" guard. Returning an error sends an
// ERROR-opcode frame carrying err.Error().
type Handler func(opcode byte, payload []byte) ([]byte, error)

// Server is the NeuralDB accept loop. It has no dependency on package
// core: Dispatch, if set, is supplied by the caller (core.Server wires
// Executor.Submit through it) so this package stays free of an import
// cycle with core.
type Server struct {
	Handler     Handler
	Dispatch    func(func())
	IdleTimeout time.Duration
	Logger      *log.Logger

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	listener net.Listener
	shutdown atomic.Bool
	activeOp atomic.Int64
}

// NewServer creates a NeuralDB server. handler must be non-nil.
func NewServer(handler Handler) *Server {
	return &Server{
		Handler:     handler,
		IdleTimeout: 5 * time.Minute,
		Logger:      log.Default(),
		conns:       make(map[net.Conn]struct{}),
	}
}

// ListenAndServe binds port and serves until Shutdown is called.
func (s *Server) ListenAndServe(port int) error {
	ln, err := net.Listen("tcp4", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until it is closed.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	defer ln.Close()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.shutdown.Load() {
				return nil
			}
			return err
		}
		s.trackConn(conn, true)
		go s.handleConn(conn)
	}
}

func (s *Server) trackConn(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

// handleConn loops reading opcode(1B) + length(4B BE) + payload frames,
// exactly the original's handle_client loop, until a read error or
// Shutdown closes the socket.
func (s *Server) handleConn(conn net.Conn) {
	defer func() {
		conn.Close()
		s.trackConn(conn, false)
	}()

	header := make([]byte, 5)
	for {
		conn.SetReadDeadline(time.Now().Add(s.IdleTimeout))

		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		op := header[0]
		length := binary.BigEndian.Uint32(header[1:5])

		var payload []byte
		if length > 0 {
			payload = make([]byte, length)
			if _, err := io.ReadFull(conn, payload); err != nil {
				return
			}
		}

		s.activeOp.Add(1)
		if s.Dispatch != nil {
			done := make(chan struct{})
			s.Dispatch(func() {
				defer close(done)
				s.process(conn, op, payload)
			})
			<-done
		} else {
			s.process(conn, op, payload)
		}
		s.activeOp.Add(-1)
	}
}

func (s *Server) process(conn net.Conn, op byte, payload []byte) {
	resp, err := s.Handler(op, payload)
	if err != nil {
		s.writeFrame(conn, ERROR, []byte(err.Error()))
		return
	}
	if len(resp) == 0 {
		return
	}
	// Echo the request opcode on success, matching the original server's
	// "uint8_t resp_opcode = opcode" with no per-opcode special-case.
	s.writeFrame(conn, op, resp)
}

func (s *Server) writeFrame(conn net.Conn, op byte, payload []byte) {
	frame := make([]byte, 5+len(payload))
	frame[0] = op
	binary.BigEndian.PutUint32(frame[1:5], uint32(len(payload)))
	copy(frame[5:], payload)
	if _, err := conn.Write(frame); err != nil {
		s.Logger.Printf("neuraldb: write error: %v", err)
	}
}

// Shutdown closes the listener and every tracked connection, then waits
// for in-flight handler invocations to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdown.Store(true)

	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}

	done := make(chan struct{})
	go func() {
		for s.activeOp.Load() > 0 {
			time.Sleep(50 * time.Millisecond)
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats reports connection/activity counters for observability.
type Stats struct {
	Connections   int
	ActiveOps     int64
}

func (s *Server) Stats() Stats {
	s.mu.Lock()
	n := len(s.conns)
	s.mu.Unlock()
	return Stats{Connections: n, ActiveOps: s.activeOp.Load()}
}
