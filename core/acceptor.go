package core

import (
	"context"
	"log"
	"net"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"
)

// Acceptor listens on a TCP port, admits sockets subject to a connection
// cap, and hands each admitted socket to its onAccept callback (core.Server
// wraps it in a Connection taken from a pools.ConnectionPool) — spec.md §4.B,
// grounded on the original's Server::startAccept
// (_examples/original_source/aether/src/Http/Server.cpp) and the teacher's
// core/engine.go:acceptConnections.
type Acceptor struct {
	maxConnections int32
	active         int32

	logger  *log.Logger
	onAccept func(net.Conn)
}

// NewAcceptor creates an Acceptor with the given connection cap and a
// callback invoked for each admitted socket.
func NewAcceptor(maxConnections int, logger *log.Logger, onAccept func(net.Conn)) *Acceptor {
	if maxConnections <= 0 {
		maxConnections = DefaultMaxConnections
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Acceptor{
		maxConnections: int32(maxConnections),
		logger:         logger,
		onAccept:       onAccept,
	}
}

// Run binds a dual-stack IPv4 TCP listener on port with SO_REUSEADDR and
// accepts connections until the listener is closed or the accept loop
// observes a non-transient error. It blocks the calling goroutine.
func (a *Acceptor) Run(port int) error {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}

	addr := net.JoinHostPort("0.0.0.0", itoa(port))
	ln, err := lc.Listen(context.Background(), "tcp4", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	a.logger.Printf("acceptor listening on %s", addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if isTemporary(err) {
				continue
			}
			return err
		}

		if atomic.AddInt32(&a.active, 1) > a.maxConnections {
			atomic.AddInt32(&a.active, -1)
			conn.Close()
			continue
		}

		setTCPNoDelay(conn)
		a.onAccept(conn)
	}
}

// Release decrements the active-connection counter; a Connection calls
// this once, from its cleanup callback, when its Serve loop returns and
// closes the socket (spec.md §4.B: "cleanup callback decrements the counter").
func (a *Acceptor) Release() {
	atomic.AddInt32(&a.active, -1)
}

// Active returns the current number of admitted, not-yet-released
// connections.
func (a *Acceptor) Active() int {
	return int(atomic.LoadInt32(&a.active))
}

func setTCPNoDelay(conn net.Conn) {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	rawConn, err := tcpConn.SyscallConn()
	if err != nil {
		return
	}
	rawConn.Control(func(fd uintptr) {
		unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	})
}

func isTemporary(err error) bool {
	type temporary interface{ Temporary() bool }
	te, ok := err.(temporary)
	return ok && te.Temporary()
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
