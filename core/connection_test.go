package core

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/tetrachromeio/aether/core/http"
	"github.com/tetrachromeio/aether/core/middleware"
	"github.com/tetrachromeio/aether/core/router"
)

func newTestConnection(t *testing.T, rt *router.Router, chain *middleware.Chain) (client net.Conn, done chan struct{}) {
	t.Helper()
	serverSide, clientSide := net.Pipe()

	executor := NewExecutor(2)
	t.Cleanup(executor.Stop)

	conn := NewConnection(serverSide, rt, chain, executor, 2*time.Second, DefaultMaxBodySize, nil, func() {})

	done = make(chan struct{})
	go func() {
		conn.Serve()
		close(done)
	}()
	return clientSide, done
}

func TestConnectionServesSimpleGET(t *testing.T) {
	rt := router.New()
	rt.Add("GET", "/hello", func(req, res any) {
		r := res.(*http.Response)
		r.SetHeader("Content-Type", "text/plain")
		r.Write([]byte("hi"))
	})
	chain := middleware.New()

	client, done := newTestConnection(t, rt, chain)
	defer client.Close()

	client.Write([]byte("GET /hello HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))

	reader := bufio.NewReader(client)
	status, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read status line: %v", err)
	}
	if !strings.HasPrefix(status, "HTTP/1.1 200") {
		t.Errorf("expected 200 status line, got %q", status)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not close after Connection: close")
	}
}

func TestConnectionReturns404ForUnmatchedRoute(t *testing.T) {
	rt := router.New()
	chain := middleware.New()

	client, done := newTestConnection(t, rt, chain)
	defer client.Close()

	client.Write([]byte("GET /missing HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))

	reader := bufio.NewReader(client)
	status, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read status line: %v", err)
	}
	if !strings.HasPrefix(status, "HTTP/1.1 404") {
		t.Errorf("expected 404 status line, got %q", status)
	}

	<-done
}

func TestConnectionKeepAliveServesMultipleRequests(t *testing.T) {
	rt := router.New()
	count := 0
	rt.Add("GET", "/ping", func(req, res any) {
		count++
		res.(*http.Response).Write([]byte("pong"))
	})
	chain := middleware.New()

	client, done := newTestConnection(t, rt, chain)
	defer client.Close()

	reader := bufio.NewReader(client)

	client.Write([]byte("GET /ping HTTP/1.1\r\nHost: x\r\n\r\n"))
	if status, err := reader.ReadString('\n'); err != nil || !strings.HasPrefix(status, "HTTP/1.1 200") {
		t.Fatalf("first response: status=%q err=%v", status, err)
	}
	drainHeaders(t, reader)
	body := make([]byte, len("pong"))
	if _, err := io.ReadFull(reader, body); err != nil {
		t.Fatalf("failed reading first body: %v", err)
	}

	client.Write([]byte("GET /ping HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	if status, err := reader.ReadString('\n'); err != nil || !strings.HasPrefix(status, "HTTP/1.1 200") {
		t.Fatalf("second response: status=%q err=%v", status, err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not close after second request's Connection: close")
	}

	if count != 2 {
		t.Errorf("expected handler invoked twice, got %d", count)
	}
}

func TestConnectionRespondsBadRequestForMissingHost(t *testing.T) {
	rt := router.New()
	chain := middleware.New()

	client, done := newTestConnection(t, rt, chain)
	defer client.Close()

	client.Write([]byte("GET /hello HTTP/1.1\r\n\r\n"))

	reader := bufio.NewReader(client)
	status, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read status line: %v", err)
	}
	if !strings.HasPrefix(status, "HTTP/1.1 400") {
		t.Errorf("expected 400 status line for missing Host, got %q", status)
	}

	<-done
}

func TestConnectionRespondsPayloadTooLargeForOversizedBody(t *testing.T) {
	rt := router.New()
	chain := middleware.New()

	serverSide, clientSide := net.Pipe()
	executor := NewExecutor(2)
	t.Cleanup(executor.Stop)

	conn := NewConnection(serverSide, rt, chain, executor, 2*time.Second, 4, nil, func() {})
	done := make(chan struct{})
	go func() {
		conn.Serve()
		close(done)
	}()
	defer clientSide.Close()

	clientSide.Write([]byte("POST /upload HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\n\r\nhello"))

	reader := bufio.NewReader(clientSide)
	status, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read status line: %v", err)
	}
	if !strings.HasPrefix(status, "HTTP/1.1 413") {
		t.Errorf("expected 413 status line for oversized body, got %q", status)
	}

	<-done
}

func TestConnectionForcesCloseOnUnhandledError(t *testing.T) {
	rt := router.New()
	rt.Add("GET", "/boom", func(req, res any) {})
	chain := middleware.New()
	chain.Use(func(req *http.Request, res *http.Response, next func(), nextErr func(error)) {
		nextErr(errTestUnhandled)
	})

	client, done := newTestConnection(t, rt, chain)
	defer client.Close()

	// No Connection header: HTTP/1.1 defaults to keep-alive, but the
	// unhandled error lane must force the connection closed regardless.
	client.Write([]byte("GET /boom HTTP/1.1\r\nHost: x\r\n\r\n"))

	reader := bufio.NewReader(client)
	status, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read status line: %v", err)
	}
	if !strings.HasPrefix(status, "HTTP/1.1 500") {
		t.Errorf("expected 500 status line, got %q", status)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not close after an unhandled dispatch error")
	}
}

var errTestUnhandled = errors.New("boom")

func TestConnectionEchoesRequestVersionInStatusLine(t *testing.T) {
	rt := router.New()
	rt.Add("GET", "/hello", func(req, res any) {
		res.(*http.Response).Write([]byte("hi"))
	})
	chain := middleware.New()

	client, done := newTestConnection(t, rt, chain)
	defer client.Close()

	client.Write([]byte("GET /hello HTTP/1.0\r\nHost: x\r\n\r\n"))

	reader := bufio.NewReader(client)
	status, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read status line: %v", err)
	}
	if !strings.HasPrefix(status, "HTTP/1.0 200") {
		t.Errorf("expected status line to echo HTTP/1.0, got %q", status)
	}

	<-done
}

func drainHeaders(t *testing.T, reader *bufio.Reader) {
	t.Helper()
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("failed draining headers: %v", err)
		}
		if line == "\r\n" {
			return
		}
	}
}
