package core

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/tetrachromeio/aether/core/http"
)

func TestServerEndToEndHTTP(t *testing.T) {
	s := New()
	s.Workers = 2
	port := freePort(t)

	s.Get("/echo/:word", func(req *http.Request, res *http.Response) {
		res.SetHeader("Content-Type", "text/plain")
		res.Write([]byte(req.Params["word"]))
	})

	go s.Run(port)
	time.Sleep(100 * time.Millisecond)

	conn, err := net.Dial("tcp4", net.JoinHostPort("127.0.0.1", itoa(port)))
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	conn.Write([]byte("GET /echo/banana HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))

	reader := bufio.NewReader(conn)
	status, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed reading status line: %v", err)
	}
	if !strings.HasPrefix(status, "HTTP/1.1 200") {
		t.Fatalf("expected 200, got %q", status)
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("failed reading headers: %v", err)
		}
		if line == "\r\n" {
			break
		}
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("failed reading body: %v", err)
	}
	if string(body) != "banana" {
		t.Errorf("expected body %q, got %q", "banana", body)
	}
}
