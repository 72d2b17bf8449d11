package http

import "testing"

func TestRequestHeaderCaseInsensitive(t *testing.T) {
	req := AcquireRequest()
	defer ReleaseRequest(req)

	req.SetHeader("Content-Type", "text/plain")
	if got := req.Header("content-type"); got != "text/plain" {
		t.Errorf("expected text/plain, got %q", got)
	}
	if got := req.Header("CONTENT-TYPE"); got != "text/plain" {
		t.Errorf("expected case-insensitive lookup to succeed, got %q", got)
	}
}

func TestRequestResetClearsButKeepsCapacity(t *testing.T) {
	req := AcquireRequest()
	req.Method = "GET"
	req.Path = "/x"
	req.SetHeader("X-A", "1")
	req.Params["id"] = "7"
	req.Body = append(req.Body, 'a', 'b')

	req.Reset()

	if req.Method != "" || req.Path != "" {
		t.Error("expected start line fields cleared")
	}
	if len(req.Headers) != 0 || len(req.Params) != 0 || len(req.Body) != 0 {
		t.Error("expected headers/params/body cleared")
	}
	if req.Headers == nil || req.Params == nil {
		t.Error("reset must not nil out the backing maps")
	}
}

func TestAcquireReleaseRoundTrip(t *testing.T) {
	req := AcquireRequest()
	req.SetHeader("X-Leftover", "should-not-survive")
	ReleaseRequest(req)

	req2 := AcquireRequest()
	if req2.Header("x-leftover") != "" {
		t.Error("expected a released request to come back from the pool without stale headers")
	}
	ReleaseRequest(req2)
}
